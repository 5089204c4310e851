package utils

import (
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/constraints"
)

func Max[T constraints.Ordered](x, y T) T {
	if x < y {
		return y
	}
	return x
}

func Min[T constraints.Ordered](x, y T) T {
	if y < x {
		return y
	}
	return x
}

func Median[T constraints.Integer | constraints.Float](n []T) T {
	return Percentile(n, 50)
}

func Percentile[T constraints.Integer | constraints.Float](n []T, percentile int) T {
	if len(n) == 0 {
		log.Warn().Msg("WARNING: Percentile called on empty slice")
		return 0
	}
	if len(n) == 1 {
		return n[0]
	}
	copyN := make([]T, len(n))
	copy(copyN, n)
	sort.Slice(copyN, func(i, j int) bool { return copyN[i] < copyN[j] })

	idx := int((float64(percentile) / 100.0) * float64(len(copyN)))
	if len(copyN)%2 == 0 || idx == 0 {
		return copyN[idx]
	} else if copyN[idx-1] == copyN[idx] {
		return copyN[idx]
	}
	return (copyN[idx-1] + copyN[idx]) / 2
}

// Size of each thread's contiguous piece when splitting n items across threads.
// Never zero for more than one thread, so that (piece * tidx) stays a valid stagger.
func PieceSize(n uint32, threads uint32) uint32 {
	if threads <= 1 {
		return n
	}
	return Max((n+threads-1)/threads, 1)
}

// The [start, end) range of the piece owned by tidx.
func PieceRange(n uint32, tidx uint32, threads uint32) (start uint32, end uint32) {
	piece := uint64(PieceSize(n, threads))
	start = uint32(Min(piece*uint64(tidx), uint64(n)))
	end = uint32(Min(piece*uint64(tidx+1), uint64(n)))
	return start, end
}
