package engine

import (
	"sync/atomic"

	"github.com/ScottSallinen/bmatch/utils"
)

type Phase uint8

const (
	PhaseInit Phase = iota
	PhasePropose
	PhaseSettle
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePropose:
		return "propose"
	case PhaseSettle:
		return "settle"
	}
	return "unknown"
}

// Spin barrier with one arrival counter and one gate per phase.
// Workers arrive and wait; the coordinating thread (which is not counted) awaits all
// arrivals, then releases the phase. Releasing a phase closes the previous phase's gate,
// which is safe because every worker has already passed it to arrive here.
type PhaseBarrier struct {
	workers uint32
	arrived [numPhases]atomic.Uint32
	open    [numPhases]atomic.Bool
}

// threads includes the coordinator.
func NewPhaseBarrier(threads uint32) *PhaseBarrier {
	return &PhaseBarrier{workers: utils.Max(threads, 1) - 1}
}

func (b *PhaseBarrier) ArriveAndWait(p Phase) {
	b.arrived[p].Add(1)
	for i := 0; !b.open[p].Load(); i++ {
		utils.Spin(i)
	}
}

// Waits until every worker has arrived at p, then resets the phase's counter.
func (b *PhaseBarrier) AwaitArrivals(p Phase) {
	for i := 0; b.arrived[p].Load() < b.workers; i++ {
		utils.Spin(i)
	}
	b.arrived[p].Store(0)
}

func (b *PhaseBarrier) Release(p Phase) {
	b.open[(p+numPhases-1)%numPhases].Store(false)
	b.open[p].Store(true)
}
