package graph

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ScottSallinen/bmatch/utils"
)

const MAX_ELEMS_PER_EDGE = 3

// Size of the line buffer; a single line longer than this is an input error.
const LINE_BUFFER_SIZE = 1 << 20

var ErrMalformedEdge = errors.New("malformed edge")

// Loads the graph from an edge list file; "-" reads stdin.
func LoadGraph(path string) (*Graph, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open graph: %w", err)
		}
		defer file.Close()
		r = file
	}
	g := NewGraph()
	if err := ReadEdges(r, g); err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", path, err)
	}
	return g, nil
}

// Receives edges as they are parsed. *Graph is one.
type EdgeSink interface {
	AddEdge(src RawType, dst RawType, weight uint32)
}

// Reads "src dst [weight]" lines into g. Blank lines and lines starting with '#' are skipped.
// A missing weight means DEFAULT_WEIGHT.
func ReadEdges(r io.Reader, g EdgeSink) error {
	scanner := utils.NewLineScanner(r, LINE_BUFFER_SIZE)
	fields := make([]string, MAX_ELEMS_PER_EDGE)
	for lineNo := 1; ; lineNo++ {
		line, err := scanner.Scan()
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if line == nil {
			return nil
		}
		count := utils.FastFields(fields, line)
		if count == 0 || fields[0][0] == '#' {
			continue
		}
		if count < 2 || count > MAX_ELEMS_PER_EDGE {
			return fmt.Errorf("line %d: expected \"src dst [weight]\", got %d fields: %w", lineNo, count, ErrMalformedEdge)
		}
		src, err := parseField(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: src: %w", lineNo, err)
		}
		dst, err := parseField(fields[1])
		if err != nil {
			return fmt.Errorf("line %d: dst: %w", lineNo, err)
		}
		weight := uint32(DEFAULT_WEIGHT)
		if count == 3 {
			if weight, err = parseField(fields[2]); err != nil {
				return fmt.Errorf("line %d: weight: %w", lineNo, err)
			}
		}
		g.AddEdge(RawType(src), RawType(dst), weight)
	}
}

func parseField(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedEdge, err)
	}
	return uint32(v), nil
}
