package engine

import (
	"errors"
	"fmt"
)

var ErrInconsistent = errors.New("inconsistent matching")

// Verifies a converged sweep: capacities hold, every accepted proposal has its edge bit set and
// vice versa, proposers' outstanding counts agree, and the edge states add up to total.
// Must be called between sweeps.
func (e *Engine) CheckCorrectness(total int64) error {
	g := e.g
	accepted := make([]uint32, g.NumVertices())

	for vidx := range g.Vertices {
		v := &g.Vertices[vidx]
		if v.Suitors.Len() > v.Capacity {
			return fmt.Errorf("%w: vertex %s accepts %d proposals with capacity %d", ErrInconsistent, v.RawId, v.Suitors.Len(), v.Capacity)
		}
		if v.Proposed > v.Capacity {
			return fmt.Errorf("%w: vertex %s has %d outstanding proposals with capacity %d", ErrInconsistent, v.RawId, v.Proposed, v.Capacity)
		}
		if v.Marked() {
			return fmt.Errorf("%w: vertex %s still marked after convergence", ErrInconsistent, v.RawId)
		}
		for _, p := range v.Suitors.Snapshot() {
			if !g.IsActive(p.From, p.Eid) {
				return fmt.Errorf("%w: vertex %s holds a proposal from %s that is not active", ErrInconsistent, v.RawId, p.FromRaw)
			}
			accepted[p.From]++
		}
	}

	for vidx := range g.Vertices {
		v := &g.Vertices[vidx]
		active := uint32(0)
		for _, edge := range v.OutEdges {
			if g.IsActive(uint32(vidx), edge.Eid) {
				active++
			}
		}
		if active != accepted[vidx] || active != v.Proposed {
			return fmt.Errorf("%w: vertex %s has %d active edges, %d accepted proposals, %d outstanding", ErrInconsistent, v.RawId, active, accepted[vidx], v.Proposed)
		}
	}

	if credited := g.CreditedWeight(); credited != total {
		return fmt.Errorf("%w: edge states credit %d, accumulated total is %d", ErrInconsistent, credited, total)
	}
	return nil
}
