package engine

import (
	"github.com/ScottSallinen/bmatch/enforce"
	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

// Per thread state. Only the owning thread touches it during a phase; the coordinator
// reads the counters between phases.
type worker struct {
	e      *Engine
	g      *graph.Graph
	tidx   uint32
	marked []uint32 // Local batch of vertices marked for the next round.
	delta  int64    // Local weight delta not yet flushed to the shared total.

	proposals uint64
	evictions uint64
}

func newWorker(e *Engine, tidx uint32) *worker {
	return &worker{e: e, g: e.g, tidx: tidx, marked: make([]uint32, 0, e.localQueueSize)}
}

// Proposes from vidx to its best neighbours until its capacity is used up or its
// neighbours are exhausted. Reports true, doing nothing, if vidx was already swept this round.
func (w *worker) match(vidx uint32) (alreadySwept bool) {
	v := &w.g.Vertices[vidx]
	if v.TrySweep() {
		return true
	}
	for i := range v.OutEdges {
		if v.Proposed >= v.Capacity {
			break
		}
		e := &v.OutEdges[i]
		p := graph.Proposal{Weight: e.Weight, FromRaw: v.RawId, From: vidx, Eid: e.Eid}
		if !w.eligible(e, p) {
			continue
		}
		u := &w.g.Vertices[e.Didx]
		u.Lock.Lock()
		if w.eligible(e, p) {
			w.accept(v, u, p)
		}
		u.Lock.Unlock()
	}
	return false
}

// Whether neighbour e.Didx would accept p now.
func (w *worker) eligible(e *graph.Edge, p graph.Proposal) bool {
	if w.g.IsActive(p.From, p.Eid) {
		return false
	}
	u := &w.g.Vertices[e.Didx]
	return u.Capacity != 0 && u.Suitors.Accepts(p)
}

// Must hold u.Lock.
func (w *worker) accept(v *graph.Vertex, u *graph.Vertex, p graph.Proposal) {
	if u.Suitors.Full() {
		worst, _ := u.Suitors.Worst()
		if w.g.Deactivate(worst.From, worst.Eid) {
			w.addWeight(-int64(worst.Weight))
		}
		loser := &w.g.Vertices[worst.From]
		loser.AddEvicted()
		if loser.Mark() {
			w.pushMarked(worst.From)
		}
		w.evictions++
	}
	if w.g.Activate(p.From, p.Eid) {
		w.addWeight(int64(p.Weight))
	}
	v.Proposed++
	evicted, didEvict := u.Suitors.Push(p)
	if enforce.Debug {
		enforce.ENFORCE(!didEvict || !w.g.IsActive(evicted.From, evicted.Eid), "evicted proposal still active")
	}
	w.proposals++
}

func (w *worker) pushMarked(vidx uint32) {
	w.marked = append(w.marked, vidx)
	if uint32(len(w.marked)) >= w.e.localQueueSize {
		w.flushMarked()
	}
}

func (w *worker) flushMarked() {
	if len(w.marked) == 0 {
		return
	}
	w.e.markedLock.Lock()
	w.e.marked = append(w.e.marked, w.marked...)
	w.e.markedLock.Unlock()
	w.marked = w.marked[:0]
}

func (w *worker) addWeight(d int64) {
	w.delta += d
	if w.delta > w.e.flushThreshold || -w.delta > w.e.flushThreshold {
		w.flushResult()
	}
}

func (w *worker) flushResult() {
	if w.delta != 0 {
		w.e.result.Add(w.delta)
		w.delta = 0
	}
}

// Staggered circular scan over the work list, or over every vertex when all is set. Each thread starts at
// its own piece offset and keeps going, into the pieces of other threads, until it reaches
// a vertex some thread has already swept.
func (w *worker) sweepVertices(list []uint32, all bool) {
	n := uint32(len(list))
	if all {
		n = uint32(w.g.NumVertices())
	}
	if n != 0 {
		piece := utils.PieceSize(n, w.e.threads)
		i := uint32((uint64(piece) * uint64(w.tidx)) % uint64(n))
		for c := uint32(0); c < n; c++ {
			vidx := i
			if !all {
				vidx = list[i]
			}
			if w.match(vidx) {
				break
			}
			if i++; i == n {
				i = 0
			}
		}
	}
	w.flushMarked()
	w.flushResult()
}
