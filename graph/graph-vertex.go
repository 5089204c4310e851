package graph

import (
	"sync/atomic"

	"github.com/ScottSallinen/bmatch/enforce"
	"github.com/ScottSallinen/bmatch/utils"
)

// Defines a vertex in the graph.
// Structure (RawId, OutEdges) is built once and never changes; everything else is per sweep.
type Vertex struct {
	RawId    RawType         // Raw (external) ID of the vertex.
	OutEdges []Edge          // Sorted by Edge.Better once loading is complete.
	Capacity uint32          // b value for the current sweep.
	Proposed uint32          // Proposals of this vertex currently accepted elsewhere. Only touched by the thread sweeping it, or at settle.
	Suitors  AcceptanceQueue // Proposals this vertex currently accepts.
	Lock     utils.SpinLock  // Held for the whole evaluate, evict, activate, insert sequence on this vertex's queue.

	evicted atomic.Uint32 // Proposals of this vertex evicted this round; subtracted from Proposed at settle.
	marked  utils.Flag    // Queued for the next round.
	swept   utils.Flag    // Matched this round.
}

// Per sweep reset.
func (v *Vertex) Reset(capacity uint32) {
	v.Capacity = capacity
	v.Proposed = 0
	v.Suitors.Reset(capacity)
	v.evicted.Store(0)
	v.marked.Clear()
	v.swept.Clear()
}

// Claims the vertex for this round. Reports true if it was already swept.
func (v *Vertex) TrySweep() (alreadySwept bool) {
	return v.swept.Set()
}

// Marks the vertex for the next round. Only the first caller gets true, and must queue it.
func (v *Vertex) Mark() (first bool) {
	return !v.marked.Set()
}

func (v *Vertex) Marked() bool {
	return v.marked.IsSet()
}

func (v *Vertex) Swept() bool {
	return v.swept.IsSet()
}

// Records that one of this vertex's accepted proposals was evicted.
func (v *Vertex) AddEvicted() {
	v.evicted.Add(1)
}

func (v *Vertex) Evicted() uint32 {
	return v.evicted.Load()
}

// Prepares a marked vertex to propose again in the next round.
func (v *Vertex) Settle() {
	ev := v.evicted.Swap(0)
	enforce.ENFORCE(ev <= v.Proposed, "evicted more proposals than were outstanding: ", v.RawId)
	v.Proposed -= ev
	v.marked.Clear()
	v.swept.Clear()
}

// A proposal accepted by some vertex.
type Proposal struct {
	Weight  uint32
	FromRaw RawType // Raw ID of the proposer; breaks weight ties.
	From    uint32  // Internal index of the proposer.
	Eid     uint32
}

// Less reports whether p is worse than o: lighter first, then smaller proposer raw ID.
func (p Proposal) Less(o Proposal) bool {
	if p.Weight == o.Weight {
		return p.FromRaw < o.FromRaw
	}
	return p.Weight < o.Weight
}

// Bounded queue of accepted proposals, with the worst one on top.
// Writers must hold the owning vertex's Lock; readers may peek without it.
type AcceptanceQueue struct {
	heap  utils.PQ[Proposal]
	limit uint32
	count atomic.Uint32
	mu    utils.SpinLock // Guards heap against concurrent peeks.
}

func (q *AcceptanceQueue) Reset(limit uint32) {
	q.heap = q.heap[:0]
	q.limit = limit
	q.count.Store(0)
}

func (q *AcceptanceQueue) Len() uint32 {
	return q.count.Load()
}

func (q *AcceptanceQueue) Limit() uint32 {
	return q.limit
}

func (q *AcceptanceQueue) Full() bool {
	return q.count.Load() >= q.limit
}

// The currently worst accepted proposal.
func (q *AcceptanceQueue) Worst() (worst Proposal, ok bool) {
	q.mu.Lock()
	if len(q.heap) > 0 {
		worst, ok = q.heap.Peek(), true
	}
	q.mu.Unlock()
	return worst, ok
}

// Accepts reports whether p would be accepted right now: there is room, or p beats the worst.
func (q *AcceptanceQueue) Accepts(p Proposal) bool {
	if q.limit == 0 {
		return false
	}
	if !q.Full() {
		return true
	}
	worst, ok := q.Worst()
	return ok && worst.Less(p)
}

// Inserts p; when the queue is at its limit the worst proposal is evicted and returned.
// A queue with a zero limit rejects p by returning it.
func (q *AcceptanceQueue) Push(p Proposal) (evicted Proposal, didEvict bool) {
	if q.limit == 0 {
		return p, true
	}
	q.mu.Lock()
	if uint32(len(q.heap)) >= q.limit {
		evicted, didEvict = q.heap.Replace(p), true
	} else {
		q.heap.Push(p)
		q.count.Add(1)
	}
	if enforce.Debug {
		enforce.ENFORCE(uint32(len(q.heap)) <= q.limit, "acceptance queue over capacity")
	}
	q.mu.Unlock()
	return evicted, didEvict
}

// Copy of the accepted proposals, in no particular order.
func (q *AcceptanceQueue) Snapshot() []Proposal {
	q.mu.Lock()
	out := make([]Proposal, len(q.heap))
	copy(out, q.heap)
	q.mu.Unlock()
	return out
}
