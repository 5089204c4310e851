package graph

import (
	"testing"
)

type constPolicy uint32

func (c constPolicy) Capacity(uint32, RawType) uint32 { return uint32(c) }

func Test_AddEdgeDense(t *testing.T) {
	g := NewGraph()
	g.AddEdge(100, 7, 3)
	g.AddEdge(7, 55, 1)
	g.AddEdge(9, 9, 4) // self loop
	g.AddEdge(55, 100, 2)

	if g.NumVertices() != 3 || g.NumEdges() != 3 {
		t.Fatal("vertices ", g.NumVertices(), " edges ", g.NumEdges())
	}
	if g.SelfLoops() != 1 {
		t.Error("self loops ", g.SelfLoops())
	}
	for raw, want := range map[RawType]uint32{100: 0, 7: 1, 55: 2} {
		if got := g.VertexMap[raw]; got != want {
			t.Error("raw ", raw, " got index ", got, " expected ", want)
		}
	}
	if _, ok := g.VertexMap[9]; ok {
		t.Error("self loop endpoint should not create a vertex")
	}
	// Both directed records share the edge id and weight.
	a := g.Vertices[0].OutEdges[0]
	b := g.Vertices[1].OutEdges[0]
	if a.Eid != b.Eid || a.Weight != b.Weight || a.Didx != 1 || b.Didx != 0 || a.DstRaw != 7 || b.DstRaw != 100 {
		t.Error("mismatched records ", a, " ", b)
	}
	if g.Sorted() {
		t.Error("graph with edges should not report sorted")
	}
}

func Test_SortNeighbours(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2, 5)
	g.AddEdge(1, 3, 9)
	g.AddEdge(1, 4, 5)
	g.AddEdge(1, 5, 1)
	g.SortNeighbours(3)

	expected := []RawType{3, 4, 2, 5}
	edges := g.Vertices[g.VertexMap[1]].OutEdges
	for i := range expected {
		if edges[i].DstRaw != expected[i] {
			t.Error("position ", i, ": got ", edges[i].DstRaw, " expected ", expected[i])
		}
	}
	if !g.Sorted() {
		t.Error("not sorted")
	}
}

func Test_EdgeStateAny(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2, 10)
	u, v := g.VertexMap[1], g.VertexMap[2]

	if !g.Activate(u, 0) {
		t.Error("first activation should credit")
	}
	if g.Activate(u, 0) {
		t.Error("repeat activation should not credit")
	}
	if g.Activate(v, 0) {
		t.Error("second endpoint should not credit again")
	}
	if !g.IsActive(u, 0) || !g.IsActive(v, 0) {
		t.Error("both endpoints should be active")
	}
	if g.Deactivate(u, 0) {
		t.Error("one endpoint still active, no debit")
	}
	if g.Deactivate(u, 0) {
		t.Error("repeat deactivation should not debit")
	}
	if !g.EdgeCredited(0) || g.CreditedWeight() != 10 {
		t.Error("edge should still be credited")
	}
	if !g.Deactivate(v, 0) {
		t.Error("last deactivation should debit")
	}
	if g.EdgeCredited(0) || g.CreditedWeight() != 0 {
		t.Error("edge should not be credited")
	}
}

func Test_EdgeStateMutual(t *testing.T) {
	g := NewGraph()
	g.Credit = CreditMutual
	g.AddEdge(1, 2, 10)
	u, v := g.VertexMap[1], g.VertexMap[2]

	if g.Activate(u, 0) {
		t.Error("one side should not credit")
	}
	if g.CreditedWeight() != 0 {
		t.Error("one side credited")
	}
	if !g.Activate(v, 0) {
		t.Error("second side should credit")
	}
	if g.Activate(v, 0) {
		t.Error("repeat should not credit")
	}
	if g.CreditedWeight() != 10 {
		t.Error("credited ", g.CreditedWeight())
	}
	if !g.Deactivate(u, 0) {
		t.Error("leaving both-set should debit")
	}
	if g.Deactivate(v, 0) {
		t.Error("already debited")
	}
	if CreditMutual.String() != "mutual" || CreditAny.String() != "any" {
		t.Error("mode names")
	}
}

func Test_ResetPartition(t *testing.T) {
	g := NewGraph()
	for i := RawType(0); i < 20; i++ {
		g.AddEdge(i, i+1, uint32(i))
	}
	for e := range g.EdgeStates {
		g.Activate(g.EdgeStates[e].owner, uint32(e))
	}
	for vidx := range g.Vertices {
		g.Vertices[vidx].Mark()
		g.Vertices[vidx].TrySweep()
		g.Vertices[vidx].Proposed = 9
	}

	const threads = 6
	for tidx := uint32(0); tidx < threads; tidx++ {
		g.ResetPartition(tidx, threads, 2, constPolicy(3))
	}
	for vidx := range g.Vertices {
		v := &g.Vertices[vidx]
		if v.Capacity != 3 || v.Proposed != 0 || v.Marked() || v.Swept() || v.Suitors.Len() != 0 || v.Suitors.Limit() != 3 {
			t.Error("vertex ", v.RawId, " not reset")
		}
	}
	if g.CreditedWeight() != 0 {
		t.Error("edge states not cleared")
	}
}

func Test_MarkSettle(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2, 1)
	g.ResetPartition(0, 1, 0, constPolicy(2))
	v := &g.Vertices[0]
	v.Proposed = 2

	if !v.Mark() {
		t.Error("first mark should report first")
	}
	if v.Mark() {
		t.Error("second mark should not")
	}
	if v.TrySweep() {
		t.Error("first sweep claim reported already swept")
	}
	if !v.TrySweep() {
		t.Error("second sweep claim should report already swept")
	}
	v.AddEvicted()
	g.SettleVertices([]uint32{0})
	if v.Proposed != 1 || v.Evicted() != 0 || v.Marked() || v.Swept() {
		t.Error("settle: proposed ", v.Proposed, " evicted ", v.Evicted())
	}
}

func Test_ParallelFor(t *testing.T) {
	g := NewGraph()
	for i := RawType(0); i < 101; i++ {
		g.AddEdge(i, i+1000, 1)
	}
	seen := make([]uint32, g.NumVertices())
	g.ParallelFor(7, func(start, end uint32) {
		for i := start; i < end; i++ {
			seen[i]++
		}
	})
	for i := range seen {
		if seen[i] != 1 {
			t.Fatal("vertex ", i, " visited ", seen[i], " times")
		}
	}
}
