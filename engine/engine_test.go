package engine

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ScottSallinen/bmatch/capacity"
	"github.com/ScottSallinen/bmatch/graph"
)

type testEdge struct {
	src, dst graph.RawType
	weight   uint32
}

func buildGraph(edges []testEdge) *graph.Graph {
	g := graph.NewGraph()
	for _, e := range edges {
		g.AddEdge(e.src, e.dst, e.weight)
	}
	return g
}

func testOptions(threads uint32, limit uint32) graph.GraphOptions {
	return graph.GraphOptions{
		NumThreads:           threads,
		SweepLimit:           limit,
		LocalQueueSize:       graph.DEFAULT_LOCAL_QUEUE_SIZE,
		ResultFlushThreshold: graph.DEFAULT_RESULT_FLUSH_THRESHOLD,
		CheckCorrectness:     true,
	}
}

func runAll(t *testing.T, edges []testEdge, opts graph.GraphOptions, policy graph.CapacityPolicy) (totals []int64) {
	t.Helper()
	err := Run(buildGraph(edges), opts, policy, nil, func(sweep uint32, total int64) {
		if int(sweep) != len(totals) {
			t.Error("sweep ", sweep, " emitted out of order")
		}
		totals = append(totals, total)
	})
	if err != nil {
		t.Fatal(err)
	}
	return totals
}

func expectTotals(t *testing.T, got []int64, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatal("got ", len(got), " results, expected ", len(want), ": ", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Error("sweep ", i, ": got ", got[i], " expected ", want[i])
		}
	}
}

// Deduplicated random graph without self loops. Raw IDs are sparse.
func randomEdges(rng *rand.Rand, vertices int, edges int, maxWeight int) (out []testEdge) {
	seen := make(map[[2]graph.RawType]bool)
	for len(out) < edges {
		a := graph.RawType(3 + 7*rng.Intn(vertices))
		b := graph.RawType(3 + 7*rng.Intn(vertices))
		if a == b {
			continue
		}
		key := [2]graph.RawType{min(a, b), max(a, b)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, testEdge{a, b, uint32(1 + rng.Intn(maxWeight))})
	}
	return out
}

// Greedy b-matching over edges in (weight, larger endpoint, smaller endpoint) order, descending.
func greedyOracle(edges []testEdge, sweep uint32, policy graph.CapacityPolicy) (total int64) {
	og := simple.NewWeightedUndirectedGraph(0, 0)
	for _, e := range edges {
		og.SetWeightedEdge(og.NewWeightedEdge(simple.Node(e.src), simple.Node(e.dst), float64(e.weight)))
	}
	var sorted []testEdge
	it := og.WeightedEdges()
	for it.Next() {
		we := it.WeightedEdge()
		a, b := graph.RawType(we.From().ID()), graph.RawType(we.To().ID())
		sorted = append(sorted, testEdge{max(a, b), min(a, b), uint32(we.Weight())})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].weight != sorted[j].weight {
			return sorted[i].weight > sorted[j].weight
		}
		if sorted[i].src != sorted[j].src {
			return sorted[i].src > sorted[j].src
		}
		return sorted[i].dst > sorted[j].dst
	})

	remaining := make(map[graph.RawType]uint32)
	capOf := func(raw graph.RawType) uint32 {
		if c, ok := remaining[raw]; ok {
			return c
		}
		remaining[raw] = policy.Capacity(sweep, raw)
		return remaining[raw]
	}
	for _, e := range sorted {
		if capOf(e.src) > 0 && capOf(e.dst) > 0 {
			remaining[e.src]--
			remaining[e.dst]--
			total += int64(e.weight)
		}
	}
	return total
}

func Test_SingleEdgeSweep(t *testing.T) {
	edges := []testEdge{{1, 2, 10}}
	for _, threads := range []uint32{1, 2, 4} {
		totals := runAll(t, edges, testOptions(threads, 1), capacity.Clamped(1))
		expectTotals(t, totals, []int64{0, 10})
	}
}

func Test_EmptyGraph(t *testing.T) {
	totals := runAll(t, nil, testOptions(4, 3), capacity.Linear())
	expectTotals(t, totals, []int64{0, 0, 0, 0})

	// Only self loops: nothing remains to match.
	totals = runAll(t, []testEdge{{5, 5, 9}}, testOptions(2, 1), capacity.Linear())
	expectTotals(t, totals, []int64{0, 0})
}

func Test_TieBreak(t *testing.T) {
	edges := []testEdge{{1, 4, 5}, {2, 4, 5}, {3, 4, 5}}
	one := capacity.Clamped(1)
	for _, threads := range []uint32{1, 2, 3, 8} {
		for rep := 0; rep < 20; rep++ {
			g := buildGraph(edges)
			e := New(g, testOptions(threads, 1), one, nil)
			e.Start()
			t.Cleanup(e.Close)
			total, _ := e.RunSweep(1)
			if total != 5 {
				t.Error("threads ", threads, ": total ", total, " expected 5")
			}
			suitors := g.SuitorsOf(4)
			if len(suitors) != 1 || suitors[0] != 3 {
				t.Fatal("threads ", threads, ": vertex 4 accepts ", suitors, " expected [3]")
			}
			if err := e.CheckCorrectness(total); err != nil {
				t.Error(err)
			}
			e.Close()
		}
	}
}

func Test_Eviction(t *testing.T) {
	const A, B, D = graph.RawType(1), graph.RawType(2), graph.RawType(4)
	g := buildGraph([]testEdge{{A, D, 5}, {B, D, 8}})
	e := New(g, testOptions(1, 1), capacity.Clamped(1), nil)
	g.ResetPartition(0, 1, 1, e.policy)
	w := e.workers[0]
	a, b := g.VertexMap[A], g.VertexMap[B]

	if w.match(a) {
		t.Fatal("A reported as already swept")
	}
	if !w.match(a) {
		t.Error("second match of A should report already swept")
	}
	w.flushResult()
	if total := e.result.Load(); total != 5 {
		t.Error("after A: total ", e.result.Load(), " expected 5")
	}
	if g.Vertices[a].Proposed != 1 {
		t.Error("A outstanding ", g.Vertices[a].Proposed, " expected 1")
	}

	w.match(b)
	w.flushResult()
	w.flushMarked()
	if total := e.result.Load(); total != 8 {
		t.Error("after B: total ", total, " expected 8")
	}
	if s := g.SuitorsOf(D); len(s) != 1 || s[0] != B {
		t.Error("D accepts ", s, " expected [2]")
	}
	if !g.Vertices[a].Marked() || len(e.marked) != 1 || e.marked[0] != a {
		t.Error("A should be marked exactly once, list ", e.marked)
	}
	if g.Vertices[a].Evicted() != 1 || w.evictions != 1 {
		t.Error("A evicted ", g.Vertices[a].Evicted(), " worker evictions ", w.evictions)
	}

	g.SettleVertices(e.marked)
	if g.Vertices[a].Proposed != 0 {
		t.Error("A outstanding after settle ", g.Vertices[a].Proposed, " expected 0")
	}
	if g.Vertices[a].Marked() || g.Vertices[a].Swept() {
		t.Error("A flags not cleared by settle")
	}
	// A has no other neighbour: re-proposing changes nothing.
	w.match(a)
	w.flushResult()
	if total := e.result.Load(); total != 8 {
		t.Error("after A again: total ", total, " expected 8")
	}
}

func Test_Determinism(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	edges := randomEdges(rng, 150, 900, 20)
	for _, policy := range []graph.CapacityPolicy{capacity.Linear(), capacity.Modulo(4)} {
		var reference []int64
		for _, threads := range []uint32{1, 2, 8} {
			opts := testOptions(threads, 5)
			if threads == 8 {
				// Exercise the flush paths.
				opts.LocalQueueSize = 1
				opts.ResultFlushThreshold = 3
			}
			totals := runAll(t, edges, opts, policy)
			if reference == nil {
				reference = totals
				continue
			}
			expectTotals(t, totals, reference)
		}
	}
}

func Test_GreedyOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		edges := randomEdges(rng, 40, 150, 6)
		policy := capacity.Modulo(uint32(2 + trial%3))
		for _, mutual := range []bool{false, true} {
			opts := testOptions(uint32(1+trial%4), 3)
			opts.Mutual = mutual
			totals := runAll(t, edges, opts, policy)
			for sweep := range totals {
				if want := greedyOracle(edges, uint32(sweep), policy); totals[sweep] != want {
					t.Error("trial ", trial, " mutual ", mutual, " sweep ", sweep, ": got ", totals[sweep], " greedy ", want)
				}
			}
		}
	}
}

func Test_RoundsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	edges := randomEdges(rng, 60, 300, 50)
	g := buildGraph(edges)
	e := New(g, testOptions(4, 0), capacity.Linear(), nil)
	e.Start()
	defer e.Close()
	for sweep := uint32(0); sweep < 6; sweep++ {
		total, stats := e.RunSweep(sweep)
		if stats.Rounds < 1 || stats.Rounds > uint64(g.NumEdges())+1 {
			t.Error("sweep ", sweep, ": rounds ", stats.Rounds)
		}
		if stats.Evictions > stats.Proposals {
			t.Error("sweep ", sweep, ": more evictions than proposals")
		}
		if err := e.CheckCorrectness(total); err != nil {
			t.Error(err)
		}
	}
}

func Test_CheckDetectsMismatch(t *testing.T) {
	g := buildGraph([]testEdge{{1, 2, 10}, {2, 3, 4}})
	e := New(g, testOptions(2, 1), capacity.Linear(), nil)
	e.Start()
	defer e.Close()
	total, _ := e.RunSweep(1)
	if err := e.CheckCorrectness(total); err != nil {
		t.Fatal(err)
	}
	if err := e.CheckCorrectness(total + 1); !errors.Is(err, ErrInconsistent) {
		t.Error("expected inconsistency, got ", err)
	}
}

func Test_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	var last int64
	err := Run(buildGraph([]testEdge{{1, 2, 3}, {2, 3, 4}, {3, 1, 5}}), testOptions(2, 2), capacity.Linear(), m, func(_ uint32, total int64) {
		last = total
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.Sweeps); got != 3 {
		t.Error("sweeps ", got)
	}
	if got := testutil.ToFloat64(m.LastSweepWeight); got != float64(last) || last != 12 {
		t.Error("last sweep weight ", got, " emitted ", last)
	}
	if got := testutil.ToFloat64(m.Rounds); got < 3 {
		t.Error("rounds ", got)
	}
	if got := testutil.CollectAndCount(m.SweepDuration); got != 1 {
		t.Error("duration histogram series ", got)
	}
}

func Test_StartClose(t *testing.T) {
	g := buildGraph([]testEdge{{1, 2, 1}})
	e := New(g, testOptions(6, 0), capacity.Linear(), nil)
	e.Start()
	e.Close()
	e.Close()
	if !e.closed || !e.shutdown {
		t.Error("engine not shut down")
	}
}
