package graph

import (
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/ScottSallinen/bmatch/enforce"
	"github.com/ScottSallinen/bmatch/utils"
)

// Maps a sweep value and a vertex raw ID to that vertex's capacity. Must be pure.
type CapacityPolicy interface {
	Capacity(sweep uint32, rawId RawType) uint32
}

// Graph store for b-matching. Built single threaded, then never resized.
type Graph struct {
	VertexMap  map[RawType]uint32 // Raw to internal.
	Vertices   []Vertex
	EdgeStates []EdgeState
	Credit     CreditMode // How edge state transitions are credited to the total.
	sorted     bool
	selfLoops  uint64
}

func NewGraph() *Graph {
	return &Graph{VertexMap: make(map[RawType]uint32), sorted: true}
}

func (g *Graph) NumVertices() int {
	return len(g.Vertices)
}

func (g *Graph) NumEdges() int {
	return len(g.EdgeStates)
}

// Returns the internal index of a raw ID, creating the vertex on first sight.
// The order of first sight decides internal indices, so this must stay single threaded.
func (g *Graph) normalize(raw RawType) uint32 {
	if vidx, ok := g.VertexMap[raw]; ok {
		return vidx
	}
	vidx := uint32(len(g.Vertices))
	g.VertexMap[raw] = vidx
	g.Vertices = append(g.Vertices, Vertex{RawId: raw})
	return vidx
}

// Adds the undirected edge (src, dst). Self loops are dropped: a vertex cannot propose to itself.
func (g *Graph) AddEdge(src RawType, dst RawType, weight uint32) {
	if src == dst {
		g.selfLoops++
		log.Trace().Msg("Dropping self loop on " + src.String())
		return
	}
	sidx := g.normalize(src)
	didx := g.normalize(dst)
	eid := uint32(len(g.EdgeStates))
	enforce.ENFORCE(int(eid) == len(g.EdgeStates), "edge count overflow")

	g.EdgeStates = append(g.EdgeStates, EdgeState{owner: sidx})
	g.Vertices[sidx].OutEdges = append(g.Vertices[sidx].OutEdges, Edge{Didx: didx, Weight: weight, Eid: eid, DstRaw: dst})
	g.Vertices[didx].OutEdges = append(g.Vertices[didx].OutEdges, Edge{Didx: sidx, Weight: weight, Eid: eid, DstRaw: src})
	g.sorted = false
}

func (g *Graph) SelfLoops() uint64 {
	return g.selfLoops
}

func (g *Graph) Sorted() bool {
	return g.sorted
}

func compareEdges(a, b Edge) int {
	if a.Better(&b) {
		return -1
	} else if b.Better(&a) {
		return 1
	}
	return 0
}

// Orders every adjacency list by proposal preference (heavier first, then larger neighbour raw ID),
// so a proposer can stop as soon as its capacity is reached.
func (g *Graph) SortNeighbours(threads uint32) {
	g.ParallelFor(threads, func(start, end uint32) {
		for vidx := start; vidx < end; vidx++ {
			slices.SortStableFunc(g.Vertices[vidx].OutEdges, compareEdges)
		}
	})
	g.sorted = true
}

// Runs f over the vertex pieces of [0, |V|) in parallel, one goroutine per piece.
func (g *Graph) ParallelFor(threads uint32, f func(start, end uint32)) {
	threads = utils.Max(threads, 1)
	n := uint32(len(g.Vertices))
	var wg sync.WaitGroup
	wg.Add(int(threads))
	for t := uint32(0); t < threads; t++ {
		go func(tidx uint32) {
			defer wg.Done()
			start, end := utils.PieceRange(n, tidx, threads)
			f(start, end)
		}(t)
	}
	wg.Wait()
}

// Resets the piece of vertices and edge states owned by tidx for a new sweep value.
// Each of the threads calls this with its own tidx; together they cover the whole graph.
func (g *Graph) ResetPartition(tidx uint32, threads uint32, sweep uint32, policy CapacityPolicy) {
	start, end := utils.PieceRange(uint32(len(g.Vertices)), tidx, threads)
	for vidx := start; vidx < end; vidx++ {
		v := &g.Vertices[vidx]
		v.Reset(policy.Capacity(sweep, v.RawId))
	}
	start, end = utils.PieceRange(uint32(len(g.EdgeStates)), tidx, threads)
	for eid := start; eid < end; eid++ {
		g.EdgeStates[eid].clear()
	}
}

// Sets vidx's bit on the edge. Reports whether the edge's weight should now be credited.
func (g *Graph) Activate(vidx uint32, eid uint32) bool {
	return g.EdgeStates[eid].activate(vidx, g.Credit)
}

// Clears vidx's bit on the edge. Reports whether the edge's weight should now be debited.
func (g *Graph) Deactivate(vidx uint32, eid uint32) bool {
	return g.EdgeStates[eid].deactivate(vidx, g.Credit)
}

// Whether vidx's proposal along the edge is currently accepted.
func (g *Graph) IsActive(vidx uint32, eid uint32) bool {
	return g.EdgeStates[eid].isSet(vidx)
}

func (g *Graph) EdgeCredited(eid uint32) bool {
	return g.EdgeStates[eid].credited(g.Credit)
}

// Settles the vertices marked during a round, so they can propose again in the next one.
func (g *Graph) SettleVertices(list []uint32) {
	for _, vidx := range list {
		g.Vertices[vidx].Settle()
	}
}

// Recomputes the credited weight from edge states. Not thread safe; for use between sweeps.
func (g *Graph) CreditedWeight() (total int64) {
	for vidx := range g.Vertices {
		for _, e := range g.Vertices[vidx].OutEdges {
			// Each undirected edge appears twice; count it from its owner's record only.
			if g.EdgeStates[e.Eid].owner == uint32(vidx) && g.EdgeCredited(e.Eid) {
				total += int64(e.Weight)
			}
		}
	}
	return total
}

// Debug func: the raw IDs of the neighbours whose proposals vidx currently accepts.
func (g *Graph) SuitorsOf(raw RawType) (suitors []RawType) {
	vidx, ok := g.VertexMap[raw]
	if !ok {
		return nil
	}
	for _, p := range g.Vertices[vidx].Suitors.Snapshot() {
		suitors = append(suitors, p.FromRaw)
	}
	slices.Sort(suitors)
	return suitors
}

func (g *Graph) ComputeGraphStats() {
	maxDegree := 0
	degrees := make([]int, len(g.Vertices))
	numEdges := len(g.EdgeStates)

	for vidx := range g.Vertices {
		degrees[vidx] = len(g.Vertices[vidx].OutEdges)
		maxDegree = utils.Max(maxDegree, degrees[vidx])
	}

	log.Debug().Msg("----GraphStats----")
	log.Debug().Msg("Vertices " + utils.V(len(g.Vertices)))
	log.Debug().Msg("Edges " + utils.V(numEdges))
	if g.selfLoops > 0 {
		log.Debug().Msg("Dropped self loops " + utils.V(g.selfLoops))
	}
	if len(degrees) > 0 {
		log.Debug().Msg("MaxDeg " + utils.V(maxDegree))
		log.Debug().Msg("MedianDeg " + utils.V(utils.Median(degrees)))
	}
	log.Debug().Msg("----EndStats----")
}
