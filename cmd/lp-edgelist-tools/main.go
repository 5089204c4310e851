package main

import (
	"bufio"
	"flag"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

type rawEdge struct {
	Src    graph.RawType
	Dst    graph.RawType
	Weight uint32
}

// Collects parsed edges, dropping self loops and (optionally) repeats of an undirected pair.
type edgeList struct {
	Edges      []rawEdge
	seen       map[[2]graph.RawType]struct{}
	dedup      bool
	SelfLoops  uint64
	Duplicates uint64
}

func newEdgeList(dedup bool) *edgeList {
	return &edgeList{seen: make(map[[2]graph.RawType]struct{}), dedup: dedup}
}

func (l *edgeList) AddEdge(src graph.RawType, dst graph.RawType, weight uint32) {
	if src == dst {
		l.SelfLoops++
		return
	}
	if l.dedup {
		key := [2]graph.RawType{utils.Min(src, dst), utils.Max(src, dst)}
		if _, ok := l.seen[key]; ok {
			l.Duplicates++
			return
		}
		l.seen[key] = struct{}{}
	}
	l.Edges = append(l.Edges, rawEdge{src, dst, weight})
}

// Divides every weight by shiftWeight and removes edges that fall to zero. Zero disables.
func shiftWeights(edges []rawEdge, shiftWeight uint32) []rawEdge {
	if shiftWeight == 0 {
		return edges
	}
	kept := edges[:0]
	for _, e := range edges {
		if e.Weight /= shiftWeight; e.Weight > 0 {
			kept = append(kept, e)
		}
	}
	return kept
}

// Replaces every weight with a random one in [1, maxWeight].
func randomWeights(edges []rawEdge, maxWeight uint32, rng *rand.Rand) {
	for i := range edges {
		edges[i].Weight = 1 + uint32(rng.Int63n(int64(maxWeight)))
	}
}

// Heaviest first, ties broken the way a matching would see them.
func sortByWeight(edges []rawEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		return utils.Max(edges[i].Src, edges[i].Dst) > utils.Max(edges[j].Src, edges[j].Dst)
	})
}

func writeEdges(w io.Writer, edges []rawEdge) error {
	out := bufio.NewWriter(w)
	buf := make([]byte, 0, 40)
	for _, e := range edges {
		buf = strconv.AppendUint(buf[:0], uint64(e.Src), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(e.Dst), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(e.Weight), 10)
		buf = append(buf, '\n')
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return out.Flush()
}

// Writes edges to the named file, or to stdout for "-".
func writeOutput(name string, edges []rawEdge) error {
	if name == "-" {
		return writeEdges(os.Stdout, edges)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = writeEdges(f, edges); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Prepares an edge list for lp-bmatch: drops self loops and duplicate pairs, then
// reweights, and shuffles or sorts.
func main() {
	gPtr := flag.String("g", "data/test.txt", "Graph file")
	oPtr := flag.String("o", "", "Output file. Defaults to the graph file with a .shuffled or .sorted suffix. Use - for stdout.")
	sortPtr := flag.Bool("sort", false, "Sort by weight (heaviest first) instead of default shuffle.")
	swPtr := flag.Uint("sw", 0, "Divide the weight of each edge by this number then remove edges with a weight of 0. Set to 0 to disable this.")
	rwPtr := flag.Uint("rw", 0, "Replace weights with random weights in [1, rw]. Set to 0 to keep input weights.")
	dedupPtr := flag.Bool("dedup", true, "Keep only the first edge of each undirected pair.")
	seedPtr := flag.Int64("seed", 0, "Random seed. 0 uses the current time.")
	debugPtr := flag.Int("debug", 0, "Adds extra debug output.")
	flag.Parse()
	utils.SetLevel(*debugPtr)

	seed := *seedPtr
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	list := newEdgeList(*dedupPtr)
	m1 := time.Now()
	file, err := os.Open(*gPtr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open graph")
	}
	err = graph.ReadEdges(file, list)
	file.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read graph")
	}
	log.Info().Msg("Read " + utils.V(len(list.Edges)) + " edges in (ms) " + utils.V(time.Since(m1).Milliseconds()) +
		", dropped self loops " + utils.V(list.SelfLoops) + " duplicates " + utils.V(list.Duplicates))

	edges := shiftWeights(list.Edges, uint32(*swPtr))
	if *rwPtr > 0 {
		randomWeights(edges, uint32(*rwPtr), rng)
	}

	suffix := ".shuffled"
	if *sortPtr {
		log.Info().Msg("Sorting...")
		sortByWeight(edges)
		suffix = ".sorted"
	} else {
		log.Info().Msg("Shuffling...")
		rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	}

	outName := *oPtr
	if outName == "" {
		outName = *gPtr + suffix
	}
	log.Info().Msg("Writing edges: " + utils.V(len(edges)))

	if err := writeOutput(outName, edges); err != nil {
		log.Fatal().Err(err).Msg("Error writing edges")
	}
}
