package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

// Solves g for every sweep value from 0 to opts.SweepLimit in order, handing each total to emit.
// A graph without edges emits zeros without starting any threads.
func Run(g *graph.Graph, opts graph.GraphOptions, policy graph.CapacityPolicy, metrics *Metrics, emit func(sweep uint32, total int64)) error {
	if g.NumEdges() == 0 {
		log.Info().Msg("Empty graph, nothing to match")
		for sweep := uint64(0); sweep <= uint64(opts.SweepLimit); sweep++ {
			emit(uint32(sweep), 0)
		}
		return nil
	}

	e := New(g, opts, policy, metrics)
	e.Start()
	defer e.Close()

	var all SweepStats
	for sweep := uint64(0); sweep <= uint64(opts.SweepLimit); sweep++ {
		start := time.Now()
		total, stats := e.RunSweep(uint32(sweep))
		elapsed := time.Since(start)
		metrics.observeSweep(stats, total, elapsed)

		if opts.CheckCorrectness {
			if err := e.CheckCorrectness(total); err != nil {
				return fmt.Errorf("sweep %d: %w", sweep, err)
			}
		}
		log.Debug().Msg("Sweep " + utils.V(sweep) + " total " + utils.V(total) + " rounds " + utils.V(stats.Rounds) + " in " + utils.V(elapsed.Milliseconds()) + "ms")
		emit(uint32(sweep), total)

		all.Rounds += stats.Rounds
		all.Proposals += stats.Proposals
		all.Evictions += stats.Evictions
	}
	log.Info().Msg("Sweeps: " + utils.V(uint64(opts.SweepLimit)+1) + " Rounds: " + utils.V(all.Rounds) + " Proposals: " + utils.V(all.Proposals) + " Evictions: " + utils.V(all.Evictions))
	return nil
}
