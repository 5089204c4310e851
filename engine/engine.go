package engine

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/bmatch/enforce"
	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

// Counters for one sweep value.
type SweepStats struct {
	Rounds    uint64
	Marked    uint64 // Sum of work list sizes over every round after the first.
	Proposals uint64
	Evictions uint64
}

// Runs proposal rounds over a fixed graph with a pool of threads. Thread 0 is the calling
// goroutine, which coordinates between phases and does a worker's share of each phase;
// the others are started by Start and live until Close.
type Engine struct {
	g       *graph.Graph
	policy  graph.CapacityPolicy
	metrics *Metrics
	barrier *PhaseBarrier
	workers []*worker
	wg      sync.WaitGroup

	threads        uint32
	localQueueSize uint32
	flushThreshold int64

	result     atomic.Int64
	markedLock utils.SpinLock
	marked     []uint32 // Filled during propose; becomes the next round's work list.
	round      []uint32 // Work list of the current round.

	// Written by the coordinator only while workers wait at a gate.
	sweep     uint32
	doInit    bool
	firstPass bool
	shutdown  bool

	started bool
	closed  bool
}

// Prepares an engine for g. Sorts g's adjacency lists if that has not been done.
func New(g *graph.Graph, opts graph.GraphOptions, policy graph.CapacityPolicy, metrics *Metrics) *Engine {
	threads := utils.Max(opts.NumThreads, 1)
	if opts.Mutual {
		g.Credit = graph.CreditMutual
	} else {
		g.Credit = graph.CreditAny
	}
	if !g.Sorted() {
		g.SortNeighbours(threads)
	}
	e := &Engine{
		g:              g,
		policy:         policy,
		metrics:        metrics,
		barrier:        NewPhaseBarrier(threads),
		threads:        threads,
		localQueueSize: utils.Max(opts.LocalQueueSize, 1),
		flushThreshold: opts.ResultFlushThreshold,
	}
	if e.flushThreshold <= 0 {
		e.flushThreshold = graph.DEFAULT_RESULT_FLUSH_THRESHOLD
	}
	e.workers = make([]*worker, threads)
	for t := uint32(0); t < threads; t++ {
		e.workers[t] = newWorker(e, t)
	}
	return e
}

// Starts the worker threads. They wait at the init gate until the first sweep.
func (e *Engine) Start() {
	enforce.ENFORCE(!e.started, "engine already started")
	e.started = true
	e.wg.Add(int(e.threads) - 1)
	for t := uint32(1); t < e.threads; t++ {
		go e.workerLoop(e.workers[t])
	}
}

// Stops and joins the worker threads.
func (e *Engine) Close() {
	if !e.started || e.closed {
		return
	}
	e.closed = true
	e.barrier.AwaitArrivals(PhaseInit)
	e.shutdown = true
	e.barrier.Release(PhaseInit)
	e.wg.Wait()
}

func (e *Engine) workerLoop(w *worker) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.wg.Done()

	for {
		e.barrier.ArriveAndWait(PhaseInit)
		if e.shutdown {
			return
		}
		if e.doInit {
			e.g.ResetPartition(w.tidx, e.threads, e.sweep, e.policy)
		}
		e.barrier.ArriveAndWait(PhasePropose)
		w.sweepVertices(e.round, e.firstPass)
		e.barrier.ArriveAndWait(PhaseSettle)
	}
}

// Solves the graph for one sweep value and returns the total matched weight.
// The shared total is reset, so sweeps are independent of each other.
func (e *Engine) RunSweep(sweep uint32) (total int64, stats SweepStats) {
	enforce.ENFORCE(e.started && !e.closed, "engine not running")
	b := e.barrier
	coord := e.workers[0]

	b.AwaitArrivals(PhaseInit)
	e.sweep, e.doInit, e.firstPass = sweep, true, true
	e.round = e.round[:0]
	b.Release(PhaseInit)
	e.g.ResetPartition(coord.tidx, e.threads, sweep, e.policy)

	for e.firstPass || len(e.round) > 0 {
		stats.Rounds++
		if !e.firstPass {
			stats.Marked += uint64(len(e.round))
		}
		b.AwaitArrivals(PhasePropose)
		b.Release(PhasePropose)

		coord.sweepVertices(e.round, e.firstPass)

		b.AwaitArrivals(PhaseSettle)
		e.settle(&stats)
		b.Release(PhaseSettle)

		if len(e.round) > 0 {
			b.AwaitArrivals(PhaseInit)
			b.Release(PhaseInit)
		}
	}
	total = e.result.Swap(0)
	log.Trace().Msg("Sweep " + utils.V(sweep) + " rounds " + utils.V(stats.Rounds) + " proposals " + utils.V(stats.Proposals) + " evictions " + utils.V(stats.Evictions))
	return total, stats
}

// Coordinator only, with every worker waiting at the settle gate.
func (e *Engine) settle(stats *SweepStats) {
	e.doInit = false
	e.firstPass = false
	e.round, e.marked = e.marked, e.round[:0]
	e.g.SettleVertices(e.round)
	for _, w := range e.workers {
		stats.Proposals += w.proposals
		stats.Evictions += w.evictions
		w.proposals, w.evictions = 0, 0
	}
}
