package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/bmatch/capacity"
	"github.com/ScottSallinen/bmatch/engine"
	"github.com/ScottSallinen/bmatch/graph"
	"github.com/ScottSallinen/bmatch/utils"
)

// Serves /metrics from reg, and pprof from the default mux.
func serveHttp(addr string, reg *prometheus.Registry) {
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	go func() {
		log.Info().Msg("http Starting on " + addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error().Err(err).Msg("http Failed to start.")
		}
	}()
}

// Solves the graph named by args, writing one total weight per sweep value to stdout and
// logs to stderr. Returns the process exit status.
func run(args []string, stdout io.Writer, stderr io.Writer) int {
	options, err := graph.ParseOptions(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	} else if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "usage: lp-bmatch [flags] thread-count inputfile b-limit")
		return 1
	}
	graph.SetupLogging(options, stderr)

	policy, err := capacity.Lookup(options.Policy, options.PolicyParam)
	if err != nil {
		log.Error().Err(err).Msg("Invalid capacity policy.")
		return 1
	}

	var metrics *engine.Metrics
	if options.HttpAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = engine.NewMetrics(reg)
		serveHttp(options.HttpAddr, reg)
	}

	var watch utils.Watch
	watch.Start()

	g, err := graph.LoadGraph(options.Name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load graph.")
		return 1
	}
	log.Info().Msg("Input: " + utils.V(watch.Lap("input").Milliseconds()) + "ms, vertices " + utils.V(g.NumVertices()) + " edges " + utils.V(g.NumEdges()))
	if options.DebugLevel > 0 {
		g.ComputeGraphStats()
	}

	g.SortNeighbours(options.NumThreads)
	log.Info().Msg("Sort: " + utils.V(watch.Lap("sort").Milliseconds()) + "ms")

	out := bufio.NewWriter(stdout)
	buf := make([]byte, 0, 24)
	err = engine.Run(g, options, policy, metrics, func(_ uint32, total int64) {
		buf = strconv.AppendInt(buf[:0], total, 10)
		buf = append(buf, '\n')
		out.Write(buf)
	})
	log.Info().Msg("Alg: " + utils.V(watch.Lap("alg").Milliseconds()) + "ms, total " + utils.V(watch.Elapsed().Milliseconds()) + "ms")
	log.Trace().Msg(", input, " + utils.F("%.3f", watch.Total("input").Seconds()*1000) + ", sort, " + utils.F("%.3f", watch.Total("sort").Seconds()*1000) +
		", alg, " + utils.F("%.3f", watch.Total("alg").Seconds()*1000))
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed.")
		return 1
	}
	if options.DebugLevel >= 2 {
		utils.MemoryStats()
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
