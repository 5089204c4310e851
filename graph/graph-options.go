package graph

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ScottSallinen/bmatch/utils"
)

type GraphOptions struct {
	Name                 string `yaml:"graph"`                  // Input edge list; "-" for stdin.
	NumThreads           uint32 `yaml:"threads"`                // Worker thread count, including the coordinating thread.
	SweepLimit           uint32 `yaml:"sweep_limit"`            // Sweep values run from 0 to SweepLimit inclusive.
	Policy               string `yaml:"policy"`                 // Name of the capacity policy.
	PolicyParam          uint32 `yaml:"policy_param"`           // Parameter of the capacity policy (clamp maximum, modulus).
	Mutual               bool   `yaml:"mutual"`                 // Credit an edge only while both endpoints hold it.
	LocalQueueSize       uint32 `yaml:"local_queue_size"`       // Marked vertices buffered per thread before a flush to the shared list.
	ResultFlushThreshold int64  `yaml:"result_flush_threshold"` // Magnitude of a thread's weight delta that forces a flush to the shared total.
	DebugLevel           uint8  `yaml:"debug"`                  // 0 info, 1 debug, 2 trace.
	CheckCorrectness     bool   `yaml:"check"`                  // Verify invariants after every sweep (slow).
	NoColour             bool   `yaml:"no_colour"`              // Disable colour in log output.
	HttpAddr             string `yaml:"http"`                   // If set, serve /metrics and /debug/pprof on this address.
}

const (
	DEFAULT_LOCAL_QUEUE_SIZE       = 256
	DEFAULT_RESULT_FLUSH_THRESHOLD = 1_000_000_000
	DEFAULT_POLICY                 = "linear"
)

var ErrUsage = errors.New("usage")

// Logical cores as reported by cpuid, falling back to the runtime's view.
func DefaultThreads() uint32 {
	if cpuid.CPU.LogicalCores > 0 {
		return uint32(cpuid.CPU.LogicalCores)
	}
	return uint32(runtime.NumCPU())
}

func DefaultOptions() GraphOptions {
	return GraphOptions{
		NumThreads:           DefaultThreads(),
		Policy:               DEFAULT_POLICY,
		LocalQueueSize:       DEFAULT_LOCAL_QUEUE_SIZE,
		ResultFlushThreshold: DEFAULT_RESULT_FLUSH_THRESHOLD,
	}
}

// Reads a YAML options file over opts. Unknown keys are an error.
func LoadConfigFile(path string, opts *GraphOptions) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(opts); err != nil && err != io.EOF {
		return fmt.Errorf("YAML syntax error in config %s: %w", path, err)
	}
	return nil
}

// Parses command line arguments (without the program name). Accepts either flags, or the
// positional form: thread-count inputfile b-limit. Explicit flags override a -config file.
func ParseOptions(args []string, output io.Writer) (opts GraphOptions, err error) {
	fs := flag.NewFlagSet("lp-bmatch", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: lp-bmatch [flags] thread-count inputfile b-limit")
		fmt.Fprintln(output, "   or: lp-bmatch -t threads -g inputfile -b b-limit [flags]")
		fs.PrintDefaults()
	}

	defaults := DefaultOptions()
	configPtr := fs.String("config", "", "YAML file with options. Flags given explicitly take precedence.")
	graphPtr := fs.String("g", "", "Graph file (edge list: src dst [weight]). Use - for stdin.")
	threadPtr := fs.Int("t", int(defaults.NumThreads), "Thread count for the algorithm.")
	limitPtr := fs.Int("b", 0, "Sweep limit: run every sweep value from 0 to b inclusive.")
	policyPtr := fs.String("policy", defaults.Policy, "Capacity policy: linear, clamp, mod.")
	paramPtr := fs.Uint("pp", 0, "Capacity policy parameter (maximum for clamp, modulus for mod).")
	mutualPtr := fs.Bool("mutual", false, "Credit an edge only while both endpoints accept each other.")
	lqPtr := fs.Uint("lq", uint(defaults.LocalQueueSize), "Marked vertices buffered per thread before flushing to the shared list.")
	flushPtr := fs.Int64("flush", defaults.ResultFlushThreshold, "Weight delta magnitude that forces a thread to flush into the shared total.")
	checkPtr := fs.Bool("c", false, "Check correctness after every sweep.")
	debugPtr := fs.Int("debug", 0, "Adds extra debug output. Level 0 for info, 1 for debug, 2 for trace.")
	colourPtr := fs.Bool("nc", false, "Removes the colouring from the log output.")
	httpPtr := fs.String("http", "", "If set, serves /metrics and /debug/pprof on the given address:port. E.g. \"0.0.0.0:6060\".")

	if err = fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	opts = defaults
	if *configPtr != "" {
		if err = LoadConfigFile(*configPtr, &opts); err != nil {
			return opts, err
		}
	}

	var threads, limit int64
	var threadsSet, limitSet bool
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "g":
			opts.Name = *graphPtr
		case "t":
			threads, threadsSet = int64(*threadPtr), true
		case "b":
			limit, limitSet = int64(*limitPtr), true
		case "policy":
			opts.Policy = *policyPtr
		case "pp":
			opts.PolicyParam = uint32(*paramPtr)
		case "mutual":
			opts.Mutual = *mutualPtr
		case "lq":
			opts.LocalQueueSize = uint32(*lqPtr)
		case "flush":
			opts.ResultFlushThreshold = *flushPtr
		case "c":
			opts.CheckCorrectness = *checkPtr
		case "debug":
			if *debugPtr < 0 {
				parseErr = fmt.Errorf("%w: invalid debug level %d", ErrUsage, *debugPtr)
			}
			opts.DebugLevel = uint8(*debugPtr)
		case "nc":
			opts.NoColour = *colourPtr
		case "http":
			opts.HttpAddr = *httpPtr
		}
	})
	if parseErr != nil {
		return opts, parseErr
	}

	switch fs.NArg() {
	case 0:
	case 3:
		if threads, err = strconv.ParseInt(fs.Arg(0), 10, 64); err != nil {
			return opts, fmt.Errorf("%w: thread count %q", ErrUsage, fs.Arg(0))
		}
		opts.Name = fs.Arg(1)
		if limit, err = strconv.ParseInt(fs.Arg(2), 10, 64); err != nil {
			return opts, fmt.Errorf("%w: b-limit %q", ErrUsage, fs.Arg(2))
		}
		threadsSet, limitSet = true, true
	default:
		return opts, fmt.Errorf("%w: expected 3 positional arguments, got %d", ErrUsage, fs.NArg())
	}

	if threadsSet {
		if threads <= 0 || threads > 1<<16 {
			return opts, fmt.Errorf("%w: invalid thread count %d", ErrUsage, threads)
		}
		opts.NumThreads = uint32(threads)
	}
	if limitSet {
		if limit < 0 || limit >= 1<<32-1 {
			return opts, fmt.Errorf("%w: invalid b-limit %d", ErrUsage, limit)
		}
		opts.SweepLimit = uint32(limit)
	}
	if opts.Name == "" {
		return opts, fmt.Errorf("%w: no graph given", ErrUsage)
	}
	if opts.NumThreads == 0 {
		return opts, fmt.Errorf("%w: invalid thread count 0", ErrUsage)
	}
	if opts.LocalQueueSize == 0 {
		opts.LocalQueueSize = 1
	}
	if opts.ResultFlushThreshold <= 0 {
		opts.ResultFlushThreshold = DEFAULT_RESULT_FLUSH_THRESHOLD
	}
	return opts, nil
}

// Points logging at out with the configured level and colour, and logs the machine.
func SetupLogging(opts GraphOptions, out io.Writer) {
	utils.SetLoggerConsole(out, opts.NoColour)
	utils.SetLevel(int(opts.DebugLevel))

	if opts.NumThreads > uint32(runtime.NumCPU()) {
		log.Warn().Msg("Thread count is greater than CPU count? Spinning threads will contend for processors.")
	}
	log.Debug().Msg("CPU: " + cpuid.CPU.BrandName + " physical cores: " + utils.V(cpuid.CPU.PhysicalCores) + " logical cores: " + utils.V(cpuid.CPU.LogicalCores))
}
