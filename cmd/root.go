package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/pasid-sim/pasid-sim/sim"
	"github.com/pasid-sim/pasid-sim/sim/cluster"
	"github.com/pasid-sim/pasid-sim/sim/ledger"
	"github.com/pasid-sim/pasid-sim/sim/trace"
)

var (
	configPath    string // YAML topology file
	propertiesDir string // Directory of .properties files
	seed          int64  // Overrides the topology seed when set
	numMessages   int    // Overrides source.num_messages when set
	logLevel      string // Log verbosity level
	traceLevel    string // Dispatch decision tracing
	ledgerOut     string // Per-message ledger CSV path, "auto" for a generated name
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pasid-sim",
	Short: "Concurrent message-passing simulator for multi-tier dispatcher/worker topologies",
}

// runCmd builds the topology, runs it and prints the report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadDeployment(cmd)
		if err != nil {
			logrus.Fatalf("Failed to load topology: %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}

		cs, err := cluster.NewClusterSimulator(cfg, cluster.Options{TraceLevel: trace.TraceLevel(traceLevel)})
		if err != nil {
			logrus.Fatalf("Invalid topology: %v", err)
		}

		var lw *ledger.CSVWriter
		if ledgerOut != "" {
			path := ledgerOut
			if path == "auto" {
				path = ""
			}
			lw = ledger.NewCSVWriter(path, cs.RunID())
			if err := lw.Init(); err != nil {
				logrus.Fatalf("Failed to open ledger: %v", err)
			}
			cs.Source().OnCollected = func(msg *sim.Message) {
				if err := lw.Write(msg); err != nil {
					logrus.Errorf("ledger: %v", err)
				}
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		logrus.Infof("Starting run %s: %d message(s), seed %d", cs.RunID(), cfg.Source.NumMessages, cfg.Seed)
		report, err := cs.Run(ctx)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		report.Print(os.Stdout)
		if cs.Trace() != nil {
			printTraceSummary(os.Stdout, trace.Summarize(cs.Trace()))
		}
		if lw != nil {
			if err := lw.Close(); err != nil {
				logrus.Fatalf("Failed to write ledger: %v", err)
			}
			logrus.Infof("Ledger written to %s", lw.Path())
		}

		logrus.Info("Simulation complete.")
	},
}

// validateCmd loads and checks the topology without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the topology and print its wiring",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadDeployment(cmd)
		if err != nil {
			logrus.Fatalf("Failed to load topology: %v", err)
		}
		expanded := cfg.Expand()
		if err := expanded.Validate(); err != nil {
			logrus.Fatalf("Invalid topology: %v", err)
		}
		printWiring(os.Stdout, expanded)
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadDeployment reads the topology from exactly one of --config and
// --properties-dir and applies the CLI overrides.
func loadDeployment(cmd *cobra.Command) (cluster.DeploymentConfig, error) {
	var (
		cfg cluster.DeploymentConfig
		err error
	)
	switch {
	case configPath != "" && propertiesDir != "":
		return cfg, fmt.Errorf("%w: --config and --properties-dir are mutually exclusive", sim.ErrInvalidConfiguration)
	case configPath != "":
		cfg, err = loadTopologyFile(configPath)
	case propertiesDir != "":
		cfg, err = loadPropertiesDir(propertiesDir)
	default:
		return cfg, fmt.Errorf("%w: one of --config or --properties-dir is required", sim.ErrInvalidConfiguration)
	}
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("num-messages") {
		cfg.Source.NumMessages = numMessages
	}
	return cfg, nil
}

// printWiring lists every component of an expanded config and where it sends.
func printWiring(w io.Writer, dc cluster.DeploymentConfig) {
	src := dc.Source
	srcID := src.ID
	if srcID == 0 {
		srcID = sim.DefaultSourceID
	}
	process := src.ArrivalProcess
	if process == "" {
		process = sim.ArrivalConstant
	}
	fmt.Fprintln(w, "=== Topology ===")
	fmt.Fprintf(w, "Seed       : %d\n", dc.Seed)
	fmt.Fprintf(w, "Source     %d -> %d (%d messages, %s arrivals, mean gap %.2f ms)\n",
		srcID, src.FirstHopID, src.NumMessages, process, src.ArrivalDelayMs)
	for _, d := range dc.Dispatchers {
		policy, overflow := d.Policy, d.Overflow
		if policy == "" {
			policy = "round-robin"
		}
		if overflow == "" {
			overflow = sim.OverflowBlock
		}
		fmt.Fprintf(w, "Dispatcher %d -> %s (capacity %d, %s, %s)\n",
			d.ID, joinIDs(d.ChildIDs), d.QueueCapacity, policy, overflow)
	}
	for _, wc := range dc.Workers {
		fmt.Fprintf(w, "Worker     %d -> %d (service %.2f ms, sd %.2f ms)\n",
			wc.ID, wc.NextHopID, wc.ServiceTimeMeanMs, wc.ServiceTimeStdDevMs)
	}
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Dispatch Trace ===")
	fmt.Fprintf(w, "Admissions : %d (%d admitted, %d rejected)\n", s.TotalAdmissions, s.AdmittedCount, s.RejectedCount)
	fmt.Fprintf(w, "Dispatches : %d\n", s.TotalDispatches)
	for _, d := range s.Dispatchers() {
		fmt.Fprintf(w, "Dispatcher %d:", d)
		for _, child := range sortedKeys(s.TargetDistribution[d]) {
			fmt.Fprintf(w, " %d=%d", child, s.TargetDistribution[d][child])
		}
		fmt.Fprintln(w)
	}
}

func joinIDs(ids []sim.UnitID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Execute runs the CLI root command
func Execute() {
	// Fatal logs run the atexit handlers so a partial ledger is still flushed.
	logrus.StandardLogger().ExitFunc = atexit.Exit
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "YAML topology file")
		c.Flags().StringVar(&propertiesDir, "properties-dir", "", "Directory of .properties files (source.properties plus one file per component)")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for service-time and arrival sampling (overrides the topology)")
		c.Flags().IntVar(&numMessages, "num-messages", 10, "Number of messages to generate (overrides the topology)")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	}
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Dispatch decision tracing (none, decisions)")
	runCmd.Flags().StringVar(&ledgerOut, "ledger-out", "", "Write every message ledger to this CSV file (\"auto\" picks a name)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
