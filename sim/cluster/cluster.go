package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pasid-sim/pasid-sim/sim"
	"github.com/pasid-sim/pasid-sim/sim/trace"
	"github.com/pasid-sim/pasid-sim/sim/workload"
)

// Options tunes a run without changing the topology.
type Options struct {
	// TraceLevel enables decision tracing. Empty means none.
	TraceLevel trace.TraceLevel
	// OnCollected, when set, receives every finalized message from the
	// source's collector goroutine.
	OnCollected func(msg *sim.Message)
	// OnServed, when set, receives every service delay drawn by any worker.
	// It is called concurrently from the worker goroutines.
	OnServed func(id sim.UnitID, msgID int64, delay time.Duration)
}

// ClusterSimulator wires a DeploymentConfig into running components that
// exchange messages through a shared routing table, and runs them until the
// source has collected every message.
type ClusterSimulator struct {
	config      DeploymentConfig
	table       *sim.RoutingTable
	rng         *sim.PartitionedRNG
	source      *sim.Source
	dispatchers []*sim.Dispatcher
	workers     []*sim.Worker
	trace       *trace.SimulationTrace
	runID       string
	hasRun      bool
	stats       *sim.RunStatistics
}

// NewClusterSimulator expands and validates config, builds every component
// and freezes the routing table. Configuration errors wrap
// sim.ErrInvalidConfiguration.
func NewClusterSimulator(config DeploymentConfig, opts Options) (*ClusterSimulator, error) {
	expanded := config.Expand()
	if err := expanded.Validate(); err != nil {
		return nil, err
	}
	if opts.TraceLevel != "" && !trace.IsValidTraceLevel(string(opts.TraceLevel)) {
		return nil, fmt.Errorf("%w: unknown trace level %q", sim.ErrInvalidConfiguration, opts.TraceLevel)
	}

	c := &ClusterSimulator{
		config: expanded,
		table:  sim.NewRoutingTable(),
		rng:    sim.NewPartitionedRNG(sim.NewSimulationKey(expanded.Seed)),
		runID:  xid.New().String(),
	}
	if opts.TraceLevel == trace.TraceLevelDecisions {
		c.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel})
	}

	src := expanded.Source
	arrivals := workload.NewArrivalSampler(src.ArrivalProcess, src.ArrivalDelayMs, src.ArrivalCV)
	c.source = sim.NewSource(src, c.table, arrivals, c.rng.ForSubsystem(sim.SubsystemSource), c.trace)
	c.source.OnCollected = opts.OnCollected
	if err := c.table.Register(c.source); err != nil {
		return nil, err
	}

	for _, dc := range expanded.Dispatchers {
		d := sim.NewDispatcher(dc, c.table, c.trace)
		if err := c.table.Register(d); err != nil {
			return nil, err
		}
		c.dispatchers = append(c.dispatchers, d)
	}
	for _, wc := range expanded.Workers {
		w := sim.NewWorker(wc, c.table, c.rng.ForSubsystem(sim.SubsystemWorker(wc.ID)))
		w.OnServed = opts.OnServed
		if err := c.table.Register(w); err != nil {
			return nil, err
		}
		c.workers = append(c.workers, w)
	}
	c.table.Freeze()

	logrus.Infof("cluster %s: %d dispatcher(s), %d worker(s), %d message(s) via %d",
		c.runID, len(c.dispatchers), len(c.workers), src.NumMessages, src.FirstHopID)
	return c, nil
}

// Run starts every dispatcher and worker, runs the source to completion,
// then stops the other components and returns the run report.
// Panics if called more than once.
func (c *ClusterSimulator) Run(ctx context.Context) (*sim.Report, error) {
	if c.hasRun {
		panic("ClusterSimulator.Run() called more than once")
	}
	c.hasRun = true

	start := time.Now()
	unitsCtx, stopUnits := context.WithCancel(ctx)
	defer stopUnits()

	g, gctx := errgroup.WithContext(unitsCtx)
	for _, d := range c.dispatchers {
		d := d
		g.Go(func() error { return d.Run(gctx) })
	}
	for _, w := range c.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}

	// A unit failure cancels gctx, which also aborts the source.
	stats, srcErr := c.source.Run(gctx)
	stopUnits()
	unitErr := g.Wait()
	c.stats = stats

	if unitErr != nil {
		return nil, fmt.Errorf("cluster %s: %w", c.runID, unitErr)
	}
	if srcErr != nil {
		if ctx.Err() != nil && errors.Is(srcErr, ctx.Err()) {
			return nil, fmt.Errorf("cluster %s: run interrupted after %d message(s): %w",
				c.runID, stats.Completed(), srcErr)
		}
		return nil, fmt.Errorf("cluster %s: %w", c.runID, srcErr)
	}

	report := stats.Summarize(c.runID)
	report.WallTime = time.Since(start)
	for _, d := range c.dispatchers {
		logrus.Debugf("dispatcher %d: queue high-water %d/%d", d.ID(), d.Queue().HighWater(), d.Queue().Cap())
	}
	return report, nil
}

// RunID returns the identifier of this run.
func (c *ClusterSimulator) RunID() string { return c.runID }

// Config returns the expanded deployment config.
func (c *ClusterSimulator) Config() DeploymentConfig { return c.config }

// Table returns the frozen routing table.
func (c *ClusterSimulator) Table() *sim.RoutingTable { return c.table }

// Source returns the message source.
func (c *ClusterSimulator) Source() *sim.Source { return c.source }

// Dispatchers returns the dispatchers in config order.
func (c *ClusterSimulator) Dispatchers() []*sim.Dispatcher { return c.dispatchers }

// Workers returns the workers in config order, explicit workers first.
func (c *ClusterSimulator) Workers() []*sim.Worker { return c.workers }

// Trace returns the decision trace, or nil when tracing is off.
func (c *ClusterSimulator) Trace() *trace.SimulationTrace { return c.trace }

// Statistics returns the raw samples of the run.
// Panics if called before Run.
func (c *ClusterSimulator) Statistics() *sim.RunStatistics {
	if !c.hasRun {
		panic("ClusterSimulator.Statistics() called before Run()")
	}
	return c.stats
}
