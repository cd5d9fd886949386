package cluster

import (
	"github.com/pasid-sim/pasid-sim/sim"
)

// newSingleTierConfig routes n messages through one dispatcher (2000) with a
// pool of workers (2001..) that return straight to the source.
func newSingleTierConfig(n, workers int, meanMs, sdMs float64) DeploymentConfig {
	return DeploymentConfig{
		Seed:   42,
		Source: sim.SourceConfig{NumMessages: n, FirstHopID: 2000},
		Dispatchers: []sim.DispatcherConfig{{
			ID:            2000,
			QueueCapacity: 5,
			ForwardToID:   sim.DefaultSourceID,
			Workers: &sim.WorkerPoolConfig{
				Count:               workers,
				ServiceTimeMeanMs:   meanMs,
				ServiceTimeStdDevMs: sdMs,
			},
		}},
	}
}

// newTwoTierConfig chains two dispatcher tiers (2000 and 3000), each with two
// workers, before returning to the source.
func newTwoTierConfig(n int, meanMs, sdMs, gapMs float64) DeploymentConfig {
	pool := func() *sim.WorkerPoolConfig {
		return &sim.WorkerPoolConfig{Count: 2, ServiceTimeMeanMs: meanMs, ServiceTimeStdDevMs: sdMs}
	}
	return DeploymentConfig{
		Seed:   7,
		Source: sim.SourceConfig{NumMessages: n, FirstHopID: 2000, ArrivalDelayMs: gapMs},
		Dispatchers: []sim.DispatcherConfig{
			{ID: 2000, QueueCapacity: 5, ForwardToID: 3000, Workers: pool()},
			{ID: 3000, QueueCapacity: 5, ForwardToID: sim.DefaultSourceID, Workers: pool()},
		},
	}
}
