package cluster

import (
	"fmt"
	"sort"

	"github.com/pasid-sim/pasid-sim/sim"
)

// DeploymentConfig describes the whole topology: one source, the dispatcher
// tiers and the standalone workers. It is the top-level structure of the
// YAML topology file and the target of the properties loader.
type DeploymentConfig struct {
	Version     string                 `yaml:"version"`
	Seed        int64                  `yaml:"seed"`
	Source      sim.SourceConfig       `yaml:"source"`
	Dispatchers []sim.DispatcherConfig `yaml:"dispatchers"`
	Workers     []sim.WorkerConfig     `yaml:"workers"`
}

// Expand returns a copy where every dispatcher worker pool has been turned
// into standalone workers at own_id+1..own_id+count, and dispatchers without
// child_ids route to their pool.
func (dc DeploymentConfig) Expand() DeploymentConfig {
	out := dc
	out.Dispatchers = make([]sim.DispatcherConfig, len(dc.Dispatchers))
	out.Workers = make([]sim.WorkerConfig, len(dc.Workers))
	copy(out.Workers, dc.Workers)
	for i, d := range dc.Dispatchers {
		d.ChildIDs = append([]sim.UnitID(nil), d.ChildIDs...)
		if d.Workers != nil && d.Workers.Count > 0 {
			pool := make([]sim.UnitID, 0, d.Workers.Count)
			for k := 1; k <= d.Workers.Count; k++ {
				id := d.ID + sim.UnitID(k)
				pool = append(pool, id)
				out.Workers = append(out.Workers, sim.WorkerConfig{
					ID:                  id,
					NextHopID:           d.ForwardToID,
					ServiceTimeMeanMs:   d.Workers.ServiceTimeMeanMs,
					ServiceTimeStdDevMs: d.Workers.ServiceTimeStdDevMs,
					QueueCapacity:       d.Workers.QueueCapacity,
					RetryIntervalMs:     d.RetryIntervalMs,
				})
			}
			if len(d.ChildIDs) == 0 {
				d.ChildIDs = pool
			}
		}
		out.Dispatchers[i] = d
	}
	return out
}

// Validate checks every component and the wiring between them. It expects an
// expanded config. Errors wrap sim.ErrInvalidConfiguration.
func (dc DeploymentConfig) Validate() error {
	if err := dc.Source.Validate(); err != nil {
		return err
	}
	if len(dc.Dispatchers) == 0 {
		return invalid("at least one dispatcher is required")
	}

	kinds := make(map[sim.UnitID]string)
	claim := func(id sim.UnitID, kind string) error {
		if prev, ok := kinds[id]; ok {
			return invalid("id %d used by both %s and %s", id, prev, kind)
		}
		kinds[id] = kind
		return nil
	}
	if err := claim(dc.sourceID(), "source"); err != nil {
		return err
	}
	for _, d := range dc.Dispatchers {
		if err := d.Validate(); err != nil {
			return err
		}
		if err := claim(d.ID, fmt.Sprintf("dispatcher %d", d.ID)); err != nil {
			return err
		}
	}
	for _, w := range dc.Workers {
		if err := w.Validate(); err != nil {
			return err
		}
		if err := claim(w.ID, fmt.Sprintf("worker %d", w.ID)); err != nil {
			return err
		}
	}

	// Every referenced id must be registered, otherwise the first send to it
	// would fail with ErrUnknownDestination mid-run.
	ref := func(owner string, field string, id sim.UnitID) error {
		if _, ok := kinds[id]; !ok {
			return invalid("%s: %s %d does not name any component", owner, field, id)
		}
		return nil
	}
	if err := ref("source", "first_hop_id", dc.Source.FirstHopID); err != nil {
		return err
	}
	if dc.Source.FirstHopID == dc.sourceID() {
		return invalid("source: first_hop_id cannot be the source itself")
	}
	for _, d := range dc.Dispatchers {
		owner := fmt.Sprintf("dispatcher %d", d.ID)
		for _, c := range d.ChildIDs {
			if err := ref(owner, "child id", c); err != nil {
				return err
			}
			if c == dc.sourceID() {
				return invalid("%s: the source cannot be a child", owner)
			}
		}
		if d.ForwardToID != 0 {
			if err := ref(owner, "forward_to_id", d.ForwardToID); err != nil {
				return err
			}
		}
	}
	for _, w := range dc.Workers {
		if err := ref(fmt.Sprintf("worker %d", w.ID), "next_hop_id", w.NextHopID); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns every component id of an expanded config, ascending.
func (dc DeploymentConfig) IDs() []sim.UnitID {
	ids := []sim.UnitID{dc.sourceID()}
	for _, d := range dc.Dispatchers {
		ids = append(ids, d.ID)
	}
	for _, w := range dc.Workers {
		ids = append(ids, w.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (dc DeploymentConfig) sourceID() sim.UnitID {
	if dc.Source.ID == 0 {
		return sim.DefaultSourceID
	}
	return dc.Source.ID
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", sim.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
