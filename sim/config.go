package sim

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfiguration wraps every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Overflow policies for a dispatcher queue.
const (
	OverflowBlock  = "block"  // sender waits for space (lossless, default)
	OverflowReject = "reject" // sender gets ErrQueueFull
)

// Arrival processes for the source generator.
const (
	ArrivalConstant = "constant"
	ArrivalPoisson  = "poisson"
	ArrivalGamma    = "gamma"
)

// DefaultRetryIntervalMs is how long a sender waits before retrying a child
// that refused a message.
const DefaultRetryIntervalMs = 100.0

// SourceConfig groups the options of the request generator.
type SourceConfig struct {
	ID             UnitID  `yaml:"own_id" mapstructure:"own_id"`                   // defaults to 1000
	NumMessages    int     `yaml:"num_messages" mapstructure:"num_messages"`       // messages to generate (must be >= 1)
	FirstHopID     UnitID  `yaml:"first_hop_id" mapstructure:"first_hop_id"`       // first dispatcher
	ArrivalDelayMs float64 `yaml:"arrival_delay" mapstructure:"arrival_delay"`     // mean gap between generations, ms
	ArrivalProcess string  `yaml:"arrival_process" mapstructure:"arrival_process"` // "constant" (default), "poisson", "gamma"
	ArrivalCV      float64 `yaml:"arrival_cv" mapstructure:"arrival_cv"`           // gamma only
}

// WorkerPoolConfig describes workers a dispatcher spawns at own_id+1..own_id+count.
type WorkerPoolConfig struct {
	Count               int     `yaml:"count" mapstructure:"count"`
	ServiceTimeMeanMs   float64 `yaml:"service_time_mean" mapstructure:"service_time_mean"`
	ServiceTimeStdDevMs float64 `yaml:"service_time_stddev" mapstructure:"service_time_stddev"`
	QueueCapacity       int     `yaml:"queue_capacity" mapstructure:"queue_capacity"`
}

// DispatcherConfig groups the options of one load-balancing unit.
type DispatcherConfig struct {
	ID              UnitID            `yaml:"own_id" mapstructure:"own_id"`
	QueueCapacity   int               `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	ChildIDs        []UnitID          `yaml:"child_ids" mapstructure:"child_ids"`
	ForwardToID     UnitID            `yaml:"forward_to_id" mapstructure:"forward_to_id"`
	Overflow        string            `yaml:"overflow" mapstructure:"overflow"`
	Policy          string            `yaml:"policy" mapstructure:"policy"`
	RetryIntervalMs float64           `yaml:"retry_interval" mapstructure:"retry_interval"`
	Workers         *WorkerPoolConfig `yaml:"workers,omitempty" mapstructure:"workers"`
}

// WorkerConfig groups the options of one service unit.
type WorkerConfig struct {
	ID                  UnitID  `yaml:"own_id" mapstructure:"own_id"`
	NextHopID           UnitID  `yaml:"next_hop_id" mapstructure:"next_hop_id"`
	ServiceTimeMeanMs   float64 `yaml:"service_time_mean" mapstructure:"service_time_mean"`
	ServiceTimeStdDevMs float64 `yaml:"service_time_stddev" mapstructure:"service_time_stddev"`
	QueueCapacity       int     `yaml:"queue_capacity" mapstructure:"queue_capacity"` // inbox size, defaults to 1
	RetryIntervalMs     float64 `yaml:"retry_interval" mapstructure:"retry_interval"`
}

// DefaultSourceID is the source id when none is configured (the classic
// deployment's source port).
const DefaultSourceID UnitID = 1000

// Validate checks the source options.
func (c SourceConfig) Validate() error {
	if c.NumMessages < 1 {
		return invalid("source: num_messages must be >= 1, got %d", c.NumMessages)
	}
	if c.FirstHopID == 0 {
		return invalid("source: first_hop_id is required")
	}
	if c.ArrivalDelayMs < 0 {
		return invalid("source: arrival_delay must be >= 0, got %v", c.ArrivalDelayMs)
	}
	switch c.ArrivalProcess {
	case "", ArrivalConstant, ArrivalPoisson:
	case ArrivalGamma:
		if c.ArrivalCV <= 0 {
			return invalid("source: arrival_cv must be > 0 for gamma arrivals, got %v", c.ArrivalCV)
		}
	default:
		return invalid("source: unknown arrival_process %q", c.ArrivalProcess)
	}
	return nil
}

// Validate checks the dispatcher options.
func (c DispatcherConfig) Validate() error {
	if c.ID == 0 {
		return invalid("dispatcher: own_id is required")
	}
	if c.QueueCapacity < 1 {
		return invalid("dispatcher %d: queue_capacity must be >= 1, got %d", c.ID, c.QueueCapacity)
	}
	if len(c.ChildIDs) == 0 && (c.Workers == nil || c.Workers.Count < 1) {
		return invalid("dispatcher %d: child_ids or workers.count is required", c.ID)
	}
	seen := make(map[UnitID]bool, len(c.ChildIDs))
	for _, id := range c.ChildIDs {
		if id == c.ID {
			return invalid("dispatcher %d: cannot be its own child", c.ID)
		}
		if seen[id] {
			return invalid("dispatcher %d: duplicate child id %d", c.ID, id)
		}
		seen[id] = true
	}
	switch c.Overflow {
	case "", OverflowBlock, OverflowReject:
	default:
		return invalid("dispatcher %d: unknown overflow policy %q", c.ID, c.Overflow)
	}
	if !IsValidRoutingPolicy(c.Policy) {
		return invalid("dispatcher %d: unknown routing policy %q", c.ID, c.Policy)
	}
	if c.RetryIntervalMs < 0 {
		return invalid("dispatcher %d: retry_interval must be >= 0", c.ID)
	}
	if c.Workers != nil {
		if c.Workers.Count < 0 {
			return invalid("dispatcher %d: workers.count must be >= 0", c.ID)
		}
		if c.Workers.Count > 0 && c.ForwardToID == 0 {
			return invalid("dispatcher %d: forward_to_id is required when workers are declared", c.ID)
		}
		if c.Workers.ServiceTimeMeanMs < 0 || c.Workers.ServiceTimeStdDevMs < 0 {
			return invalid("dispatcher %d: workers service time must be >= 0", c.ID)
		}
		if c.Workers.QueueCapacity < 0 {
			return invalid("dispatcher %d: workers.queue_capacity must be >= 0", c.ID)
		}
	}
	return nil
}

// Validate checks the worker options.
func (c WorkerConfig) Validate() error {
	if c.ID == 0 {
		return invalid("worker: own_id is required")
	}
	if c.NextHopID == 0 {
		return invalid("worker %d: next_hop_id is required", c.ID)
	}
	if c.NextHopID == c.ID {
		return invalid("worker %d: next_hop_id cannot be itself", c.ID)
	}
	if c.ServiceTimeMeanMs < 0 {
		return invalid("worker %d: service_time_mean must be >= 0, got %v", c.ID, c.ServiceTimeMeanMs)
	}
	if c.ServiceTimeStdDevMs < 0 {
		return invalid("worker %d: service_time_stddev must be >= 0, got %v", c.ID, c.ServiceTimeStdDevMs)
	}
	if c.QueueCapacity < 0 {
		return invalid("worker %d: queue_capacity must be >= 0", c.ID)
	}
	if c.RetryIntervalMs < 0 {
		return invalid("worker %d: retry_interval must be >= 0", c.ID)
	}
	return nil
}

// Millis converts a millisecond option to a time.Duration.
func Millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
