package sim

import (
	"math/rand"
	"time"
)

// ServiceProfile is a worker's simulated processing-time distribution:
// normal with the given mean and standard deviation, floored at zero.
type ServiceProfile struct {
	Mean   time.Duration
	StdDev time.Duration
}

// NewServiceProfile builds a profile from millisecond options.
func NewServiceProfile(meanMs, stdDevMs float64) ServiceProfile {
	return ServiceProfile{Mean: Millis(meanMs), StdDev: Millis(stdDevMs)}
}

// Sample draws one processing delay. Negative draws become zero.
func (p ServiceProfile) Sample(rng *rand.Rand) time.Duration {
	if p.StdDev == 0 {
		return max(p.Mean, 0)
	}
	val := rng.NormFloat64()*float64(p.StdDev) + float64(p.Mean)
	if val < 0 {
		return 0
	}
	return time.Duration(val)
}

// ArrivalSampler produces the gap the source waits between two generations.
// Implementations live in sim/workload.
type ArrivalSampler interface {
	// Next returns a non-negative inter-arrival gap.
	Next(rng *rand.Rand) time.Duration
}
