// Package workload provides the source's arrival processes.
package workload

import (
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pasid-sim/pasid-sim/sim"
)

// ConstantSampler waits the same gap between every generation
// (the fixed arrival delay of a model-feeding run).
type ConstantSampler struct {
	gap time.Duration
}

// Next implements sim.ArrivalSampler.
func (s *ConstantSampler) Next(_ *rand.Rand) time.Duration {
	return s.gap
}

// PoissonSampler generates exponentially-distributed gaps (CV=1).
type PoissonSampler struct {
	mean time.Duration
}

// Next implements sim.ArrivalSampler.
func (s *PoissonSampler) Next(rng *rand.Rand) time.Duration {
	return time.Duration(rng.ExpFloat64() * float64(s.mean))
}

// GammaSampler generates Gamma-distributed gaps.
// CV > 1 produces bursty arrivals.
// Implemented using Marsaglia-Tsang's method for shape >= 1,
// with transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV² (alpha parameter)
	scale float64 // mean·CV² in nanoseconds (beta parameter)
}

// Next implements sim.ArrivalSampler.
func (s *GammaSampler) Next(rng *rand.Rand) time.Duration {
	return time.Duration(gammaRand(rng, s.shape, s.scale))
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape >= 1: direct method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		// Ahrens-Dieter: Gamma(a) = Gamma(a+1) * U^(1/a)
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	// Marsaglia-Tsang for shape >= 1
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// NewArrivalSampler creates the sampler for a source's arrival process.
// meanGapMs is the mean gap between generations in milliseconds; cv is only
// read for gamma. A zero mean always yields back-to-back generation.
func NewArrivalSampler(process string, meanGapMs, cv float64) sim.ArrivalSampler {
	mean := sim.Millis(meanGapMs)
	if mean <= 0 {
		return &ConstantSampler{}
	}
	switch process {
	case "", sim.ArrivalConstant:
		return &ConstantSampler{gap: mean}
	case sim.ArrivalPoisson:
		return &PoissonSampler{mean: mean}
	case sim.ArrivalGamma:
		if cv <= 0 {
			cv = 1.0
		}
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{mean: mean}
		}
		return &GammaSampler{shape: shape, scale: float64(mean) * cv * cv}
	default:
		// Validated before reaching here
		logrus.Warnf("unknown arrival process %q; using constant gaps", process)
		return &ConstantSampler{gap: mean}
	}
}
