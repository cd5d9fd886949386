package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestServiceProfile_Sample_NeverNegative draws from a distribution whose mass
// is half below zero.
func TestServiceProfile_Sample_NeverNegative(t *testing.T) {
	// GIVEN mean=0, stddev=100ms
	p := NewServiceProfile(0, 100)
	rng := rand.New(rand.NewSource(1))

	// WHEN many delays are drawn
	zeros := 0
	for i := 0; i < 10_000; i++ {
		d := p.Sample(rng)
		// THEN none is negative
		if d < 0 {
			t.Fatalf("draw %d: negative delay %v", i, d)
		}
		if d == 0 {
			zeros++
		}
	}
	// AND roughly half were clamped
	assert.InDelta(t, 5000, zeros, 500)
}

func TestServiceProfile_Sample_ZeroStdDev_ReturnsMean(t *testing.T) {
	p := NewServiceProfile(50, 0)
	assert.Equal(t, 50*time.Millisecond, p.Sample(rand.New(rand.NewSource(1))))
}

func TestServiceProfile_Sample_MeanConverges(t *testing.T) {
	p := NewServiceProfile(50, 5)
	rng := rand.New(rand.NewSource(42))
	var sum time.Duration
	const n = 5000
	for i := 0; i < n; i++ {
		sum += p.Sample(rng)
	}
	assert.InDelta(t, 50.0, toMillis(sum/n), 0.5)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1500*time.Microsecond, Millis(1.5))
	assert.Equal(t, time.Duration(0), Millis(0))
}
