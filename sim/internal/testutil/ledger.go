// Package testutil provides assertion helpers shared by the sim/ and
// sim/cluster/ test packages.
package testutil

import (
	"testing"
	"time"

	"github.com/pasid-sim/pasid-sim/sim"
)

// AssertLedgerOrdered fails t if any stamp of msg precedes the one before it.
func AssertLedgerOrdered(t *testing.T, msg *sim.Message) {
	t.Helper()
	stages := msg.Stages()
	for i := 1; i < len(stages); i++ {
		if stages[i].At.Before(stages[i-1].At) {
			t.Errorf("message %d: stage %d (%s) at %v precedes stage %d (%s) at %v",
				msg.ID(), i, stages[i].Label(), stages[i].At, i-1, stages[i-1].Label(), stages[i-1].At)
		}
	}
}

// AssertTransitionsSumToResponseTime fails t if the transitions of msg do not
// add up to its response time.
func AssertTransitionsSumToResponseTime(t *testing.T, msg *sim.Message) {
	t.Helper()
	var sum time.Duration
	for _, tr := range msg.Transitions() {
		sum += tr.Elapsed
	}
	if sum != msg.ResponseTime() {
		t.Errorf("message %d: transitions sum to %v, response time is %v", msg.ID(), sum, msg.ResponseTime())
	}
}

// StageKinds returns the kinds of the ledger of msg in order.
func StageKinds(msg *sim.Message) []sim.StageKind {
	stages := msg.Stages()
	out := make([]sim.StageKind, len(stages))
	for i, s := range stages {
		out[i] = s.Kind
	}
	return out
}
