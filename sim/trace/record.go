// Package trace provides decision-trace recording for dispatcher analysis.
// This package has no dependencies on sim/ or sim/cluster/; it stores pure data types.
package trace

import "time"

// AdmissionRecord captures whether the first hop took a generated message.
type AdmissionRecord struct {
	MessageID int64
	SourceID  int
	Admitted  bool
	Reason    string
	At        time.Time
}

// DispatchRecord captures a single dispatcher routing decision.
type DispatchRecord struct {
	MessageID    int64
	DispatcherID int
	ChosenChild  int
	Reason       string
	At           time.Time
}
