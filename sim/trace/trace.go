package trace

import "sync"

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures origin admissions and dispatcher routing decisions.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a run. Every dispatcher
// goroutine records into the same trace, so appends are serialized.
type SimulationTrace struct {
	Config TraceConfig

	mu         sync.Mutex
	admissions []AdmissionRecord
	dispatches []DispatchRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		admissions: make([]AdmissionRecord, 0),
		dispatches: make([]DispatchRecord, 0),
	}
}

// RecordAdmission appends an admission record.
func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	st.mu.Lock()
	st.admissions = append(st.admissions, record)
	st.mu.Unlock()
}

// RecordDispatch appends a dispatch decision record.
func (st *SimulationTrace) RecordDispatch(record DispatchRecord) {
	st.mu.Lock()
	st.dispatches = append(st.dispatches, record)
	st.mu.Unlock()
}

// Admissions returns a copy of the admission records in recording order.
func (st *SimulationTrace) Admissions() []AdmissionRecord {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]AdmissionRecord, len(st.admissions))
	copy(out, st.admissions)
	return out
}

// Dispatches returns a copy of the dispatch records in recording order.
func (st *SimulationTrace) Dispatches() []DispatchRecord {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]DispatchRecord, len(st.dispatches))
	copy(out, st.dispatches)
	return out
}
