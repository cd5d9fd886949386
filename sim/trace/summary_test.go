package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalAdmissions != 0 || summary.TotalDispatches != 0 {
		t.Errorf("expected 0 records, got %d admissions, %d dispatches", summary.TotalAdmissions, summary.TotalDispatches)
	}
	if summary.AdmittedCount != 0 || summary.RejectedCount != 0 {
		t.Error("expected 0 admitted and rejected")
	}
	if len(summary.TargetDistribution) != 0 {
		t.Error("expected empty target distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDispatches != 0 || summary.TargetDistribution == nil {
		t.Errorf("unexpected summary for nil trace: %+v", summary)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with admissions and dispatches across two dispatchers
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAdmission(AdmissionRecord{MessageID: 1, Admitted: true})
	st.RecordAdmission(AdmissionRecord{MessageID: 2, Admitted: false, Reason: "queue full"})
	st.RecordAdmission(AdmissionRecord{MessageID: 3, Admitted: true})
	st.RecordDispatch(DispatchRecord{MessageID: 1, DispatcherID: 2000, ChosenChild: 2001})
	st.RecordDispatch(DispatchRecord{MessageID: 3, DispatcherID: 2000, ChosenChild: 2002})
	st.RecordDispatch(DispatchRecord{MessageID: 1, DispatcherID: 3000, ChosenChild: 3001})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalAdmissions != 3 || summary.AdmittedCount != 2 || summary.RejectedCount != 1 {
		t.Errorf("admissions: got total=%d admitted=%d rejected=%d", summary.TotalAdmissions, summary.AdmittedCount, summary.RejectedCount)
	}
	if summary.TotalDispatches != 3 {
		t.Errorf("expected 3 dispatches, got %d", summary.TotalDispatches)
	}
	if got := summary.TargetDistribution[2000][2001]; got != 1 {
		t.Errorf("expected 1 message 2000->2001, got %d", got)
	}
	if got := summary.TargetDistribution[3000][3001]; got != 1 {
		t.Errorf("expected 1 message 3000->3001, got %d", got)
	}
	ids := summary.Dispatchers()
	if len(ids) != 2 || ids[0] != 2000 || ids[1] != 3000 {
		t.Errorf("expected dispatchers [2000 3000], got %v", ids)
	}
}
