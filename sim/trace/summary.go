package trace

import "sort"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAdmissions int
	AdmittedCount   int
	RejectedCount   int
	TotalDispatches int
	// TargetDistribution maps dispatcher id -> child id -> messages routed.
	TargetDistribution map[int]map[int]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[int]map[int]int),
	}
	if st == nil {
		return summary
	}

	admissions := st.Admissions()
	summary.TotalAdmissions = len(admissions)
	for _, a := range admissions {
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.RejectedCount++
		}
	}

	dispatches := st.Dispatches()
	summary.TotalDispatches = len(dispatches)
	for _, d := range dispatches {
		children, ok := summary.TargetDistribution[d.DispatcherID]
		if !ok {
			children = make(map[int]int)
			summary.TargetDistribution[d.DispatcherID] = children
		}
		children[d.ChosenChild]++
	}

	return summary
}

// Dispatchers returns the dispatcher ids present in the distribution, ascending.
func (s *TraceSummary) Dispatchers() []int {
	ids := make([]int, 0, len(s.TargetDistribution))
	for id := range s.TargetDistribution {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
