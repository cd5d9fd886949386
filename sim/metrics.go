// Tracks run-wide response-time statistics: the mean response time (MRT) and
// the per-stage transition times (T-values) of every collected message.

package sim

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RunStatistics accumulates the samples of one run. It is owned by the
// source's collector goroutine; read it only after Source.Run returned.
type RunStatistics struct {
	messages      []*Message
	responseTimes []float64 // ms, in collection order
	dropped       []int64   // ids refused at the first hop

	byLabel    map[string]*transitionSamples
	labelOrder []string // first-seen order of label pairs
	positional []*transitionSamples
}

type transitionSamples struct {
	from, to string
	values   []float64 // ms
}

// NewRunStatistics creates empty statistics.
func NewRunStatistics() *RunStatistics {
	return &RunStatistics{byLabel: make(map[string]*transitionSamples)}
}

// Add records a finalized message.
func (rs *RunStatistics) Add(msg *Message) {
	rs.messages = append(rs.messages, msg)
	rs.responseTimes = append(rs.responseTimes, toMillis(msg.ResponseTime()))
	for i, tr := range msg.Transitions() {
		key := tr.From + " -> " + tr.To
		ts, ok := rs.byLabel[key]
		if !ok {
			ts = &transitionSamples{from: tr.From, to: tr.To}
			rs.byLabel[key] = ts
			rs.labelOrder = append(rs.labelOrder, key)
		}
		ts.values = append(ts.values, toMillis(tr.Elapsed))

		if i == len(rs.positional) {
			rs.positional = append(rs.positional, &transitionSamples{from: stageKindOf(tr.From), to: stageKindOf(tr.To)})
		}
		rs.positional[i].values = append(rs.positional[i].values, toMillis(tr.Elapsed))
	}
}

// AddDrop records a message refused at the first hop.
func (rs *RunStatistics) AddDrop(id int64) {
	rs.dropped = append(rs.dropped, id)
}

// Completed returns the number of collected messages.
func (rs *RunStatistics) Completed() int { return len(rs.messages) }

// Dropped returns the number of messages refused at the first hop.
func (rs *RunStatistics) Dropped() int { return len(rs.dropped) }

// Messages returns the collected messages in collection order.
func (rs *RunStatistics) Messages() []*Message {
	out := make([]*Message, len(rs.messages))
	copy(out, rs.messages)
	return out
}

// TValue is the average elapsed time of one stage transition.
type TValue struct {
	Name   string  // "T1".. for positional values, "<from> -> <to>" otherwise
	From   string
	To     string
	Count  int
	Mean   float64 // ms
	StdDev float64 // ms
}

// Report is the summary of a completed run. Times are in milliseconds.
type Report struct {
	RunID     string
	Completed int
	Dropped   int

	MRT       float64
	MRTStdDev float64
	MinRT     float64
	MaxRT     float64
	P50RT     float64
	P90RT     float64
	P99RT     float64

	// TValues are keyed by the stage labels of each adjacent pair, in
	// first-seen order. Positional holds T1..Tk, the i-th transition of every
	// ledger regardless of which unit recorded it.
	TValues    []TValue
	Positional []TValue

	WallTime time.Duration
}

// Summarize computes the run report.
func (rs *RunStatistics) Summarize(runID string) *Report {
	r := &Report{
		RunID:     runID,
		Completed: rs.Completed(),
		Dropped:   rs.Dropped(),
	}
	if len(rs.responseTimes) > 0 {
		r.MRT, r.MRTStdDev = meanStdDev(rs.responseTimes)
		sorted := make([]float64, len(rs.responseTimes))
		copy(sorted, rs.responseTimes)
		sort.Float64s(sorted)
		r.MinRT = sorted[0]
		r.MaxRT = sorted[len(sorted)-1]
		r.P50RT = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		r.P90RT = stat.Quantile(0.90, stat.Empirical, sorted, nil)
		r.P99RT = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	}
	for _, key := range rs.labelOrder {
		r.TValues = append(r.TValues, summarizeTransition(key, rs.byLabel[key]))
	}
	for i, ts := range rs.positional {
		r.Positional = append(r.Positional, summarizeTransition(fmt.Sprintf("T%d", i+1), ts))
	}
	return r
}

// Print displays the report in the same layout the CLI always used.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Run ID               : %s\n", r.RunID)
	fmt.Fprintf(w, "Completed Messages   : %d\n", r.Completed)
	fmt.Fprintf(w, "Dropped At Origin    : %d\n", r.Dropped)
	if r.WallTime > 0 {
		fmt.Fprintf(w, "Wall Time            : %v\n", r.WallTime.Round(time.Millisecond))
	}
	if r.Completed == 0 {
		return
	}
	fmt.Fprintf(w, "Mean Response Time   : %.2f ms\n", r.MRT)
	fmt.Fprintf(w, "Response Time StdDev : %.2f ms\n", r.MRTStdDev)
	fmt.Fprintf(w, "Response Time Min/Max: %.2f / %.2f ms\n", r.MinRT, r.MaxRT)
	fmt.Fprintf(w, "Response Time P50    : %.2f ms\n", r.P50RT)
	fmt.Fprintf(w, "Response Time P90    : %.2f ms\n", r.P90RT)
	fmt.Fprintf(w, "Response Time P99    : %.2f ms\n", r.P99RT)

	fmt.Fprintln(w, "=== Transition Times (by position) ===")
	for _, tv := range r.Positional {
		fmt.Fprintf(w, "%-4s %-18s -> %-18s : %8.2f ms (sd %.2f, n=%d)\n",
			tv.Name, tv.From, tv.To, tv.Mean, tv.StdDev, tv.Count)
	}
	fmt.Fprintln(w, "=== Transition Times (by stage) ===")
	for _, tv := range r.TValues {
		fmt.Fprintf(w, "%-48s : %8.2f ms (sd %.2f, n=%d)\n", tv.Name, tv.Mean, tv.StdDev, tv.Count)
	}
}

func summarizeTransition(name string, ts *transitionSamples) TValue {
	mean, sd := meanStdDev(ts.values)
	return TValue{
		Name:   name,
		From:   ts.from,
		To:     ts.to,
		Count:  len(ts.values),
		Mean:   mean,
		StdDev: sd,
	}
}

// meanStdDev returns the sample mean and unbiased standard deviation.
// The deviation of fewer than two samples is 0.
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// stageKindOf strips the unit from a stage label ("worker.finish@2001" -> "worker.finish").
func stageKindOf(label string) string {
	for i := len(label) - 1; i >= 0; i-- {
		if label[i] == '@' {
			return label[:i]
		}
	}
	return label
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
