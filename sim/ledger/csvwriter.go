// Package ledger writes the stage ledger of every collected message to a CSV
// file, one row per stage.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/pasid-sim/pasid-sim/sim"
)

// Header is the first row of every ledger file.
var Header = []string{"run_id", "message_id", "seq", "stage", "unit", "at_unix_ns", "since_prev_ms", "since_origin_ms"}

// CSVWriter buffers finalized messages and writes their ledgers to a CSV file.
type CSVWriter struct {
	path  string
	runID string

	mu         sync.Mutex
	file       *os.File
	w          *csv.Writer
	pending    []*sim.Message
	bufferSize int
	closed     bool
}

// NewCSVWriter creates a writer for path. An empty path becomes
// "pasid_ledger_<xid>.csv" when Init runs.
func NewCSVWriter(path, runID string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		runID:      runID,
		bufferSize: 256,
	}
}

// Init creates the ledger file and registers the final flush with atexit.
// It refuses to overwrite an existing file.
func (t *CSVWriter) Init() error {
	if t.path == "" {
		t.path = "pasid_ledger_" + xid.New().String() + ".csv"
	}

	if _, err := os.Stat(t.path); err == nil {
		return fmt.Errorf("ledger file %s already exists", t.path)
	}

	file, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("create ledger file: %w", err)
	}
	if err := t.start(file); err != nil {
		return err
	}

	atexit.Register(func() {
		_ = t.Close()
	})
	return nil
}

// start writes the header to file. On failure the file is closed and the
// writer stays unusable.
func (t *CSVWriter) start(file *os.File) error {
	w := csv.NewWriter(file)
	if err := w.Write(Header); err == nil {
		w.Flush()
	}
	if err := w.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("write ledger header: %w", err)
	}
	t.file = file
	t.w = w
	return nil
}

// Path returns the ledger file path (resolved after Init).
func (t *CSVWriter) Path() string {
	return t.path
}

// Write buffers a finalized message, flushing when the buffer is full.
func (t *CSVWriter) Write(msg *sim.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, msg)
	if len(t.pending) >= t.bufferSize {
		return t.flushLocked()
	}
	return nil
}

// Flush writes the buffered messages to the file.
func (t *CSVWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

// Close flushes and closes the file. Safe to call more than once.
func (t *CSVWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.file == nil {
		return nil
	}
	t.closed = true
	flushErr := t.flushLocked()
	if err := t.file.Close(); err != nil {
		return err
	}
	return flushErr
}

func (t *CSVWriter) flushLocked() error {
	if t.w == nil {
		return nil
	}
	for _, msg := range t.pending {
		stages := msg.Stages()
		for i, st := range stages {
			var sincePrev, sinceOrigin float64
			if i > 0 {
				sincePrev = millis(st.At.Sub(stages[i-1].At).Nanoseconds())
				sinceOrigin = millis(st.At.Sub(stages[0].At).Nanoseconds())
			}
			row := []string{
				t.runID,
				strconv.FormatInt(msg.ID(), 10),
				strconv.Itoa(i),
				string(st.Kind),
				st.Unit.String(),
				strconv.FormatInt(st.At.UnixNano(), 10),
				strconv.FormatFloat(sincePrev, 'f', 3, 64),
				strconv.FormatFloat(sinceOrigin, 'f', 3, 64),
			}
			if err := t.w.Write(row); err != nil {
				return fmt.Errorf("write ledger row: %w", err)
			}
		}
	}
	t.pending = nil
	t.w.Flush()
	return t.w.Error()
}

func millis(ns int64) float64 {
	return float64(ns) / 1e6
}
