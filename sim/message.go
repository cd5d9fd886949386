package sim

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStampOutOfOrder is returned when a stamp would precede the last one in the ledger.
	ErrStampOutOfOrder = errors.New("stamp precedes last ledger entry")
	// ErrMessageFinalized is returned when stamping a message the source already collected.
	ErrMessageFinalized = errors.New("message already finalized")
)

// StageKind names what happened to a message at a stage.
type StageKind string

const (
	StageOrigin           StageKind = "origin"
	StageDispatcherArrive StageKind = "dispatcher.arrive"
	StageWorkerArrive     StageKind = "worker.arrive"
	StageWorkerFinish     StageKind = "worker.finish"
	StageReturn           StageKind = "return"
)

// Stage is one ledger entry: which unit recorded what, and when.
type Stage struct {
	Kind StageKind
	Unit UnitID
	At   time.Time
}

// Label renders the stage as "<kind>@<unit>", e.g. "worker.finish@2001".
func (s Stage) Label() string {
	return fmt.Sprintf("%s@%d", s.Kind, s.Unit)
}

// Transition is the elapsed time between two adjacent ledger entries.
type Transition struct {
	From    string
	To      string
	Elapsed time.Duration
}

// Message is the envelope that travels through the tiers. Its ID is fixed at
// creation and its ledger is append-only.
//
// A Message is owned by exactly one component at a time; ownership moves with
// each Accept hand-off, so the ledger needs no locking.
type Message struct {
	id        int64
	ledger    []Stage
	finalized bool
}

// NewMessage creates a message with an empty ledger.
func NewMessage(id int64) *Message {
	return &Message{id: id, ledger: make([]Stage, 0, 8)}
}

// ID returns the message identifier.
func (m *Message) ID() int64 {
	return m.id
}

// Stamp appends a ledger entry.
func (m *Message) Stamp(kind StageKind, unit UnitID, at time.Time) error {
	if m.finalized {
		return fmt.Errorf("message %d: stamp %s@%d: %w", m.id, kind, unit, ErrMessageFinalized)
	}
	if n := len(m.ledger); n > 0 && at.Before(m.ledger[n-1].At) {
		return fmt.Errorf("message %d: stamp %s@%d: %w", m.id, kind, unit, ErrStampOutOfOrder)
	}
	m.ledger = append(m.ledger, Stage{Kind: kind, Unit: unit, At: at})
	return nil
}

// unstamp removes the last ledger entry. Only the current owner of a refused
// message may call it.
func (m *Message) unstamp() {
	if n := len(m.ledger); n > 0 && !m.finalized {
		m.ledger = m.ledger[:n-1]
	}
}

// Finalize appends the return stamp and freezes the ledger.
func (m *Message) Finalize(unit UnitID, at time.Time) error {
	if err := m.Stamp(StageReturn, unit, at); err != nil {
		return err
	}
	m.finalized = true
	return nil
}

// Finalized reports whether the source has collected the message.
func (m *Message) Finalized() bool {
	return m.finalized
}

// Stages returns a copy of the ledger.
func (m *Message) Stages() []Stage {
	out := make([]Stage, len(m.ledger))
	copy(out, m.ledger)
	return out
}

// Transitions returns the elapsed time between each pair of adjacent stages,
// in ledger order.
func (m *Message) Transitions() []Transition {
	if len(m.ledger) < 2 {
		return nil
	}
	out := make([]Transition, 0, len(m.ledger)-1)
	for i := 1; i < len(m.ledger); i++ {
		prev, cur := m.ledger[i-1], m.ledger[i]
		out = append(out, Transition{
			From:    prev.Label(),
			To:      cur.Label(),
			Elapsed: cur.At.Sub(prev.At),
		})
	}
	return out
}

// ResponseTime is the elapsed time between the first and the last stamp.
// Returns 0 for ledgers with fewer than two entries.
func (m *Message) ResponseTime() time.Duration {
	if len(m.ledger) < 2 {
		return 0
	}
	return m.ledger[len(m.ledger)-1].At.Sub(m.ledger[0].At)
}

func (m *Message) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "msg#%d[", m.id)
	for i, s := range m.ledger {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s.Label())
	}
	sb.WriteString("]")
	return sb.String()
}
