package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pasid-sim/pasid-sim/sim/trace"
)

// Source generates the run's messages and collects them when they return.
//
// Generation and collection are two goroutines started by Run, so messages
// overlap in flight. The run is complete once every generated message has
// either come back or been refused at the first hop.
type Source struct {
	id       UnitID
	firstHop UnitID
	n        int
	arrivals ArrivalSampler // nil = back-to-back
	rng      *rand.Rand
	table    *RoutingTable
	trace    *trace.SimulationTrace // nil = no tracing

	inbox chan *Message
	drops chan int64

	// OnCollected, when set, is called from the collector goroutine with each
	// finalized message.
	OnCollected func(msg *Message)
}

// NewSource creates a source from a validated config. arrivals and st may be nil.
func NewSource(cfg SourceConfig, table *RoutingTable, arrivals ArrivalSampler, rng *rand.Rand, st *trace.SimulationTrace) *Source {
	if table == nil {
		panic("NewSource: table must not be nil")
	}
	if cfg.NumMessages < 1 {
		panic(fmt.Sprintf("NewSource: num_messages must be >= 1, got %d", cfg.NumMessages))
	}
	if arrivals != nil && rng == nil {
		panic("NewSource: rng is required with an arrival sampler")
	}
	id := cfg.ID
	if id == 0 {
		id = DefaultSourceID
	}
	return &Source{
		id:       id,
		firstHop: cfg.FirstHopID,
		n:        cfg.NumMessages,
		arrivals: arrivals,
		rng:      rng,
		table:    table,
		trace:    st,
		// Every message is accepted at most once, so n slots never block.
		inbox: make(chan *Message, cfg.NumMessages),
		drops: make(chan int64, cfg.NumMessages),
	}
}

// ID implements Endpoint.
func (s *Source) ID() UnitID { return s.id }

// NumMessages returns the number of messages the run generates.
func (s *Source) NumMessages() int { return s.n }

// FirstHop returns the id generated messages are sent to.
func (s *Source) FirstHop() UnitID { return s.firstHop }

// Accept takes a message that completed the round trip.
func (s *Source) Accept(ctx context.Context, msg *Message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run generates and collects the run's messages and returns the statistics.
// It returns early with an error if a message cannot be sent for any reason
// other than a full first hop, or if ctx is cancelled.
func (s *Source) Run(ctx context.Context) (*RunStatistics, error) {
	stats := NewRunStatistics()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.generate(gctx) })
	g.Go(func() error { return s.collect(gctx, stats) })
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Source) generate(ctx context.Context) error {
	logrus.Infof("source %d: generating %d messages towards %d", s.id, s.n, s.firstHop)
	for i := 1; i <= s.n; i++ {
		if i > 1 && s.arrivals != nil {
			if err := sleep(ctx, s.arrivals.Next(s.rng)); err != nil {
				return err
			}
		}
		msg := NewMessage(int64(i))
		if err := msg.Stamp(StageOrigin, s.id, time.Now()); err != nil {
			return err
		}
		err := s.table.Send(ctx, s.firstHop, msg)
		s.record(msg, err)
		switch {
		case err == nil:
			logrus.Debugf("source %d: sent message %d", s.id, i)
		case errors.Is(err, ErrQueueFull):
			logrus.Warnf("source %d: message %d dropped at origin: %v", s.id, i, err)
			s.drops <- msg.ID()
		default:
			return fmt.Errorf("source %d: send message %d: %w", s.id, i, err)
		}
	}
	return nil
}

func (s *Source) collect(ctx context.Context, stats *RunStatistics) error {
	for stats.Completed()+stats.Dropped() < s.n {
		select {
		case msg := <-s.inbox:
			if err := msg.Finalize(s.id, time.Now()); err != nil {
				return fmt.Errorf("source %d: %w", s.id, err)
			}
			stats.Add(msg)
			if s.OnCollected != nil {
				s.OnCollected(msg)
			}
			logrus.Debugf("source %d: collected %v (%d/%d)", s.id, msg, stats.Completed(), s.n)
		case id := <-s.drops:
			stats.AddDrop(id)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	logrus.Infof("source %d: run complete (%d completed, %d dropped)", s.id, stats.Completed(), stats.Dropped())
	return nil
}

func (s *Source) record(msg *Message, err error) {
	if s.trace == nil {
		return
	}
	rec := trace.AdmissionRecord{
		MessageID: msg.ID(),
		SourceID:  int(s.id),
		Admitted:  err == nil,
		Reason:    "accepted",
		At:        time.Now(),
	}
	if err != nil {
		rec.Reason = err.Error()
	}
	s.trace.RecordAdmission(rec)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
