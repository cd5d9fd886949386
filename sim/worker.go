package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Worker is a single-capacity service unit. Accept stamps the arrival and
// parks the message in the inbox; the Run goroutine serves one message at a
// time: draw a delay, wait it out, stamp the finish, forward to the next hop.
type Worker struct {
	id      UnitID
	next    UnitID
	profile ServiceProfile
	inbox   *BoundedQueue
	busy    atomic.Int32 // 1 while a message is being served
	retry   time.Duration
	rng     *rand.Rand // owned by the Run goroutine
	table   *RoutingTable

	// OnServed, when set, is called from the Run goroutine with each drawn
	// delay before the worker waits it out.
	OnServed func(id UnitID, msgID int64, delay time.Duration)
}

// NewWorker creates a worker from a validated config. rng must not be shared
// with any other goroutine.
func NewWorker(cfg WorkerConfig, table *RoutingTable, rng *rand.Rand) *Worker {
	if table == nil {
		panic("NewWorker: table must not be nil")
	}
	if rng == nil {
		panic("NewWorker: rng must not be nil")
	}
	capacity := cfg.QueueCapacity
	if capacity < 1 {
		capacity = 1
	}
	retry := DefaultRetryIntervalMs
	if cfg.RetryIntervalMs > 0 {
		retry = cfg.RetryIntervalMs
	}
	return &Worker{
		id:      cfg.ID,
		next:    cfg.NextHopID,
		profile: NewServiceProfile(cfg.ServiceTimeMeanMs, cfg.ServiceTimeStdDevMs),
		inbox:   NewBoundedQueue(capacity),
		retry:   Millis(retry),
		rng:     rng,
		table:   table,
	}
}

// ID implements Endpoint.
func (w *Worker) ID() UnitID { return w.id }

// NextHop returns the id processed messages are forwarded to.
func (w *Worker) NextHop() UnitID { return w.next }

// Profile returns the worker's service-time distribution.
func (w *Worker) Profile() ServiceProfile { return w.profile }

// QueueDepth implements QueueDepthReporter. The message in service counts,
// so a busy worker with an empty inbox is not reported as free.
func (w *Worker) QueueDepth() int { return w.inbox.Len() + int(w.busy.Load()) }

// Accept stamps the arrival and hands msg to the inbox, waiting while the
// inbox is full. It does not wait for msg to be served.
func (w *Worker) Accept(ctx context.Context, msg *Message) error {
	if err := msg.Stamp(StageWorkerArrive, w.id, time.Now()); err != nil {
		return err
	}
	if err := w.inbox.Put(ctx, msg); err != nil {
		msg.unstamp()
		return err
	}
	return nil
}

// Run serves the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logrus.Debugf("worker %d: serving (mean %v, stddev %v) -> %d", w.id, w.profile.Mean, w.profile.StdDev, w.next)
	for {
		msg, err := w.inbox.Take(ctx)
		if err != nil {
			return nil
		}
		w.busy.Store(1)
		err = w.serve(ctx, msg)
		w.busy.Store(0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: %w", w.id, err)
		}
	}
}

func (w *Worker) serve(ctx context.Context, msg *Message) error {
	delay := w.profile.Sample(w.rng)
	if w.OnServed != nil {
		w.OnServed(w.id, msg.ID(), delay)
	}
	if err := sleep(ctx, delay); err != nil {
		return err
	}
	if err := msg.Stamp(StageWorkerFinish, w.id, time.Now()); err != nil {
		return err
	}
	logrus.Debugf("worker %d: message %d served in %v -> %d", w.id, msg.ID(), delay, w.next)
	return deliver(ctx, w.table, w.id, w.next, msg, w.retry)
}
