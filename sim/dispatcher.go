package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pasid-sim/pasid-sim/sim/trace"
)

// Dispatcher is the load-balancing unit. It owns a bounded FIFO queue fed by
// Accept and a single dispatch goroutine (Run) that drains the queue towards
// its children.
//
// State machine: Idle (empty queue) -> Receiving (enqueue) -> Dispatching
// (dequeue + forward) -> Idle.
type Dispatcher struct {
	id       UnitID
	queue    *BoundedQueue
	children []UnitID
	forward  UnitID // next hop for the tier this dispatcher manages; 0 if unused
	overflow string
	retry    time.Duration
	policy   RoutingPolicy
	table    *RoutingTable
	trace    *trace.SimulationTrace // nil = no tracing
}

// NewDispatcher creates a dispatcher from a validated config.
// cfg.ChildIDs must already contain the final child list.
func NewDispatcher(cfg DispatcherConfig, table *RoutingTable, st *trace.SimulationTrace) *Dispatcher {
	if table == nil {
		panic("NewDispatcher: table must not be nil")
	}
	if len(cfg.ChildIDs) == 0 {
		panic(fmt.Sprintf("NewDispatcher %d: no children", cfg.ID))
	}
	overflow := cfg.Overflow
	if overflow == "" {
		overflow = OverflowBlock
	}
	retry := DefaultRetryIntervalMs
	if cfg.RetryIntervalMs > 0 {
		retry = cfg.RetryIntervalMs
	}
	children := make([]UnitID, len(cfg.ChildIDs))
	copy(children, cfg.ChildIDs)
	return &Dispatcher{
		id:       cfg.ID,
		queue:    NewBoundedQueue(cfg.QueueCapacity),
		children: children,
		forward:  cfg.ForwardToID,
		overflow: overflow,
		retry:    Millis(retry),
		policy:   NewRoutingPolicy(cfg.Policy),
		table:    table,
		trace:    st,
	}
}

// ID implements Endpoint.
func (d *Dispatcher) ID() UnitID { return d.id }

// Children returns the managed child ids in routing order.
func (d *Dispatcher) Children() []UnitID {
	out := make([]UnitID, len(d.children))
	copy(out, d.children)
	return out
}

// ForwardTo returns the configured next hop of the managed tier.
func (d *Dispatcher) ForwardTo() UnitID { return d.forward }

// QueueDepth implements QueueDepthReporter.
func (d *Dispatcher) QueueDepth() int { return d.queue.Len() }

// Queue exposes the dispatcher queue for observation.
func (d *Dispatcher) Queue() *BoundedQueue { return d.queue }

// Accept stamps the arrival and enqueues msg. Under the block policy it waits
// for queue space; under the reject policy a full queue returns ErrQueueFull.
func (d *Dispatcher) Accept(ctx context.Context, msg *Message) error {
	if err := msg.Stamp(StageDispatcherArrive, d.id, time.Now()); err != nil {
		return err
	}
	if d.overflow == OverflowReject {
		if err := d.queue.TryPut(msg); err != nil {
			// Still ours: drop the arrival so a retried send stamps once.
			msg.unstamp()
			return fmt.Errorf("dispatcher %d: message %d: %w", d.id, msg.ID(), err)
		}
		return nil
	}
	if err := d.queue.Put(ctx, msg); err != nil {
		msg.unstamp()
		return err
	}
	return nil
}

// Run is the dispatch loop. It returns nil when ctx is cancelled and an error
// if a child cannot be reached.
func (d *Dispatcher) Run(ctx context.Context) error {
	logrus.Debugf("dispatcher %d: dispatching to %v (capacity %d, overflow %s)",
		d.id, d.children, d.queue.Cap(), d.overflow)
	for {
		msg, err := d.queue.Take(ctx)
		if err != nil {
			return nil
		}
		decision := d.policy.Route(msg, d.snapshots())
		d.record(msg, decision)
		if err := deliver(ctx, d.table, d.id, decision.Target, msg, d.retry); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("dispatcher %d: %w", d.id, err)
		}
	}
}

func (d *Dispatcher) snapshots() []RoutingSnapshot {
	snaps := make([]RoutingSnapshot, len(d.children))
	for i, id := range d.children {
		snaps[i] = RoutingSnapshot{ID: id}
		if ep, err := d.table.Resolve(id); err == nil {
			if r, ok := ep.(QueueDepthReporter); ok {
				snaps[i].QueueDepth = r.QueueDepth()
			}
		}
	}
	return snaps
}

func (d *Dispatcher) record(msg *Message, decision RoutingDecision) {
	logrus.Debugf("dispatcher %d: message %d -> %d (%s)", d.id, msg.ID(), decision.Target, decision.Reason)
	if d.trace == nil {
		return
	}
	d.trace.RecordDispatch(trace.DispatchRecord{
		MessageID:    msg.ID(),
		DispatcherID: int(d.id),
		ChosenChild:  int(decision.Target),
		Reason:       decision.Reason,
		At:           time.Now(),
	})
}

// deliver sends msg to id, retrying every retry while the destination
// refuses it with ErrQueueFull. Any other error is returned immediately.
func deliver(ctx context.Context, table *RoutingTable, from, to UnitID, msg *Message, retry time.Duration) error {
	for {
		err := table.Send(ctx, to, msg)
		if err == nil || !errors.Is(err, ErrQueueFull) {
			return err
		}
		logrus.Warnf("unit %d: %d is full, retrying message %d in %v", from, to, msg.ID(), retry)
		if err := sleep(ctx, retry); err != nil {
			return err
		}
	}
}
