package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnknownDestination is returned when no endpoint is registered under an id.
	ErrUnknownDestination = errors.New("unknown destination")
	// ErrDuplicateUnit is returned when registering an id twice.
	ErrDuplicateUnit = errors.New("unit already registered")
	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("routing table is frozen")
	// ErrRegistryNotFrozen is returned when resolving before Freeze.
	ErrRegistryNotFrozen = errors.New("routing table is not frozen")
)

// RoutingTable maps unit ids to live endpoints.
//
// Lifecycle: Register every component from the wiring goroutine, then Freeze.
// After Freeze the map is never written again, so Resolve and Send read it
// without locking from any number of goroutines.
type RoutingTable struct {
	mu        sync.Mutex // guards endpoints until frozen
	endpoints map[UnitID]Endpoint
	frozen    atomic.Bool
}

// NewRoutingTable creates an empty, unfrozen table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{endpoints: make(map[UnitID]Endpoint)}
}

// Register adds ep under ep.ID().
func (t *RoutingTable) Register(ep Endpoint) error {
	if ep == nil {
		return errors.New("register: nil endpoint")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen.Load() {
		return fmt.Errorf("register unit %d: %w", ep.ID(), ErrRegistryFrozen)
	}
	if _, ok := t.endpoints[ep.ID()]; ok {
		return fmt.Errorf("register unit %d: %w", ep.ID(), ErrDuplicateUnit)
	}
	t.endpoints[ep.ID()] = ep
	return nil
}

// Freeze ends the registration phase. Idempotent.
func (t *RoutingTable) Freeze() {
	t.mu.Lock()
	t.frozen.Store(true)
	t.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (t *RoutingTable) Frozen() bool {
	return t.frozen.Load()
}

// Has reports whether id is registered. Safe before and after Freeze.
func (t *RoutingTable) Has(id UnitID) bool {
	if !t.frozen.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	_, ok := t.endpoints[id]
	return ok
}

// Resolve returns the endpoint registered under id.
func (t *RoutingTable) Resolve(id UnitID) (Endpoint, error) {
	if !t.frozen.Load() {
		return nil, fmt.Errorf("resolve unit %d: %w", id, ErrRegistryNotFrozen)
	}
	ep, ok := t.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("resolve unit %d: %w", id, ErrUnknownDestination)
	}
	return ep, nil
}

// Send resolves id and hands msg to its endpoint. It returns when the
// endpoint accepted or refused the message.
func (t *RoutingTable) Send(ctx context.Context, id UnitID, msg *Message) error {
	ep, err := t.Resolve(id)
	if err != nil {
		return err
	}
	return ep.Accept(ctx, msg)
}

// IDs returns the registered ids in ascending order.
func (t *RoutingTable) IDs() []UnitID {
	if !t.frozen.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	ids := make([]UnitID, 0, len(t.endpoints))
	for id := range t.endpoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered endpoints.
func (t *RoutingTable) Len() int {
	if !t.frozen.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	return len(t.endpoints)
}
