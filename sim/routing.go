package sim

import "fmt"

// RoutingSnapshot is a lightweight view of a child endpoint for policy decisions.
// QueueDepth is 0 for children that do not implement QueueDepthReporter.
type RoutingSnapshot struct {
	ID         UnitID
	QueueDepth int
}

// RoutingDecision encapsulates the routing decision for a message.
type RoutingDecision struct {
	Target UnitID // must match a snapshot ID
	Reason string // human-readable explanation
}

// RoutingPolicy decides which child of a dispatcher receives a message.
// A policy instance belongs to one dispatcher and is only called from that
// dispatcher's goroutine.
type RoutingPolicy interface {
	Route(msg *Message, snapshots []RoutingSnapshot) RoutingDecision
}

// RoundRobin cycles through the children in configured order.
// Over K consecutive decisions with C children each child is chosen
// floor(K/C) or ceil(K/C) times.
type RoundRobin struct {
	counter int
}

// Route implements RoutingPolicy for RoundRobin.
func (rr *RoundRobin) Route(_ *Message, snapshots []RoutingSnapshot) RoutingDecision {
	if len(snapshots) == 0 {
		panic("RoundRobin.Route: empty snapshots")
	}
	target := snapshots[rr.counter%len(snapshots)]
	rr.counter++
	return RoutingDecision{
		Target: target.ID,
		Reason: fmt.Sprintf("round-robin[%d]", rr.counter-1),
	}
}

// LeastLoaded routes to the child with the shortest queue.
// Ties are broken by first occurrence in snapshot order (lowest index), so
// with idle children it always picks the first free one.
type LeastLoaded struct{}

// Route implements RoutingPolicy for LeastLoaded.
func (ll *LeastLoaded) Route(_ *Message, snapshots []RoutingSnapshot) RoutingDecision {
	if len(snapshots) == 0 {
		panic("LeastLoaded.Route: empty snapshots")
	}

	minLoad := snapshots[0].QueueDepth
	target := snapshots[0]

	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].QueueDepth < minLoad {
			minLoad = snapshots[i].QueueDepth
			target = snapshots[i]
		}
	}

	return RoutingDecision{
		Target: target.ID,
		Reason: fmt.Sprintf("least-loaded (depth=%d)", minLoad),
	}
}

var validRoutingPolicies = map[string]bool{
	"":             true, // empty defaults to round-robin
	"round-robin":  true,
	"least-loaded": true,
}

// IsValidRoutingPolicy returns true if name is a recognized routing policy.
func IsValidRoutingPolicy(name string) bool {
	return validRoutingPolicies[name]
}

// NewRoutingPolicy creates a routing policy by name.
// Empty string defaults to round-robin. Panics on unrecognized names.
func NewRoutingPolicy(name string) RoutingPolicy {
	if !IsValidRoutingPolicy(name) {
		panic(fmt.Sprintf("unknown routing policy %q", name))
	}
	switch name {
	case "", "round-robin":
		return &RoundRobin{}
	case "least-loaded":
		return &LeastLoaded{}
	default:
		panic(fmt.Sprintf("unhandled routing policy %q", name))
	}
}
