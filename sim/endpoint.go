package sim

import (
	"context"
	"strconv"
)

// UnitID addresses a component. Values follow the port-number convention of
// the deployment this simulator models (e.g. 1000 for the source, 2000 for the
// first load balancer and 2001.. for its services).
type UnitID int

func (u UnitID) String() string {
	return strconv.Itoa(int(u))
}

// Endpoint is the capability every addressable component exposes to senders.
//
// Accept returns once the component has taken ownership of msg (nil) or has
// refused it (ErrQueueFull under the reject overflow policy). It never waits
// for the component to finish processing the message. The in-process
// implementations hand the message off through a bounded channel; a socket
// transport can implement the same contract without touching routing or
// timing code.
type Endpoint interface {
	ID() UnitID
	Accept(ctx context.Context, msg *Message) error
}

// QueueDepthReporter is implemented by endpoints that buffer messages.
// Load-aware routing policies use it to build RoutingSnapshots.
type QueueDepthReporter interface {
	QueueDepth() int
}

// Runner is implemented by components that own a goroutine. Run blocks until
// ctx is cancelled or the component fails.
type Runner interface {
	Run(ctx context.Context) error
}
