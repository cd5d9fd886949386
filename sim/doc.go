// Package sim provides the core of the multi-tier message-passing simulator.
//
// # Reading Guide
//
// Start with these files to understand how a message travels:
//   - message.go: the Message envelope and its append-only stage ledger
//   - registry.go: the RoutingTable every component sends through by id
//   - source.go: generation, collection and the end-of-run condition
//   - dispatcher.go: the bounded queue and the dispatch loop of a load balancer
//   - worker.go: single-capacity service with a sampled delay
//
// # Architecture
//
// Components never reference each other directly. Each one is an Endpoint
// registered under a UnitID in a RoutingTable that is built at startup and
// frozen before any goroutine starts. A send resolves the id and calls
// Accept, which hands the message off through a bounded channel and returns
// without waiting for downstream processing.
//
// Implementations that are not part of the kernel live in sub-packages:
//   - sim/cluster/: topology expansion, validation, wiring and the run driver
//   - sim/workload/: inter-arrival samplers for the source
//   - sim/trace/: admission and dispatch decision recording
//   - sim/ledger/: per-message ledger export to CSV
//
// # Key Interfaces
//
//   - Endpoint: Accept(ctx, msg) is the only way a message changes hands
//   - RoutingPolicy: pick a child of a dispatcher given queue-depth snapshots
//   - ArrivalSampler: gap between two generations of the source
package sim
