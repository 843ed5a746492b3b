// Package rendersched provides the render-job scheduling subsystem: it
// admits rendering work requests, orders them by priority, bounds
// concurrent execution, tracks progress and state transitions, retries
// transient failures, aggregates multi-scene batches, computes
// cancellation refunds, and reclaims storage for stale completed work.
//
// Rendersched is designed as a library, not a service. Import it,
// configure a store, and drive it from your API layer and execution
// backend.
//
// # Quick Start
//
//	eng, err := engine.New(memory.New(),
//	    engine.WithMaxConcurrent(3),
//	)
//	j, err := eng.CreateJob(ctx, job.CreateParams{...})
//
// # Architecture
//
// The root package holds shared types, sentinel errors, and configuration.
// Each subsystem (job, batch, queue, backoff, event, refund, sweep) lives
// in its own package; the engine package wires them together. Persistence
// follows a composable store pattern: job.Store and batch.Store are small
// interfaces, and a single backend (store/memory, store/redis,
// store/postgres) implements both.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package rendersched
