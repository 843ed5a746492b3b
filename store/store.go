// Package store defines the aggregate persistence interface. The job and
// batch subsystems each define their own store interface; the composite
// Store composes both. Backends: Memory, Redis, and Postgres.
package store

import (
	"context"

	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// Store is the aggregate persistence interface. A single backend
// implements both subsystem contracts plus lifecycle operations.
//
// The in-memory backend is the authoritative copy during operation; the
// Redis and Postgres backends provide durable write-through for
// deployments where job records must survive restarts.
type Store interface {
	job.Store
	batch.Store

	// Migrate runs schema migrations (no-op for schemaless backends).
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
