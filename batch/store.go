package batch

import (
	"context"

	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// Store defines the persistence contract for batches.
type Store interface {
	// CreateBatch persists a new batch.
	CreateBatch(ctx context.Context, b *Batch) error

	// GetBatch retrieves a batch by ID. Returns
	// rendersched.ErrBatchNotFound for unknown IDs.
	GetBatch(ctx context.Context, batchID id.BatchID) (*Batch, error)

	// UpdateBatch persists the cached derived fields.
	UpdateBatch(ctx context.Context, b *Batch) error

	// ListBatchesByUser returns the user's batches ordered by creation
	// time, newest first.
	ListBatchesByUser(ctx context.Context, userID string) ([]*Batch, error)
}
