package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// CreateBatch stores the batch as a Hash and indexes it by user.
func (s *Store) CreateBatch(ctx context.Context, b *batch.Batch) error {
	bID := b.ID.String()
	key := batchKey(bID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rendersched/redis: create batch check exists: %w", err)
	}
	if exists > 0 {
		return rendersched.ErrBatchAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, batchToMap(b))
	pipe.SAdd(ctx, batchIDsKey, bID)
	pipe.SAdd(ctx, userBatchesKey(b.UserID), bID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rendersched/redis: create batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *Store) GetBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	vals, err := s.client.HGetAll(ctx, batchKey(batchID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: get batch: %w", err)
	}
	if len(vals) == 0 {
		return nil, rendersched.ErrBatchNotFound
	}
	return mapToBatch(vals)
}

// UpdateBatch persists the cached derived fields.
func (s *Store) UpdateBatch(ctx context.Context, b *batch.Batch) error {
	key := batchKey(b.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rendersched/redis: update batch exists: %w", err)
	}
	if exists == 0 {
		return rendersched.ErrBatchNotFound
	}

	if _, err := s.client.HSet(ctx, key, batchToMap(b)).Result(); err != nil {
		return fmt.Errorf("rendersched/redis: update batch: %w", err)
	}
	return nil
}

// ListBatchesByUser returns the user's batches, newest first.
func (s *Store) ListBatchesByUser(ctx context.Context, userID string) ([]*batch.Batch, error) {
	ids, err := s.client.SMembers(ctx, userBatchesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: list batches smembers: %w", err)
	}

	batches := make([]*batch.Batch, 0, len(ids))
	for _, bID := range ids {
		vals, getErr := s.client.HGetAll(ctx, batchKey(bID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		b, mapErr := mapToBatch(vals)
		if mapErr != nil {
			continue
		}
		batches = append(batches, b)
	}

	sort.Slice(batches, func(i, k int) bool {
		return batches[i].CreatedAt.After(batches[k].CreatedAt)
	})
	return batches, nil
}

// ── helpers ──

func batchToMap(b *batch.Batch) map[string]interface{} {
	jobIDs := make([]string, len(b.JobIDs))
	for i, jID := range b.JobIDs {
		jobIDs[i] = jID.String()
	}
	ids, _ := json.Marshal(jobIDs) //nolint:errcheck // []string always marshals

	return map[string]interface{}{
		"id":              b.ID.String(),
		"project_id":      b.ProjectID,
		"user_id":         b.UserID,
		"job_ids":         string(ids),
		"status":          string(b.Status),
		"completed_count": strconv.Itoa(b.CompletedCount),
		"progress":        strconv.Itoa(b.Progress),
		"created_at":      b.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":      b.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func mapToBatch(m map[string]string) (*batch.Batch, error) {
	bID, err := id.ParseBatchID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: parse batch id: %w", err)
	}

	var rawIDs []string
	if jErr := json.Unmarshal([]byte(m["job_ids"]), &rawIDs); jErr != nil {
		return nil, fmt.Errorf("rendersched/redis: parse batch job ids: %w", jErr)
	}
	jobIDs := make([]id.JobID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		jID, pErr := id.ParseJobID(raw)
		if pErr != nil {
			continue
		}
		jobIDs = append(jobIDs, jID)
	}

	completedCount, _ := strconv.Atoi(m["completed_count"])       //nolint:errcheck // best-effort parse from trusted Redis data
	progress, _ := strconv.Atoi(m["progress"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	return &batch.Batch{
		Entity: rendersched.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:             bID,
		ProjectID:      m["project_id"],
		UserID:         m["user_id"],
		JobIDs:         jobIDs,
		Status:         batch.Status(m["status"]),
		CompletedCount: completedCount,
		Progress:       progress,
	}, nil
}
