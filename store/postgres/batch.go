package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/id"
)

const batchColumns = `
	id, project_id, user_id, job_ids,
	status, completed_count, progress,
	created_at, updated_at`

// CreateBatch persists a new batch.
func (s *Store) CreateBatch(ctx context.Context, b *batch.Batch) error {
	jobIDs, err := encodeJobIDs(b.JobIDs)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rendersched_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID.String(), b.ProjectID, b.UserID, jobIDs,
		string(b.Status), b.CompletedCount, b.Progress,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return rendersched.ErrBatchAlreadyExists
		}
		return fmt.Errorf("rendersched/postgres: create batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *Store) GetBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM rendersched_batches WHERE id = $1`,
		batchID.String(),
	)

	b, err := scanBatch(row)
	if err != nil {
		if isNoRows(err) {
			return nil, rendersched.ErrBatchNotFound
		}
		return nil, fmt.Errorf("rendersched/postgres: get batch: %w", err)
	}
	return b, nil
}

// UpdateBatch persists the cached derived fields.
func (s *Store) UpdateBatch(ctx context.Context, b *batch.Batch) error {
	jobIDs, err := encodeJobIDs(b.JobIDs)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rendersched_batches SET
			job_ids = $2, status = $3, completed_count = $4,
			progress = $5, updated_at = $6
		WHERE id = $1`,
		b.ID.String(), jobIDs, string(b.Status),
		b.CompletedCount, b.Progress, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rendersched/postgres: update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rendersched.ErrBatchNotFound
	}
	return nil
}

// ListBatchesByUser returns the user's batches, newest first.
func (s *Store) ListBatchesByUser(ctx context.Context, userID string) ([]*batch.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM rendersched_batches
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("rendersched/postgres: list batches by user: %w", err)
	}
	defer rows.Close()

	var batches []*batch.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("rendersched/postgres: scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rendersched/postgres: iterate batches: %w", err)
	}
	return batches, nil
}

// ── helpers ──

func encodeJobIDs(ids []id.JobID) ([]byte, error) {
	strs := make([]string, len(ids))
	for i, jid := range ids {
		strs[i] = jid.String()
	}
	out, err := json.Marshal(strs)
	if err != nil {
		return nil, fmt.Errorf("rendersched/postgres: marshal job ids: %w", err)
	}
	return out, nil
}

func scanBatch(row pgx.Row) (*batch.Batch, error) {
	var (
		rawID, status string
		jobIDsJSON    []byte
		b             batch.Batch
	)

	err := row.Scan(
		&rawID, &b.ProjectID, &b.UserID, &jobIDsJSON,
		&status, &b.CompletedCount, &b.Progress,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ID, err = id.ParseBatchID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse batch id: %w", err)
	}
	b.Status = batch.Status(status)

	var strs []string
	if err := json.Unmarshal(jobIDsJSON, &strs); err != nil {
		return nil, fmt.Errorf("unmarshal job ids: %w", err)
	}
	b.JobIDs = make([]id.JobID, 0, len(strs))
	for _, s := range strs {
		jid, pErr := id.ParseJobID(s)
		if pErr != nil {
			return nil, fmt.Errorf("parse job id %q: %w", s, pErr)
		}
		b.JobIDs = append(b.JobIDs, jid)
	}

	return &b, nil
}
