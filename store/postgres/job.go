package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// jobColumns is the canonical column list shared by every job query.
const jobColumns = `
	id, project_id, scene_id, user_id, batch_id,
	output_format, width, height, engine, samples, fps, duration,
	priority, status, progress, credits_cost, estimated_s,
	output_url, result, error,
	retry_on_fail, retry_count, max_retries,
	run_at, started_at, completed_at, metadata,
	created_at, updated_at`

// CreateJob persists a new job.
func (s *Store) CreateJob(ctx context.Context, j *job.RenderJob) error {
	resultJSON, metaJSON, err := encodeJobJSON(j)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rendersched_jobs (`+jobColumns+`)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27,
			$28, $29
		)`,
		j.ID.String(), j.ProjectID, j.SceneID, j.UserID, nullableID(j.BatchID),
		string(j.OutputFormat), j.Resolution.Width, j.Resolution.Height,
		string(j.Engine), j.Samples, j.FPS, j.Duration,
		string(j.Priority), string(j.Status), j.Progress, j.CreditsCost, j.EstimatedTimeSeconds,
		j.OutputURL, resultJSON, j.Error,
		j.RetryOnFailure, j.RetryCount, j.MaxRetries,
		nullableTime(j.RunAt), j.StartedAt, j.CompletedAt, metaJSON,
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return rendersched.ErrJobAlreadyExists
		}
		return fmt.Errorf("rendersched/postgres: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.RenderJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM rendersched_jobs WHERE id = $1`,
		jobID.String(),
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, rendersched.ErrJobNotFound
		}
		return nil, fmt.Errorf("rendersched/postgres: get job: %w", err)
	}
	return j, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.RenderJob) error {
	resultJSON, metaJSON, err := encodeJobJSON(j)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rendersched_jobs SET
			batch_id = $2, output_format = $3, width = $4, height = $5,
			engine = $6, samples = $7, fps = $8, duration = $9,
			priority = $10, status = $11, progress = $12,
			credits_cost = $13, estimated_s = $14,
			output_url = $15, result = $16, error = $17,
			retry_on_fail = $18, retry_count = $19, max_retries = $20,
			run_at = $21, started_at = $22, completed_at = $23,
			metadata = $24, updated_at = $25
		WHERE id = $1`,
		j.ID.String(), nullableID(j.BatchID), string(j.OutputFormat),
		j.Resolution.Width, j.Resolution.Height,
		string(j.Engine), j.Samples, j.FPS, j.Duration,
		string(j.Priority), string(j.Status), j.Progress,
		j.CreditsCost, j.EstimatedTimeSeconds,
		j.OutputURL, resultJSON, j.Error,
		j.RetryOnFailure, j.RetryCount, j.MaxRetries,
		nullableTime(j.RunAt), j.StartedAt, j.CompletedAt,
		metaJSON, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rendersched/postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rendersched.ErrJobNotFound
	}
	return nil
}

// DeleteJob removes a job record entirely.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rendersched_jobs WHERE id = $1`,
		jobID.String(),
	)
	if err != nil {
		return fmt.Errorf("rendersched/postgres: delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rendersched.ErrJobNotFound
	}
	return nil
}

// ListJobsByUser returns the user's jobs, newest first.
func (s *Store) ListJobsByUser(ctx context.Context, userID string, opts job.ListOpts) ([]*job.RenderJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM rendersched_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT CASE WHEN $2 > 0 THEN $2 END OFFSET $3`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("rendersched/postgres: list jobs by user: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListJobsByStatus returns jobs matching the given status, oldest first.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.RenderJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM rendersched_jobs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT CASE WHEN $2 > 0 THEN $2 END OFFSET $3`,
		string(status), opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("rendersched/postgres: list jobs by status: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListTerminalBefore returns terminal jobs completed before the cutoff.
func (s *Store) ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*job.RenderJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM rendersched_jobs
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND completed_at < $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("rendersched/postgres: list terminal before: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ── helpers ──

func encodeJobJSON(j *job.RenderJob) (result, metadata []byte, err error) {
	if j.Result != nil {
		result, err = json.Marshal(j.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("rendersched/postgres: marshal result: %w", err)
		}
	}
	if len(j.Metadata) > 0 {
		metadata, err = json.Marshal(j.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("rendersched/postgres: marshal metadata: %w", err)
		}
	}
	return result, metadata, nil
}

// nullableID maps the zero ID to NULL.
func nullableID(v id.ID) any {
	if v.IsNil() {
		return nil
	}
	return v.String()
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func collectJobs(rows pgx.Rows) ([]*job.RenderJob, error) {
	var jobs []*job.RenderJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("rendersched/postgres: scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rendersched/postgres: iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*job.RenderJob, error) {
	var (
		rawID, outputFormat, priority, status string
		batchID, engine, outputURL, errMsg    *string
		resultJSON, metaJSON                  []byte
		runAt                                 *time.Time
		j                                     job.RenderJob
	)

	err := row.Scan(
		&rawID, &j.ProjectID, &j.SceneID, &j.UserID, &batchID,
		&outputFormat, &j.Resolution.Width, &j.Resolution.Height,
		&engine, &j.Samples, &j.FPS, &j.Duration,
		&priority, &status, &j.Progress, &j.CreditsCost, &j.EstimatedTimeSeconds,
		&outputURL, &resultJSON, &errMsg,
		&j.RetryOnFailure, &j.RetryCount, &j.MaxRetries,
		&runAt, &j.StartedAt, &j.CompletedAt, &metaJSON,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.ID, err = id.ParseJobID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	if batchID != nil {
		if parsed, pErr := id.ParseBatchID(*batchID); pErr == nil {
			j.BatchID = parsed
		}
	}
	j.OutputFormat = job.OutputFormat(outputFormat)
	j.Priority = job.Priority(priority)
	j.Status = job.Status(status)
	if engine != nil {
		j.Engine = job.Engine(*engine)
	}
	if outputURL != nil {
		j.OutputURL = *outputURL
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	if runAt != nil {
		j.RunAt = *runAt
	}
	if len(resultJSON) > 0 {
		var res job.Result
		if jErr := json.Unmarshal(resultJSON, &res); jErr == nil {
			j.Result = &res
		}
	}
	if len(metaJSON) > 0 {
		var meta map[string]string
		if jErr := json.Unmarshal(metaJSON, &meta); jErr == nil {
			j.Metadata = meta
		}
	}

	return &j, nil
}
