package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// BatchParams describes a multi-scene render request. Every scene
// becomes one job sharing the project, user, output settings, and
// per-scene cost.
type BatchParams struct {
	ProjectID string
	UserID    string
	SceneIDs  []string

	OutputFormat job.OutputFormat
	Resolution   job.Resolution
	Quality      string
	Engine       job.Engine
	Samples      int
	FPS          int
	Duration     float64

	Priority        job.Priority
	CreditsPerScene float64
	RetryOnFailure  bool
}

// CreateBatchRender creates one render job per scene through the normal
// admission path and groups them under a new Batch. Admission is
// all-or-nothing: if any member cannot be validated or the queue lacks
// room for the whole batch, no job and no batch is persisted.
func (eng *Engine) CreateBatchRender(ctx context.Context, params BatchParams) (*batch.Batch, []*job.RenderJob, error) {
	if len(params.SceneIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one sceneId is required", rendersched.ErrMissingFields)
	}

	jobs := make([]*job.RenderJob, 0, len(params.SceneIDs))
	for _, sceneID := range params.SceneIDs {
		j, err := job.New(job.CreateParams{
			ProjectID:      params.ProjectID,
			SceneID:        sceneID,
			UserID:         params.UserID,
			OutputFormat:   params.OutputFormat,
			Resolution:     params.Resolution,
			Quality:        params.Quality,
			Engine:         params.Engine,
			Samples:        params.Samples,
			FPS:            params.FPS,
			Duration:       params.Duration,
			Priority:       params.Priority,
			CreditsCost:    params.CreditsPerScene,
			RetryOnFailure: params.RetryOnFailure,
		}, eng.cfg.MaxRetries)
		if err != nil {
			return nil, nil, fmt.Errorf("scene %q: %w", sceneID, err)
		}
		jobs = append(jobs, j)
	}

	memberIDs := make([]id.JobID, len(jobs))
	for i, j := range jobs {
		memberIDs[i] = j.ID
	}
	b := batch.New(params.ProjectID, params.UserID, memberIDs)
	for _, j := range jobs {
		j.BatchID = b.ID
	}

	eng.mu.Lock()
	if err := eng.admitBatchLocked(ctx, b, jobs); err != nil {
		eng.mu.Unlock()
		return nil, nil, err
	}
	eng.mu.Unlock()

	eng.metrics.JobsCreated.Add(ctx, int64(len(jobs)))
	eng.logger.Info("batch created",
		slog.String("batch_id", b.ID.String()),
		slog.String("user_id", b.UserID),
		slog.Int("jobs", len(jobs)),
	)
	return b, jobs, nil
}

// admitBatchLocked pushes and persists all members plus the batch,
// unwinding everything on the first failure. Caller must hold eng.mu.
func (eng *Engine) admitBatchLocked(ctx context.Context, b *batch.Batch, jobs []*job.RenderJob) error {
	pushed := 0
	for _, j := range jobs {
		if err := eng.pending.Push(j.ID, j.Priority.Rank(), time.Time{}); err != nil {
			for _, p := range jobs[:pushed] {
				eng.pending.Remove(p.ID)
			}
			return err
		}
		pushed++
	}

	created := 0
	for _, j := range jobs {
		if err := eng.store.CreateJob(ctx, j); err != nil {
			for _, c := range jobs[:created] {
				_ = eng.store.DeleteJob(ctx, c.ID)
			}
			for _, p := range jobs {
				eng.pending.Remove(p.ID)
			}
			return fmt.Errorf("persist job: %w", err)
		}
		created++
	}

	if err := eng.store.CreateBatch(ctx, b); err != nil {
		for _, j := range jobs {
			_ = eng.store.DeleteJob(ctx, j.ID)
			eng.pending.Remove(j.ID)
		}
		return fmt.Errorf("persist batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch with its derived status and progress
// recomputed from the members' current statuses. The refreshed values
// are persisted back as the cached projection.
func (eng *Engine) GetBatch(ctx context.Context, batchID id.BatchID) (*batch.Batch, error) {
	b, err := eng.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := eng.refreshBatch(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetUserBatches returns the user's batches, newest first.
func (eng *Engine) GetUserBatches(ctx context.Context, userID string) ([]*batch.Batch, error) {
	return eng.store.ListBatchesByUser(ctx, userID)
}

// refreshBatch recomputes and persists the derived fields from the
// members' current statuses. Pruned members are skipped; they count as
// not completed.
func (eng *Engine) refreshBatch(ctx context.Context, b *batch.Batch) error {
	statuses := make([]job.Status, 0, len(b.JobIDs))
	for _, jobID := range b.JobIDs {
		j, err := eng.store.GetJob(ctx, jobID)
		if err != nil {
			continue
		}
		statuses = append(statuses, j.Status)
	}

	b.Refresh(statuses)
	b.Touch(eng.now())
	return eng.store.UpdateBatch(ctx, b)
}

func (eng *Engine) refreshBatchByID(ctx context.Context, batchID id.BatchID) {
	b, err := eng.store.GetBatch(ctx, batchID)
	if err == nil {
		err = eng.refreshBatch(ctx, b)
	}
	if err != nil {
		eng.logger.Warn("batch refresh failed",
			slog.String("batch_id", batchID.String()),
			slog.String("error", err.Error()),
		)
	}
}
