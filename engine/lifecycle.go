package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// StartJob moves a pending job into rendering, acquiring a concurrency
// slot. The queue entry, limiter counter, and status transition change
// together under the engine mutex. Most callers let ProcessQueue pick
// jobs instead; StartJob exists for callers that dispatch a specific job.
func (eng *Engine) StartJob(ctx context.Context, jobID id.JobID) error {
	eng.mu.Lock()
	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		eng.mu.Unlock()
		return err
	}
	if !j.Status.CanTransitionTo(job.StatusRendering) {
		eng.mu.Unlock()
		return fmt.Errorf("%w: cannot start %s job", rendersched.ErrInvalidState, j.Status)
	}
	if !eng.limiter.TryAcquire() {
		eng.mu.Unlock()
		return rendersched.ErrConcurrencyLimit
	}

	eng.pending.Remove(jobID)
	if err := eng.markRendering(ctx, j); err != nil {
		eng.limiter.Release()
		_ = eng.pending.Push(j.ID, j.Priority.Rank(), j.RunAt)
		eng.mu.Unlock()
		return err
	}
	eng.mu.Unlock()

	eng.afterDispatch(ctx, j)
	return nil
}

// UpdateProgress records a progress report from the execution backend.
// Legal only while the job is rendering; the percentage is clamped to
// [0, 100]. Subscribers are notified after the store write.
func (eng *Engine) UpdateProgress(ctx context.Context, jobID id.JobID, pct int) error {
	eng.mu.Lock()
	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		eng.mu.Unlock()
		return err
	}
	if j.Status != job.StatusRendering {
		eng.mu.Unlock()
		return fmt.Errorf("%w: cannot update progress of %s job", rendersched.ErrInvalidState, j.Status)
	}

	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	j.Progress = pct
	j.Touch(eng.now())
	if err := eng.store.UpdateJob(ctx, j); err != nil {
		eng.mu.Unlock()
		return err
	}
	eng.mu.Unlock()

	eng.notifier.EmitProgress(jobID, pct)
	return nil
}

// CompleteJob records a successful render. The job must be rendering.
// Progress becomes 100, the result and completion time are stored, the
// concurrency slot is released, and freed capacity is dispatched
// immediately. The owning batch, if any, is refreshed.
func (eng *Engine) CompleteJob(ctx context.Context, jobID id.JobID, result job.Result) error {
	eng.mu.Lock()
	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		eng.mu.Unlock()
		return err
	}
	if j.Status != job.StatusRendering {
		eng.mu.Unlock()
		return fmt.Errorf("%w: cannot complete %s job", rendersched.ErrInvalidState, j.Status)
	}

	now := eng.now()
	res := result
	if res.RenderTime == 0 && j.StartedAt != nil {
		res.RenderTime = now.Sub(*j.StartedAt)
	}
	j.Status = job.StatusCompleted
	j.Progress = 100
	j.OutputURL = res.URL
	j.Result = &res
	j.CompletedAt = &now
	j.Touch(now)
	if err := eng.store.UpdateJob(ctx, j); err != nil {
		eng.mu.Unlock()
		return err
	}

	eng.limiter.Release()
	started := eng.dispatchLocked(ctx)
	eng.mu.Unlock()

	eng.logger.Info("job completed",
		slog.String("job_id", jobID.String()),
		slog.Duration("render_time", res.RenderTime),
	)
	eng.metrics.RecordCompletion(ctx, string(j.Priority), res.RenderTime)
	eng.notifier.EmitStatus(jobID, job.StatusCompleted)
	if !j.BatchID.IsNil() {
		eng.refreshBatchByID(ctx, j.BatchID)
	}
	eng.afterDispatchAll(ctx, started)
	return nil
}

// FailJob records an execution failure. If the job opted into retries
// and has budget left, it is re-admitted as scheduled at the back of its
// priority band, eligible after the backoff delay. Otherwise it becomes
// terminal failed with the last error message preserved.
func (eng *Engine) FailJob(ctx context.Context, jobID id.JobID, errMsg string) error {
	eng.mu.Lock()
	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		eng.mu.Unlock()
		return err
	}
	if j.Status != job.StatusRendering {
		eng.mu.Unlock()
		return fmt.Errorf("%w: cannot fail %s job", rendersched.ErrInvalidState, j.Status)
	}

	now := eng.now()
	j.Error = errMsg
	retried := false
	if j.RetryOnFailure {
		// Each failure consumes one attempt; the failure that exhausts
		// the budget is terminal with the count preserved.
		j.RetryCount++
		retried = j.RetryCount < j.MaxRetries
	}
	if retried {
		j.Status = job.StatusScheduled
		j.Progress = 0
		j.StartedAt = nil
		j.RunAt = now.Add(eng.bo.Delay(j.RetryCount))
		if err := eng.pending.Push(j.ID, j.Priority.Rank(), j.RunAt); err != nil {
			// No queue slot for the retry; the failure is final.
			retried = false
			j.Status = job.StatusFailed
			j.RunAt = time.Time{}
		}
	}
	if !retried {
		j.Status = job.StatusFailed
		j.CompletedAt = &now
	}
	j.Touch(now)
	if err := eng.store.UpdateJob(ctx, j); err != nil {
		if retried {
			eng.pending.Remove(j.ID)
		}
		eng.mu.Unlock()
		return err
	}

	eng.limiter.Release()
	started := eng.dispatchLocked(ctx)
	eng.mu.Unlock()

	if retried {
		eng.logger.Warn("job failed, retry scheduled",
			slog.String("job_id", jobID.String()),
			slog.Int("attempt", j.RetryCount),
			slog.Time("run_at", j.RunAt),
			slog.String("error", errMsg),
		)
		eng.metrics.JobsRetried.Add(ctx, 1)
		eng.notifier.EmitStatus(jobID, job.StatusScheduled)
	} else {
		eng.logger.Error("job failed",
			slog.String("job_id", jobID.String()),
			slog.Int("retry_count", j.RetryCount),
			slog.String("error", errMsg),
		)
		eng.metrics.JobsFailed.Add(ctx, 1)
		eng.notifier.EmitStatus(jobID, job.StatusFailed)
	}
	eng.afterDispatchAll(ctx, started)
	return nil
}

// CancelJob cancels a pending or rendering job and returns the credits
// to refund. Terminal jobs fail with ErrCannotCancel naming the current
// status. The refund amount is also recorded in the job's metadata;
// posting the ledger transaction is the billing collaborator's job.
func (eng *Engine) CancelJob(ctx context.Context, jobID id.JobID, reason, cancelledBy string) (float64, error) {
	eng.mu.Lock()
	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		eng.mu.Unlock()
		return 0, err
	}
	if !j.Status.CanTransitionTo(job.StatusCancelled) {
		eng.mu.Unlock()
		return 0, fmt.Errorf("%w: job is %s", rendersched.ErrCannotCancel, j.Status)
	}

	wasRendering := j.Status == job.StatusRendering
	if !wasRendering {
		eng.pending.Remove(jobID)
	}

	amount := eng.refunds.Refund(j.CreditsCost, j.Status, j.Progress)
	now := eng.now()
	j.Status = job.StatusCancelled
	j.CompletedAt = &now
	if reason != "" {
		j.Error = reason
	}
	j.SetMeta(job.MetaCancelledAt, now.Format(time.RFC3339))
	if cancelledBy != "" {
		j.SetMeta(job.MetaCancelledBy, cancelledBy)
	}
	j.SetMeta(job.MetaCreditsRefunded, strconv.FormatFloat(amount, 'f', 2, 64))
	j.Touch(now)
	if err := eng.store.UpdateJob(ctx, j); err != nil {
		eng.mu.Unlock()
		return 0, err
	}

	var started []*job.RenderJob
	if wasRendering {
		eng.limiter.Release()
		started = eng.dispatchLocked(ctx)
	}
	eng.mu.Unlock()

	eng.logger.Info("job cancelled",
		slog.String("job_id", jobID.String()),
		slog.String("cancelled_by", cancelledBy),
		slog.Float64("credits_refunded", amount),
	)
	eng.metrics.JobsCancelled.Add(ctx, 1)
	eng.notifier.EmitStatus(jobID, job.StatusCancelled)
	eng.afterDispatchAll(ctx, started)
	return amount, nil
}

// ProcessQueue dispatches pending jobs while concurrency allows and
// returns how many were started. Safe to call from multiple triggers
// simultaneously and idempotent when nothing is eligible; the engine
// also invokes it after every transition that frees capacity.
func (eng *Engine) ProcessQueue(ctx context.Context) int {
	eng.mu.Lock()
	started := eng.dispatchLocked(ctx)
	eng.mu.Unlock()

	eng.afterDispatchAll(ctx, started)
	return len(started)
}

// dispatchLocked pops eligible entries and moves them into rendering
// until capacity runs out. Caller must hold eng.mu. Returned jobs need
// afterDispatchAll once the mutex is released.
func (eng *Engine) dispatchLocked(ctx context.Context) []*job.RenderJob {
	var started []*job.RenderJob
	for eng.limiter.Active() < eng.limiter.Max() {
		entry, ok := eng.pending.Pop(eng.now())
		if !ok {
			break
		}

		j, err := eng.store.GetJob(ctx, entry.JobID)
		if err != nil || !j.Status.Pending() {
			// Stale entry: the job was pruned or left the pending state.
			continue
		}

		if !eng.limiter.TryAcquire() {
			eng.pending.Requeue(entry)
			break
		}
		if err := eng.markRendering(ctx, j); err != nil {
			eng.limiter.Release()
			eng.pending.Requeue(entry)
			eng.logger.Error("dispatch failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
			break
		}
		started = append(started, j)
	}
	return started
}

// markRendering flips a pending job to rendering and persists it.
// Caller must hold eng.mu and a limiter slot.
func (eng *Engine) markRendering(ctx context.Context, j *job.RenderJob) error {
	now := eng.now()
	j.Status = job.StatusRendering
	j.StartedAt = &now
	j.Touch(now)
	return eng.store.UpdateJob(ctx, j)
}

// afterDispatch delivers the post-dispatch side effects for one started
// job: log, metric, status notification, and the backend handoff.
func (eng *Engine) afterDispatch(ctx context.Context, j *job.RenderJob) {
	eng.logger.Info("job dispatched",
		slog.String("job_id", j.ID.String()),
		slog.String("priority", string(j.Priority)),
		slog.Int("active", eng.limiter.Active()),
	)
	eng.metrics.JobsDispatched.Add(ctx, 1)
	eng.notifier.EmitStatus(j.ID, job.StatusRendering)
	if eng.dispatcher != nil {
		eng.dispatcher.Dispatch(ctx, j)
	}
}

func (eng *Engine) afterDispatchAll(ctx context.Context, jobs []*job.RenderJob) {
	for _, j := range jobs {
		eng.afterDispatch(ctx, j)
	}
}
