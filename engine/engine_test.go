package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/backoff"
	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/engine"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
	"github.com/AaraikAI/Abode-AI-sub011/store/memory"
)

// ──────────────────────────────────────────────────
// Test fixtures
// ──────────────────────────────────────────────────

// fakeClock is an injectable time source advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newEngine(t *testing.T, clock *fakeClock, opts ...engine.Option) *engine.Engine {
	t.Helper()

	base := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(clock.Now),
	}
	eng, err := engine.New(memory.New(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func stillParams(userID string) job.CreateParams {
	return job.CreateParams{
		ProjectID:    "proj-1",
		SceneID:      "scene-1",
		UserID:       userID,
		OutputFormat: job.OutputFormatStill,
		Resolution:   job.Resolution{Width: 1920, Height: 1080},
		CreditsCost:  50,
	}
}

// mustCreate creates a job or fails the test.
func mustCreate(t *testing.T, eng *engine.Engine, params job.CreateParams) *job.RenderJob {
	t.Helper()

	j, err := eng.CreateJob(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

// ──────────────────────────────────────────────────
// Creation and admission
// ──────────────────────────────────────────────────

func TestEngine_CreateJobDefaults(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	if j.Status != job.StatusQueued {
		t.Errorf("status = %q, want %q", j.Status, job.StatusQueued)
	}
	if j.Progress != 0 {
		t.Errorf("progress = %d, want 0", j.Progress)
	}
	if j.Priority != job.PriorityNormal {
		t.Errorf("priority = %q, want %q", j.Priority, job.PriorityNormal)
	}
	if eng.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", eng.PendingCount())
	}

	got, err := eng.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ID.String() != j.ID.String() {
		t.Errorf("persisted id = %s, want %s", got.ID, j.ID)
	}
}

func TestEngine_CreateJobQueueFull(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, newFakeClock(), engine.WithQueueCapacity(2))
	mustCreate(t, eng, stillParams("user-1"))
	mustCreate(t, eng, stillParams("user-1"))

	_, err := eng.CreateJob(context.Background(), stillParams("user-1"))
	if !errors.Is(err, rendersched.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	// The rejected creation must not mutate prior state.
	jobs, err := eng.GetUserJobs(context.Background(), "user-1", job.ListOpts{})
	if err != nil {
		t.Fatalf("GetUserJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("persisted jobs = %d, want 2", len(jobs))
	}
	if eng.PendingCount() != 2 {
		t.Errorf("pending = %d, want 2", eng.PendingCount())
	}
}

// ──────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────

func TestEngine_ProcessQueueConcurrencyBound(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, newFakeClock(), engine.WithMaxConcurrent(3))
	for i := 0; i < 5; i++ {
		mustCreate(t, eng, stillParams("user-1"))
	}

	started := eng.ProcessQueue(context.Background())
	if started != 3 {
		t.Fatalf("started = %d, want 3", started)
	}
	if eng.ActiveCount() != 3 {
		t.Errorf("active = %d, want 3", eng.ActiveCount())
	}
	if eng.PendingCount() != 2 {
		t.Errorf("pending = %d, want 2", eng.PendingCount())
	}

	// Repeated invocations without freed capacity are no-ops.
	if again := eng.ProcessQueue(context.Background()); again != 0 {
		t.Errorf("second ProcessQueue started %d, want 0", again)
	}

	jobs, err := eng.GetUserJobs(context.Background(), "user-1", job.ListOpts{})
	if err != nil {
		t.Fatalf("GetUserJobs: %v", err)
	}
	rendering, queued := 0, 0
	for _, j := range jobs {
		switch j.Status {
		case job.StatusRendering:
			rendering++
		case job.StatusQueued:
			queued++
		}
	}
	if rendering != 3 || queued != 2 {
		t.Errorf("rendering=%d queued=%d, want 3/2", rendering, queued)
	}
}

func TestEngine_DispatchOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string
	recorder := engine.DispatcherFunc(func(_ context.Context, j *job.RenderJob) {
		mu.Lock()
		order = append(order, j.SceneID)
		mu.Unlock()
	})

	eng := newEngine(t, newFakeClock(),
		engine.WithMaxConcurrent(1),
		engine.WithDispatcher(recorder),
	)

	scenes := []struct {
		scene    string
		priority job.Priority
	}{
		{"scene-a", job.PriorityNormal},
		{"scene-b", job.PriorityNormal},
		{"scene-c", job.PriorityHigh},
		{"scene-d", job.PriorityUrgent},
	}
	ids := make(map[string]id.JobID, len(scenes))
	for _, s := range scenes {
		p := stillParams("user-1")
		p.SceneID = s.scene
		p.Priority = s.priority
		ids[s.scene] = mustCreate(t, eng, p).ID
	}

	// Drain one at a time: completing each job reactively dispatches the
	// next, so the recorder sees the full dispatch order.
	eng.ProcessQueue(context.Background())
	for i := 0; i < len(scenes); i++ {
		mu.Lock()
		current := order[len(order)-1]
		mu.Unlock()
		if err := eng.CompleteJob(context.Background(), ids[current], job.Result{URL: "out"}); err != nil {
			t.Fatalf("CompleteJob(%s): %v", current, err)
		}
	}

	want := []string{"scene-d", "scene-c", "scene-a", "scene-b"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("dispatched %d jobs, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", order, want)
		}
	}
}

func TestEngine_StartJobErrors(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, newFakeClock(), engine.WithMaxConcurrent(1))
	a := mustCreate(t, eng, stillParams("user-1"))
	b := mustCreate(t, eng, stillParams("user-1"))

	if err := eng.StartJob(context.Background(), a.ID); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	// Starting a rendering job is an illegal transition.
	if err := eng.StartJob(context.Background(), a.ID); !errors.Is(err, rendersched.ErrInvalidState) {
		t.Errorf("restart err = %v, want ErrInvalidState", err)
	}

	// Starting past the concurrency bound is refused.
	if err := eng.StartJob(context.Background(), b.ID); !errors.Is(err, rendersched.ErrConcurrencyLimit) {
		t.Errorf("over-capacity err = %v, want ErrConcurrencyLimit", err)
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestEngine_CompleteLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	eng.ProcessQueue(ctx)
	if err := eng.UpdateProgress(ctx, j.ID, 50); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := eng.CompleteJob(ctx, j.ID, job.Result{URL: "https://cdn.example.com/render.png"}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	got, err := eng.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, job.StatusCompleted)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.OutputURL != "https://cdn.example.com/render.png" {
		t.Errorf("outputURL = %q", got.OutputURL)
	}
	if got.CompletedAt == nil {
		t.Error("completedAt not set")
	}

	// Cancelling a completed job fails, naming the current status.
	_, err = eng.CancelJob(ctx, j.ID, "", "user-1")
	if !errors.Is(err, rendersched.ErrCannotCancel) {
		t.Fatalf("cancel err = %v, want ErrCannotCancel", err)
	}
	if !strings.Contains(err.Error(), "completed") {
		t.Errorf("cancel err %q does not name the status", err)
	}
}

func TestEngine_UpdateProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	// Progress reports are only legal while rendering.
	if err := eng.UpdateProgress(ctx, j.ID, 10); !errors.Is(err, rendersched.ErrInvalidState) {
		t.Errorf("queued err = %v, want ErrInvalidState", err)
	}

	eng.ProcessQueue(ctx)

	tests := []struct {
		name string
		pct  int
		want int
	}{
		{"clamped below", -10, 0},
		{"normal", 42, 42},
		{"clamped above", 150, 100},
	}
	for _, tt := range tests {
		if err := eng.UpdateProgress(ctx, j.ID, tt.pct); err != nil {
			t.Fatalf("%s: UpdateProgress: %v", tt.name, err)
		}
		got, err := eng.GetJob(ctx, j.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Progress != tt.want {
			t.Errorf("%s: progress = %d, want %d", tt.name, got.Progress, tt.want)
		}
	}
}

// ──────────────────────────────────────────────────
// Retry policy
// ──────────────────────────────────────────────────

func TestEngine_RetryUntilExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock()
	eng := newEngine(t, clock,
		engine.WithMaxConcurrent(1),
		engine.WithBackoff(backoff.NewFixed(time.Second)),
	)

	params := stillParams("user-1")
	params.RetryOnFailure = true
	params.MaxRetries = 3
	j := mustCreate(t, eng, params)

	eng.ProcessQueue(ctx)

	// First failure: re-admitted with backoff, not dispatched instantly.
	if err := eng.FailJob(ctx, j.ID, "renderer crashed"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	got, _ := eng.GetJob(ctx, j.ID)
	if got.RetryCount != 1 {
		t.Fatalf("retryCount = %d, want 1", got.RetryCount)
	}
	if !got.Status.Pending() {
		t.Fatalf("status = %q, want a pending status", got.Status)
	}
	if started := eng.ProcessQueue(ctx); started != 0 {
		t.Fatalf("dispatched %d before backoff elapsed, want 0", started)
	}

	// Second failure.
	clock.Advance(2 * time.Second)
	if started := eng.ProcessQueue(ctx); started != 1 {
		t.Fatalf("dispatched %d after backoff, want 1", started)
	}
	if err := eng.FailJob(ctx, j.ID, "renderer crashed"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	// Third failure exhausts the budget: terminal, never retried again.
	clock.Advance(2 * time.Second)
	eng.ProcessQueue(ctx)
	if err := eng.FailJob(ctx, j.ID, "renderer crashed"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, _ = eng.GetJob(ctx, j.ID)
	if got.Status != job.StatusFailed {
		t.Errorf("status = %q, want %q", got.Status, job.StatusFailed)
	}
	if got.RetryCount != 3 {
		t.Errorf("retryCount = %d, want 3", got.RetryCount)
	}
	if got.Error != "renderer crashed" {
		t.Errorf("error = %q", got.Error)
	}
	clock.Advance(time.Minute)
	if started := eng.ProcessQueue(ctx); started != 0 {
		t.Errorf("terminal job was re-dispatched")
	}
}

func TestEngine_NoRetryWhenOptedOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	eng.ProcessQueue(ctx)
	if err := eng.FailJob(ctx, j.ID, "out of memory"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, _ := eng.GetJob(ctx, j.ID)
	if got.Status != job.StatusFailed {
		t.Errorf("status = %q, want %q", got.Status, job.StatusFailed)
	}
	if got.RetryCount != 0 {
		t.Errorf("retryCount = %d, want 0", got.RetryCount)
	}
}

// ──────────────────────────────────────────────────
// Cancellation and refunds
// ──────────────────────────────────────────────────

func TestEngine_CancelQueuedFullRefund(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	amount, err := eng.CancelJob(ctx, j.ID, "changed my mind", "user-1")
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if amount != 50 {
		t.Errorf("refund = %v, want 50", amount)
	}

	got, _ := eng.GetJob(ctx, j.ID)
	if got.Status != job.StatusCancelled {
		t.Errorf("status = %q, want %q", got.Status, job.StatusCancelled)
	}
	if got.Error != "changed my mind" {
		t.Errorf("error = %q", got.Error)
	}
	if got.Metadata[job.MetaCancelledBy] != "user-1" {
		t.Errorf("cancelledBy = %q", got.Metadata[job.MetaCancelledBy])
	}
	if got.Metadata[job.MetaCreditsRefunded] != "50.00" {
		t.Errorf("creditsRefunded = %q, want %q", got.Metadata[job.MetaCreditsRefunded], "50.00")
	}
	if got.Metadata[job.MetaCancelledAt] == "" {
		t.Error("cancelledAt not set")
	}

	// The queue entry is gone: nothing left to dispatch.
	if started := eng.ProcessQueue(ctx); started != 0 {
		t.Errorf("cancelled job was dispatched")
	}
}

func TestEngine_CancelMidRenderPartialRefund(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock(), engine.WithMaxConcurrent(1))
	a := mustCreate(t, eng, stillParams("user-1"))
	b := mustCreate(t, eng, stillParams("user-1"))

	eng.ProcessQueue(ctx)
	if err := eng.UpdateProgress(ctx, a.ID, 40); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	amount, err := eng.CancelJob(ctx, a.ID, "", "user-1")
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	ceiling := 50 * (1 - 0.40)
	if amount <= 0 || amount > ceiling {
		t.Errorf("refund = %v, want in (0, %v]", amount, ceiling)
	}
	if amount != 28.5 {
		t.Errorf("refund = %v, want 28.5", amount)
	}

	// Cancelling the rendering job freed its slot; the next pending job
	// dispatches reactively.
	got, _ := eng.GetJob(ctx, b.ID)
	if got.Status != job.StatusRendering {
		t.Errorf("next job status = %q, want %q", got.Status, job.StatusRendering)
	}
}

// ──────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────

func TestEngine_StatusAndProgressNotifications(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	var mu sync.Mutex
	var statuses []job.Status
	var progress []int
	eng.OnStatusChange(j.ID, func(_ id.JobID, s job.Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})
	eng.OnProgress(j.ID, func(_ id.JobID, p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	eng.ProcessQueue(ctx)
	if err := eng.UpdateProgress(ctx, j.ID, 25); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := eng.UpdateProgress(ctx, j.ID, 75); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := eng.CompleteJob(ctx, j.ID, job.Result{URL: "out"}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	wantStatuses := []job.Status{job.StatusRendering, job.StatusCompleted}
	if len(statuses) != len(wantStatuses) {
		t.Fatalf("statuses = %v, want %v", statuses, wantStatuses)
	}
	for i := range wantStatuses {
		if statuses[i] != wantStatuses[i] {
			t.Fatalf("statuses = %v, want %v", statuses, wantStatuses)
		}
	}
	if len(progress) != 2 || progress[0] != 25 || progress[1] != 75 {
		t.Errorf("progress = %v, want [25 75]", progress)
	}
}

// ──────────────────────────────────────────────────
// Batches
// ──────────────────────────────────────────────────

func TestEngine_BatchRenderAggregation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock(), engine.WithMaxConcurrent(2))

	b, jobs, err := eng.CreateBatchRender(ctx, engine.BatchParams{
		ProjectID:       "proj-1",
		UserID:          "user-1",
		SceneIDs:        []string{"scene-a", "scene-b"},
		OutputFormat:    job.OutputFormatStill,
		Resolution:      job.Resolution{Width: 1920, Height: 1080},
		CreditsPerScene: 25,
	})
	if err != nil {
		t.Fatalf("CreateBatchRender: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("members = %d, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.BatchID.String() != b.ID.String() {
			t.Errorf("member %s not linked to batch", j.ID)
		}
	}
	if b.Status != batch.StatusPending || b.Progress != 0 {
		t.Errorf("initial batch = %q/%d, want pending/0", b.Status, b.Progress)
	}

	eng.ProcessQueue(ctx)
	if err := eng.CompleteJob(ctx, jobs[0].ID, job.Result{URL: "out-a"}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	got, err := eng.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.CompletedCount != 1 || got.Progress != 50 || got.Status != batch.StatusInProgress {
		t.Errorf("after one member: count=%d progress=%d status=%q, want 1/50/in_progress",
			got.CompletedCount, got.Progress, got.Status)
	}

	if err := eng.CompleteJob(ctx, jobs[1].ID, job.Result{URL: "out-b"}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	got, err = eng.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.CompletedCount != 2 || got.Progress != 100 || got.Status != batch.StatusCompleted {
		t.Errorf("after both members: count=%d progress=%d status=%q, want 2/100/completed",
			got.CompletedCount, got.Progress, got.Status)
	}
}

func TestEngine_BatchRenderRollsBackOnFullQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock(), engine.WithQueueCapacity(1))

	_, _, err := eng.CreateBatchRender(ctx, engine.BatchParams{
		ProjectID:       "proj-1",
		UserID:          "user-1",
		SceneIDs:        []string{"scene-a", "scene-b"},
		OutputFormat:    job.OutputFormatStill,
		Resolution:      job.Resolution{Width: 1920, Height: 1080},
		CreditsPerScene: 25,
	})
	if !errors.Is(err, rendersched.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	jobs, err := eng.GetUserJobs(ctx, "user-1", job.ListOpts{})
	if err != nil {
		t.Fatalf("GetUserJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("persisted members = %d, want 0", len(jobs))
	}
	if eng.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0", eng.PendingCount())
	}
}

// ──────────────────────────────────────────────────
// Retention and statistics
// ──────────────────────────────────────────────────

func TestEngine_CleanupOldJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock()
	eng := newEngine(t, clock, engine.WithRetention(30*24*time.Hour))

	finish := func(p job.CreateParams) id.JobID {
		j := mustCreate(t, eng, p)
		eng.ProcessQueue(ctx)
		if err := eng.CompleteJob(ctx, j.ID, job.Result{URL: "out"}); err != nil {
			t.Fatalf("CompleteJob: %v", err)
		}
		return j.ID
	}

	oldID := finish(stillParams("user-1"))
	clock.Advance(31 * 24 * time.Hour)
	recentID := finish(stillParams("user-1"))

	removed, err := eng.CleanupOldJobs(ctx)
	if err != nil {
		t.Fatalf("CleanupOldJobs: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := eng.GetJob(ctx, oldID); !errors.Is(err, rendersched.ErrJobNotFound) {
		t.Errorf("old job err = %v, want ErrJobNotFound", err)
	}
	if _, err := eng.GetJob(ctx, recentID); err != nil {
		t.Errorf("recent job err = %v, want reachable", err)
	}
}

func TestEngine_UserStatistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock(), engine.WithMaxConcurrent(3))

	renderTimes := []time.Duration{2 * time.Second, 3 * time.Second}
	for _, rt := range renderTimes {
		j := mustCreate(t, eng, stillParams("user-1"))
		eng.ProcessQueue(ctx)
		if err := eng.CompleteJob(ctx, j.ID, job.Result{URL: "out", RenderTime: rt}); err != nil {
			t.Fatalf("CompleteJob: %v", err)
		}
	}

	failed := mustCreate(t, eng, stillParams("user-1"))
	eng.ProcessQueue(ctx)
	if err := eng.FailJob(ctx, failed.ID, "boom"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	stats, err := eng.UserStatistics(ctx, "user-1")
	if err != nil {
		t.Fatalf("UserStatistics: %v", err)
	}
	if stats.TotalJobs != 3 {
		t.Errorf("totalJobs = %d, want 3", stats.TotalJobs)
	}
	if stats.CompletedJobs != 2 {
		t.Errorf("completedJobs = %d, want 2", stats.CompletedJobs)
	}
	if stats.TotalRenderTime != 5*time.Second {
		t.Errorf("totalRenderTime = %v, want 5s", stats.TotalRenderTime)
	}
}

func TestEngine_ReestimateJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, newFakeClock())
	j := mustCreate(t, eng, stillParams("user-1"))

	est, err := eng.ReestimateJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("ReestimateJob: %v", err)
	}
	if est != j.EstimatedTimeSeconds {
		t.Errorf("re-estimate = %d, want %d for unchanged params", est, j.EstimatedTimeSeconds)
	}

	eng.ProcessQueue(ctx)
	if _, err := eng.ReestimateJob(ctx, j.ID); !errors.Is(err, rendersched.ErrInvalidState) {
		t.Errorf("rendering err = %v, want ErrInvalidState", err)
	}
}

func TestEngine_NewRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := engine.New(nil); !errors.Is(err, rendersched.ErrNoStore) {
		t.Errorf("err = %v, want ErrNoStore", err)
	}
}
