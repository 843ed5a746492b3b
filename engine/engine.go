package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/backoff"
	"github.com/AaraikAI/Abode-AI-sub011/event"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
	"github.com/AaraikAI/Abode-AI-sub011/observability"
	"github.com/AaraikAI/Abode-AI-sub011/queue"
	"github.com/AaraikAI/Abode-AI-sub011/refund"
	"github.com/AaraikAI/Abode-AI-sub011/store"
)

// Dispatcher is the execution backend contract. It receives the job
// description when a job enters rendering and is expected to report back
// through UpdateProgress, CompleteJob, and FailJob as work proceeds.
// Dispatch must not block; hand the work off and return.
type Dispatcher interface {
	Dispatch(ctx context.Context, j *job.RenderJob)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, j *job.RenderJob)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, j *job.RenderJob) { f(ctx, j) }

// UserStatistics is the read-side projection of a user's render history.
// TotalRenderTime sums the reported render time of completed jobs.
type UserStatistics struct {
	TotalJobs       int           `json:"total_jobs"`
	CompletedJobs   int           `json:"completed_jobs"`
	TotalRenderTime time.Duration `json:"total_render_time"`
}

// Engine is the scheduling engine. It owns the pending queue, the
// concurrency limiter, and the dispatch decision; all mutating
// operations are serialized by one mutex so queue contents, the
// running-job count, and job records never diverge.
type Engine struct {
	cfg        rendersched.Config
	store      store.Store
	pending    *queue.Pending
	limiter    *queue.Limiter
	notifier   *event.Notifier
	bo         backoff.Strategy
	refunds    refund.Calculator
	metrics    *observability.Metrics
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the entire configuration.
func WithConfig(cfg rendersched.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithMaxConcurrent sets the global bound on simultaneously rendering jobs.
func WithMaxConcurrent(n int) Option {
	return func(eng *Engine) { eng.cfg.MaxConcurrent = n }
}

// WithQueueCapacity sets the pending queue capacity.
func WithQueueCapacity(n int) Option {
	return func(eng *Engine) { eng.cfg.QueueCapacity = n }
}

// WithDispatchRate enables token-bucket rate limiting of dispatches.
func WithDispatchRate(perSecond float64, burst int) Option {
	return func(eng *Engine) {
		eng.cfg.DispatchRate = perSecond
		eng.cfg.DispatchBurst = burst
	}
}

// WithRetention sets how long terminal jobs are kept before cleanup.
func WithRetention(d time.Duration) Option {
	return func(eng *Engine) { eng.cfg.Retention = d }
}

// WithMaxRetries sets the default retry budget for jobs that opt into
// retry-on-failure.
func WithMaxRetries(n int) Option {
	return func(eng *Engine) { eng.cfg.MaxRetries = n }
}

// WithBackoff sets the retry backoff strategy.
// If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithRefundFee sets the processing fee fraction retained from refunds
// of jobs cancelled mid-render.
func WithRefundFee(fraction float64) Option {
	return func(eng *Engine) { eng.refunds = refund.NewCalculator(fraction) }
}

// WithDispatcher sets the execution backend that receives dispatched jobs.
// Without one, jobs still transition to rendering and wait for progress
// reports; useful in tests that drive the lifecycle by hand.
func WithDispatcher(d Dispatcher) Option {
	return func(eng *Engine) { eng.dispatcher = d }
}

// WithMeter sets the OTel meter used for engine metrics. If not set, the
// global MeterProvider is used (noop instruments when none is configured).
func WithMeter(meter metric.Meter) Option {
	return func(eng *Engine) { eng.metrics = observability.NewMetricsWithMeter(meter) }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = logger }
}

// WithClock injects the time source. Tests use this to simulate the
// passage of time for backoff eligibility and retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) { eng.now = now }
}

// New creates an Engine backed by the given store.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, rendersched.ErrNoStore
	}

	eng := &Engine{
		cfg:      rendersched.DefaultConfig(),
		store:    s,
		notifier: event.NewNotifier(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}
	if eng.metrics == nil {
		eng.metrics = observability.NewMetrics()
	}
	eng.pending = queue.NewPending(eng.cfg.QueueCapacity)
	eng.limiter = queue.NewLimiter(eng.cfg.MaxConcurrent, eng.cfg.DispatchRate, eng.cfg.DispatchBurst)

	return eng, nil
}

// ──────────────────────────────────────────────────
// Creation and reads
// ──────────────────────────────────────────────────

// CreateJob validates params, admits the job into the pending queue, and
// persists it. Admission and persistence happen together: when the queue
// is at capacity the creation fails with ErrQueueFull and nothing is
// stored.
func (eng *Engine) CreateJob(ctx context.Context, params job.CreateParams) (*job.RenderJob, error) {
	j, err := job.New(params, eng.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	eng.mu.Lock()
	if err := eng.pending.Push(j.ID, j.Priority.Rank(), time.Time{}); err != nil {
		eng.mu.Unlock()
		return nil, err
	}
	if err := eng.store.CreateJob(ctx, j); err != nil {
		eng.pending.Remove(j.ID)
		eng.mu.Unlock()
		return nil, fmt.Errorf("persist job: %w", err)
	}
	eng.mu.Unlock()

	eng.metrics.JobsCreated.Add(ctx, 1)
	eng.logger.Info("job created",
		slog.String("job_id", j.ID.String()),
		slog.String("user_id", j.UserID),
		slog.String("priority", string(j.Priority)),
		slog.Int("estimated_seconds", j.EstimatedTimeSeconds),
	)
	return j, nil
}

// GetJob retrieves a job by ID.
func (eng *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.RenderJob, error) {
	return eng.store.GetJob(ctx, jobID)
}

// GetUserJobs returns the user's jobs, newest first.
func (eng *Engine) GetUserJobs(ctx context.Context, userID string, opts job.ListOpts) ([]*job.RenderJob, error) {
	return eng.store.ListJobsByUser(ctx, userID, opts)
}

// ReestimateJob recomputes the render-time estimate for a job that has
// not started yet and persists the new value. The estimate is otherwise
// immutable after creation.
func (eng *Engine) ReestimateJob(ctx context.Context, jobID id.JobID) (int, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if !j.Status.Pending() {
		return 0, fmt.Errorf("%w: cannot re-estimate %s job", rendersched.ErrInvalidState, j.Status)
	}

	j.EstimatedTimeSeconds = job.EstimateRenderTime(job.CreateParams{
		OutputFormat: j.OutputFormat,
		Resolution:   j.Resolution,
		Engine:       j.Engine,
		Samples:      j.Samples,
		FPS:          j.FPS,
		Duration:     j.Duration,
	})
	j.Touch(eng.now())
	if err := eng.store.UpdateJob(ctx, j); err != nil {
		return 0, err
	}
	return j.EstimatedTimeSeconds, nil
}

// UserStatistics aggregates the user's render history: total jobs,
// completed jobs, and summed render time across completions.
func (eng *Engine) UserStatistics(ctx context.Context, userID string) (UserStatistics, error) {
	jobs, err := eng.store.ListJobsByUser(ctx, userID, job.ListOpts{})
	if err != nil {
		return UserStatistics{}, err
	}

	stats := UserStatistics{TotalJobs: len(jobs)}
	for _, j := range jobs {
		if j.Status != job.StatusCompleted {
			continue
		}
		stats.CompletedJobs++
		if j.Result != nil {
			stats.TotalRenderTime += j.Result.RenderTime
		}
	}
	return stats, nil
}

// CleanupOldJobs hard-deletes terminal jobs whose completion is older
// than the retention window and returns how many were removed. Pruned
// jobs become unreachable: GetJob fails with ErrJobNotFound afterward.
func (eng *Engine) CleanupOldJobs(ctx context.Context) (int, error) {
	cutoff := eng.now().Add(-eng.cfg.Retention)
	expired, err := eng.store.ListTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, j := range expired {
		if err := eng.store.DeleteJob(ctx, j.ID); err != nil {
			if errors.Is(err, rendersched.ErrJobNotFound) {
				continue
			}
			return removed, err
		}
		eng.notifier.Forget(j.ID)
		removed++
	}

	if removed > 0 {
		eng.logger.Info("retention sweep",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// ──────────────────────────────────────────────────
// Subscriptions and introspection
// ──────────────────────────────────────────────────

// OnProgress registers a callback for progress updates of one job.
func (eng *Engine) OnProgress(jobID id.JobID, fn event.ProgressFunc) event.Subscription {
	return eng.notifier.OnProgress(jobID, fn)
}

// OnStatusChange registers a callback for status transitions of one job.
func (eng *Engine) OnStatusChange(jobID id.JobID, fn event.StatusFunc) event.Subscription {
	return eng.notifier.OnStatusChange(jobID, fn)
}

// PendingCount returns the number of jobs waiting for dispatch.
func (eng *Engine) PendingCount() int { return eng.pending.Len() }

// ActiveCount returns the number of jobs currently rendering.
func (eng *Engine) ActiveCount() int { return eng.limiter.Active() }

// Config returns the engine's configuration.
func (eng *Engine) Config() rendersched.Config { return eng.cfg }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }
