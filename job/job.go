package job

import (
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// Status represents the lifecycle state of a render job.
type Status string

const (
	// StatusQueued means the job is waiting in the pending queue.
	StatusQueued Status = "queued"
	// StatusScheduled means the job is queued but not yet eligible for
	// dispatch (retry backoff has not elapsed). It is the delayed variant
	// of queued: execution has not begun and progress is zero.
	StatusScheduled Status = "scheduled"
	// StatusRendering means the execution backend is working on the job.
	StatusRendering Status = "rendering"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed and its retry budget is exhausted.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further automatic transition occurs from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Pending reports whether the job is waiting for dispatch.
func (s Status) Pending() bool {
	return s == StatusQueued || s == StatusScheduled
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next. Terminal statuses permit nothing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusQueued, StatusScheduled:
		return next == StatusRendering || next == StatusCancelled
	case StatusRendering:
		return next == StatusCompleted || next == StatusFailed ||
			next == StatusCancelled || next == StatusScheduled || next == StatusQueued
	default:
		return false
	}
}

// Priority determines dispatch ordering across jobs.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its numeric dispatch rank. Higher ranks are
// dispatched first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// OutputFormat is the kind of artifact a render job produces.
type OutputFormat string

const (
	// OutputFormatStill is a single rendered image.
	OutputFormatStill OutputFormat = "still"
	// OutputFormatVideo is a walkthrough animation.
	OutputFormatVideo OutputFormat = "video"
)

// Valid reports whether f is a supported output format.
func (f OutputFormat) Valid() bool {
	return f == OutputFormatStill || f == OutputFormatVideo
}

// Engine is the render engine hint forwarded to the execution backend.
type Engine string

const (
	EngineCycles Engine = "CYCLES"
	EngineEevee  Engine = "EEVEE"
)

// Resolution is the output dimensions in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PixelCount returns Width × Height.
func (r Resolution) PixelCount() int { return r.Width * r.Height }

// IsZero reports whether no dimensions were provided.
func (r Resolution) IsZero() bool { return r.Width == 0 && r.Height == 0 }

// Quality presets, matching the render farm's supported output sizes.
var qualityPresets = map[string]Resolution{
	"1080p": {Width: 1920, Height: 1080},
	"4k":    {Width: 3840, Height: 2160},
	"8k":    {Width: 7680, Height: 4320},
}

// ResolutionForQuality returns the resolution for a named quality preset
// ("1080p", "4k", "8k"). The second return is false for unknown presets.
func ResolutionForQuality(quality string) (Resolution, bool) {
	r, ok := qualityPresets[quality]
	return r, ok
}

// Metadata keys populated by the engine for cancellation audit fields.
const (
	MetaCancelledAt     = "cancelledAt"
	MetaCancelledBy     = "cancelledBy"
	MetaCreditsRefunded = "creditsRefunded"
)

// Result is the output reported by the execution backend on completion.
type Result struct {
	URL         string        `json:"url"`
	SizeBytes   int64         `json:"size_bytes,omitempty"`
	RenderTime  time.Duration `json:"render_time,omitempty"`
}

// RenderJob is a unit of rendering work tracked by the scheduler.
type RenderJob struct {
	rendersched.Entity

	ID        id.JobID   `json:"id"`
	ProjectID string     `json:"project_id"`
	SceneID   string     `json:"scene_id"`
	UserID    string     `json:"user_id"`
	BatchID   id.BatchID `json:"batch_id,omitempty"`

	OutputFormat OutputFormat `json:"output_format"`
	Resolution   Resolution   `json:"resolution"`
	Engine       Engine       `json:"engine,omitempty"`
	Samples      int          `json:"samples,omitempty"`
	FPS          int          `json:"fps,omitempty"`
	Duration     float64      `json:"duration_seconds,omitempty"`

	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`
	Progress int      `json:"progress"`

	CreditsCost          float64 `json:"credits_cost"`
	EstimatedTimeSeconds int     `json:"estimated_time_seconds"`

	OutputURL string  `json:"output_url,omitempty"`
	Result    *Result `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`

	RetryOnFailure bool      `json:"retry_on_failure"`
	RetryCount     int       `json:"retry_count"`
	MaxRetries     int       `json:"max_retries"`
	RunAt          time.Time `json:"run_at"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// SetMeta stores a metadata key, allocating the map on first use.
func (j *RenderJob) SetMeta(key, value string) {
	if j.Metadata == nil {
		j.Metadata = make(map[string]string)
	}
	j.Metadata[key] = value
}
