package job

import (
	"context"
	"time"

	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for render jobs.
type Store interface {
	// CreateJob persists a new job.
	CreateJob(ctx context.Context, j *RenderJob) error

	// GetJob retrieves a job by ID. Returns rendersched.ErrJobNotFound
	// for unknown or pruned IDs.
	GetJob(ctx context.Context, jobID id.JobID) (*RenderJob, error)

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *RenderJob) error

	// DeleteJob removes a job record entirely. Subsequent GetJob calls
	// for the ID fail with rendersched.ErrJobNotFound.
	DeleteJob(ctx context.Context, jobID id.JobID) error

	// ListJobsByUser returns the user's jobs ordered by creation time,
	// newest first.
	ListJobsByUser(ctx context.Context, userID string, opts ListOpts) ([]*RenderJob, error)

	// ListJobsByStatus returns jobs matching the given status.
	ListJobsByStatus(ctx context.Context, status Status, opts ListOpts) ([]*RenderJob, error)

	// ListTerminalBefore returns terminal jobs whose CompletedAt is
	// before the cutoff. Used by the retention sweeper.
	ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*RenderJob, error)
}
