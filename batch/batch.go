// Package batch groups render jobs created together from one multi-scene
// request and derives aggregate progress from member job statuses.
//
// A Batch owns the list of member job IDs, never the jobs themselves —
// those live solely in the job store. Its status and progress are
// read-through projections recomputed from member statuses, cached on the
// entity for listing.
package batch

import (
	"math"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// Status is the derived aggregate state of a batch.
type Status string

const (
	// StatusPending means no member job has completed yet.
	StatusPending Status = "pending"
	// StatusInProgress means some but not all members have completed.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every member job has completed.
	StatusCompleted Status = "completed"
)

// Batch is a caller-visible grouping of jobs created together.
type Batch struct {
	rendersched.Entity

	ID        id.BatchID `json:"id"`
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	JobIDs    []id.JobID `json:"job_ids"`

	// Derived fields, cached from the last Refresh.
	Status         Status `json:"status"`
	CompletedCount int    `json:"completed_count"`
	Progress       int    `json:"progress"`
}

// New creates a Batch over the given member job IDs in pending state.
func New(projectID, userID string, jobIDs []id.JobID) *Batch {
	ids := make([]id.JobID, len(jobIDs))
	copy(ids, jobIDs)
	return &Batch{
		Entity:    rendersched.NewEntity(),
		ID:        id.NewBatchID(),
		ProjectID: projectID,
		UserID:    userID,
		JobIDs:    ids,
		Status:    StatusPending,
	}
}

// Refresh recomputes the derived fields from the member job statuses.
// The slice order must match JobIDs but only completion counts matter.
func (b *Batch) Refresh(memberStatuses []job.Status) {
	completed := 0
	for _, s := range memberStatuses {
		if s == job.StatusCompleted {
			completed++
		}
	}

	total := len(b.JobIDs)
	b.CompletedCount = completed
	b.Progress = deriveProgress(completed, total)
	b.Status = deriveStatus(completed, total)
}

func deriveProgress(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

func deriveStatus(completed, total int) Status {
	switch {
	case total > 0 && completed == total:
		return StatusCompleted
	case completed == 0:
		return StatusPending
	default:
		return StatusInProgress
	}
}
