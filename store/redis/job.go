package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// CreateJob stores the job as a Hash and indexes it by user and status.
func (s *Store) CreateJob(ctx context.Context, j *job.RenderJob) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rendersched/redis: create check exists: %w", err)
	}
	if exists > 0 {
		return rendersched.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.SAdd(ctx, userJobsKey(j.UserID), jID)
	pipe.SAdd(ctx, statusJobsKey(string(j.Status)), jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rendersched/redis: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.RenderJob, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob persists changes to an existing job, moving it between
// status index sets when the status changed.
func (s *Store) UpdateJob(ctx context.Context, j *job.RenderJob) error {
	jID := j.ID.String()
	key := jobKey(jID)

	prev, err := s.client.HGet(ctx, key, "status").Result()
	if err != nil {
		if isNil(err) {
			return rendersched.ErrJobNotFound
		}
		return fmt.Errorf("rendersched/redis: update get status: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	if prev != string(j.Status) {
		pipe.SRem(ctx, statusJobsKey(prev), jID)
		pipe.SAdd(ctx, statusJobsKey(string(j.Status)), jID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rendersched/redis: update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job and all its index entries.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	vals, err := s.client.HMGet(ctx, key, "user_id", "status").Result()
	if err != nil {
		return fmt.Errorf("rendersched/redis: delete get indexes: %w", err)
	}
	userID, uOK := vals[0].(string)
	status, sOK := vals[1].(string)
	if !uOK || !sOK {
		return rendersched.ErrJobNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jID)
	pipe.SRem(ctx, userJobsKey(userID), jID)
	pipe.SRem(ctx, statusJobsKey(status), jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rendersched/redis: delete job: %w", err)
	}
	return nil
}

// ListJobsByUser returns the user's jobs, newest first.
func (s *Store) ListJobsByUser(ctx context.Context, userID string, opts job.ListOpts) ([]*job.RenderJob, error) {
	jobs, err := s.collectJobs(ctx, userJobsKey(userID))
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return paginate(jobs, opts), nil
}

// ListJobsByStatus returns jobs matching the given status, oldest first.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.RenderJob, error) {
	jobs, err := s.collectJobs(ctx, statusJobsKey(string(status)))
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return paginate(jobs, opts), nil
}

// ListTerminalBefore returns terminal jobs completed before the cutoff.
func (s *Store) ListTerminalBefore(ctx context.Context, cutoff time.Time) ([]*job.RenderJob, error) {
	terminal := []job.Status{job.StatusCompleted, job.StatusFailed, job.StatusCancelled}

	var out []*job.RenderJob
	for _, status := range terminal {
		jobs, err := s.collectJobs(ctx, statusJobsKey(string(status)))
		if err != nil {
			return nil, err
		}
		for _, j := range jobs {
			if j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

// ── helpers ──

// collectJobs loads every job referenced by an index Set, skipping
// dangling references.
func (s *Store) collectJobs(ctx context.Context, indexKey string) ([]*job.RenderJob, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: smembers %s: %w", indexKey, err)
	}

	jobs := make([]*job.RenderJob, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func paginate(jobs []*job.RenderJob, opts job.ListOpts) []*job.RenderJob {
	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs
}

func jobToMap(j *job.RenderJob) map[string]interface{} {
	m := map[string]interface{}{
		"id":            j.ID.String(),
		"project_id":    j.ProjectID,
		"scene_id":      j.SceneID,
		"user_id":       j.UserID,
		"batch_id":      j.BatchID.String(),
		"output_format": string(j.OutputFormat),
		"width":         strconv.Itoa(j.Resolution.Width),
		"height":        strconv.Itoa(j.Resolution.Height),
		"engine":        string(j.Engine),
		"samples":       strconv.Itoa(j.Samples),
		"fps":           strconv.Itoa(j.FPS),
		"duration":      strconv.FormatFloat(j.Duration, 'f', -1, 64),
		"priority":      string(j.Priority),
		"status":        string(j.Status),
		"progress":      strconv.Itoa(j.Progress),
		"credits_cost":  strconv.FormatFloat(j.CreditsCost, 'f', -1, 64),
		"estimated_s":   strconv.Itoa(j.EstimatedTimeSeconds),
		"output_url":    j.OutputURL,
		"error":         j.Error,
		"retry_on_fail": strconv.FormatBool(j.RetryOnFailure),
		"retry_count":   strconv.Itoa(j.RetryCount),
		"max_retries":   strconv.Itoa(j.MaxRetries),
		"created_at":    j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !j.RunAt.IsZero() {
		m["run_at"] = j.RunAt.Format(time.RFC3339Nano)
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	if j.Result != nil {
		if data, err := json.Marshal(j.Result); err == nil {
			m["result"] = string(data)
		}
	}
	if len(j.Metadata) > 0 {
		if data, err := json.Marshal(j.Metadata); err == nil {
			m["metadata"] = string(data)
		}
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.RenderJob, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, rendersched.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.RenderJob, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("rendersched/redis: parse job id: %w", err)
	}

	width, _ := strconv.Atoi(m["width"])                      //nolint:errcheck // best-effort parse from trusted Redis data
	height, _ := strconv.Atoi(m["height"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	samples, _ := strconv.Atoi(m["samples"])                  //nolint:errcheck // best-effort parse from trusted Redis data
	fps, _ := strconv.Atoi(m["fps"])                          //nolint:errcheck // best-effort parse from trusted Redis data
	progress, _ := strconv.Atoi(m["progress"])                //nolint:errcheck // best-effort parse from trusted Redis data
	estimated, _ := strconv.Atoi(m["estimated_s"])            //nolint:errcheck // best-effort parse from trusted Redis data
	retryCount, _ := strconv.Atoi(m["retry_count"])           //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"])           //nolint:errcheck // best-effort parse from trusted Redis data
	duration, _ := strconv.ParseFloat(m["duration"], 64)      //nolint:errcheck // best-effort parse from trusted Redis data
	credits, _ := strconv.ParseFloat(m["credits_cost"], 64)   //nolint:errcheck // best-effort parse from trusted Redis data
	retryOnFail, _ := strconv.ParseBool(m["retry_on_fail"])   //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.RenderJob{
		Entity: rendersched.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:                   jID,
		ProjectID:            m["project_id"],
		SceneID:              m["scene_id"],
		UserID:               m["user_id"],
		OutputFormat:         job.OutputFormat(m["output_format"]),
		Resolution:           job.Resolution{Width: width, Height: height},
		Engine:               job.Engine(m["engine"]),
		Samples:              samples,
		FPS:                  fps,
		Duration:             duration,
		Priority:             job.Priority(m["priority"]),
		Status:               job.Status(m["status"]),
		Progress:             progress,
		CreditsCost:          credits,
		EstimatedTimeSeconds: estimated,
		OutputURL:            m["output_url"],
		Error:                m["error"],
		RetryOnFailure:       retryOnFail,
		RetryCount:           retryCount,
		MaxRetries:           maxRetries,
	}

	if raw := m["batch_id"]; raw != "" {
		if batchID, bErr := id.ParseBatchID(raw); bErr == nil {
			j.BatchID = batchID
		}
	}
	if raw := m["run_at"]; raw != "" {
		if t, tErr := time.Parse(time.RFC3339Nano, raw); tErr == nil {
			j.RunAt = t
		}
	}
	if raw := m["started_at"]; raw != "" {
		if t, tErr := time.Parse(time.RFC3339Nano, raw); tErr == nil {
			j.StartedAt = &t
		}
	}
	if raw := m["completed_at"]; raw != "" {
		if t, tErr := time.Parse(time.RFC3339Nano, raw); tErr == nil {
			j.CompletedAt = &t
		}
	}
	if raw := m["result"]; raw != "" {
		var res job.Result
		if jErr := json.Unmarshal([]byte(raw), &res); jErr == nil {
			j.Result = &res
		}
	}
	if raw := m["metadata"]; raw != "" {
		var meta map[string]string
		if jErr := json.Unmarshal([]byte(raw), &meta); jErr == nil {
			j.Metadata = meta
		}
	}

	return j, nil
}
