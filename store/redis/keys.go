package redis

// Redis key naming conventions for rendersched data.
// All keys are prefixed with "rendersched:" to avoid collisions.

const keyPrefix = "rendersched:"

// ── Job keys ──

// jobKey returns the key for a job entity: rendersched:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// userJobsKey is the Set of job IDs owned by a user.
func userJobsKey(userID string) string { return keyPrefix + "user_jobs:" + userID }

// statusJobsKey is the Set of job IDs currently in a status.
func statusJobsKey(status string) string { return keyPrefix + "status_jobs:" + status }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// ── Batch keys ──

// batchKey returns the key for a batch entity: rendersched:batch:{id}
func batchKey(id string) string { return keyPrefix + "batch:" + id }

// userBatchesKey is the Set of batch IDs owned by a user.
func userBatchesKey(userID string) string { return keyPrefix + "user_batches:" + userID }

// batchIDsKey is the Set tracking all batch IDs for enumeration.
const batchIDsKey = keyPrefix + "batch_ids"
