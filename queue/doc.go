// Package queue provides the scheduler-internal pending queue and the
// global concurrency limiter.
//
// # Pending
//
// [Pending] is a bounded multiset of pending job IDs. Each entry carries
// the job's priority rank, a monotonically increasing enqueue sequence
// number, and an eligibility time (used for retry backoff). Dispatch
// order is strict priority (rank descending) with FIFO tie-break within
// a priority band (sequence ascending); entries whose eligibility time
// has not elapsed are skipped. Exceeding capacity is a rejected
// admission (ErrQueueFull), never a silent drop.
//
// # Limiter
//
// [Limiter] enforces the global bound on simultaneously rendering jobs
// and, optionally, a token-bucket dispatch rate limit
// (golang.org/x/time/rate):
//
//	l := queue.NewLimiter(3, 0, 0)
//	if l.TryAcquire() {
//	    defer l.Release()
//	    // dispatch the job
//	}
package queue
