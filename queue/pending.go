package queue

import (
	"sort"
	"sync"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// Entry is one pending admission in the queue.
type Entry struct {
	JobID id.JobID

	// Rank is the priority rank; higher ranks dispatch first.
	Rank int

	// Seq is the enqueue sequence number; lower sequences dispatch first
	// within a rank. Re-enqueued retries receive a fresh, later sequence.
	Seq uint64

	// EligibleAt is the earliest time this entry may be dispatched.
	// Zero means immediately eligible.
	EligibleAt time.Time
}

// eligible reports whether the entry may be dispatched at now.
func (e Entry) eligible(now time.Time) bool {
	return e.EligibleAt.IsZero() || !e.EligibleAt.After(now)
}

// Pending is the bounded pending queue. Safe for concurrent use.
type Pending struct {
	mu       sync.Mutex
	capacity int
	seq      uint64
	entries  []Entry
}

// NewPending creates a pending queue with the given capacity.
// Non-positive capacities fall back to 100.
func NewPending(capacity int) *Pending {
	if capacity <= 0 {
		capacity = 100
	}
	return &Pending{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Push appends a new entry. Returns ErrQueueFull when at capacity
// without mutating the queue.
func (q *Pending) Push(jobID id.JobID, rank int, eligibleAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		return rendersched.ErrQueueFull
	}

	q.seq++
	q.entries = append(q.entries, Entry{
		JobID:      jobID,
		Rank:       rank,
		Seq:        q.seq,
		EligibleAt: eligibleAt,
	})
	return nil
}

// Pop removes and returns the highest-rank, then oldest, eligible entry.
// The second return is false when no entry is eligible at now.
func (q *Pending) Pop(now time.Time) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	best := -1
	for i, e := range q.entries {
		if !e.eligible(now) {
			continue
		}
		if best < 0 || e.Rank > q.entries[best].Rank ||
			(e.Rank == q.entries[best].Rank && e.Seq < q.entries[best].Seq) {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, false
	}

	entry := q.entries[best]
	q.entries = append(q.entries[:best], q.entries[best+1:]...)
	return entry, true
}

// Requeue reinserts a previously popped entry with its original sequence
// number, preserving its place in the dispatch order. Used when dispatch
// is denied after the pop (rate limit, store failure). Requeue bypasses
// the capacity check: the entry held a slot until moments ago.
func (q *Pending) Requeue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// Remove deletes the entry for the given job ID, if present.
// Used when a queued job is cancelled.
func (q *Pending) Remove(jobID id.JobID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.JobID.String() == jobID.String() {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending entries.
func (q *Pending) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns the entries in dispatch order (rank descending, then
// sequence ascending), ignoring eligibility. Intended for introspection.
func (q *Pending) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
