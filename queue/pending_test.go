package queue_test

import (
	"testing"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
	"github.com/AaraikAI/Abode-AI-sub011/queue"
)

func TestPending_FIFOWithinBand(t *testing.T) {
	t.Parallel()

	q := queue.NewPending(10)
	now := time.Now()

	a := id.NewJobID()
	b := id.NewJobID()
	if err := q.Push(a, job.PriorityNormal.Rank(), time.Time{}); err != nil {
		t.Fatalf("push a: %v", err)
	}
	if err := q.Push(b, job.PriorityNormal.Rank(), time.Time{}); err != nil {
		t.Fatalf("push b: %v", err)
	}

	snap := q.Snapshot()
	if snap[0].JobID != a || snap[1].JobID != b {
		t.Error("same-priority jobs should keep enqueue order")
	}

	first, ok := q.Pop(now)
	if !ok || first.JobID != a {
		t.Errorf("first pop = %v, want %v", first.JobID, a)
	}
	second, ok := q.Pop(now)
	if !ok || second.JobID != b {
		t.Errorf("second pop = %v, want %v", second.JobID, b)
	}
}

func TestPending_PriorityOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		second job.Priority
	}{
		{"high preempts normal", job.PriorityHigh},
		{"urgent preempts normal", job.PriorityUrgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queue.NewPending(10)
			now := time.Now()

			a := id.NewJobID()
			b := id.NewJobID()
			if err := q.Push(a, job.PriorityNormal.Rank(), time.Time{}); err != nil {
				t.Fatalf("push a: %v", err)
			}
			if err := q.Push(b, tt.second.Rank(), time.Time{}); err != nil {
				t.Fatalf("push b: %v", err)
			}

			first, ok := q.Pop(now)
			if !ok || first.JobID != b {
				t.Errorf("first pop = %v, want the %s job", first.JobID, tt.second)
			}
		})
	}
}

func TestPending_CapacityRejection(t *testing.T) {
	t.Parallel()

	q := queue.NewPending(2)
	if err := q.Push(id.NewJobID(), 1, time.Time{}); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := q.Push(id.NewJobID(), 1, time.Time{}); err != nil {
		t.Fatalf("push 2: %v", err)
	}

	err := q.Push(id.NewJobID(), 1, time.Time{})
	if err != rendersched.ErrQueueFull {
		t.Errorf("push over capacity = %v, want ErrQueueFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("len = %d, want 2 (rejected push must not mutate)", q.Len())
	}
}

func TestPending_EligibilityDelaysDispatch(t *testing.T) {
	t.Parallel()

	q := queue.NewPending(10)
	now := time.Now()

	delayed := id.NewJobID()
	if err := q.Push(delayed, job.PriorityUrgent.Rank(), now.Add(time.Minute)); err != nil {
		t.Fatalf("push: %v", err)
	}

	if _, ok := q.Pop(now); ok {
		t.Error("entry should not be dispatchable before its eligibility time")
	}

	entry, ok := q.Pop(now.Add(2 * time.Minute))
	if !ok || entry.JobID != delayed {
		t.Error("entry should dispatch after its eligibility time elapses")
	}
}

func TestPending_EligibleLowerPriorityBeatsIneligibleHigher(t *testing.T) {
	t.Parallel()

	q := queue.NewPending(10)
	now := time.Now()

	held := id.NewJobID()
	ready := id.NewJobID()
	if err := q.Push(held, job.PriorityUrgent.Rank(), now.Add(time.Hour)); err != nil {
		t.Fatalf("push held: %v", err)
	}
	if err := q.Push(ready, job.PriorityLow.Rank(), time.Time{}); err != nil {
		t.Fatalf("push ready: %v", err)
	}

	entry, ok := q.Pop(now)
	if !ok || entry.JobID != ready {
		t.Error("eligible low-priority entry should dispatch while higher entry is backed off")
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

func TestPending_Remove(t *testing.T) {
	t.Parallel()

	q := queue.NewPending(10)
	a := id.NewJobID()
	if err := q.Push(a, 1, time.Time{}); err != nil {
		t.Fatalf("push: %v", err)
	}

	if !q.Remove(a) {
		t.Error("Remove should report true for a present entry")
	}
	if q.Remove(a) {
		t.Error("Remove should report false for an absent entry")
	}
	if q.Len() != 0 {
		t.Errorf("len = %d, want 0", q.Len())
	}
}
