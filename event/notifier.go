// Package event provides the progress and status-change notifier: an
// explicit per-job observer registry with synchronous, registration-order
// delivery.
//
// Callbacks run on the goroutine that reports the mutation, after the
// engine's critical section has been released, so a callback may safely
// call back into the engine.
package event

import (
	"sync"

	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// ProgressFunc receives progress updates for a subscribed job.
type ProgressFunc func(jobID id.JobID, progress int)

// StatusFunc receives status transitions for a subscribed job.
type StatusFunc func(jobID id.JobID, status job.Status)

// Subscription is a handle returned by OnProgress/OnStatusChange.
// Cancel removes the callback; it is safe to call more than once.
type Subscription struct {
	cancel func()
}

// Cancel removes the subscription from the registry.
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

type progressSub struct {
	token uint64
	fn    ProgressFunc
}

type statusSub struct {
	token uint64
	fn    StatusFunc
}

// Notifier is the observer registry. Safe for concurrent use.
type Notifier struct {
	mu       sync.Mutex
	next     uint64
	progress map[string][]progressSub
	status   map[string][]statusSub
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		progress: make(map[string][]progressSub),
		status:   make(map[string][]statusSub),
	}
}

// OnProgress registers fn to be invoked for every progress update of the
// given job. Multiple subscribers are invoked in registration order.
func (n *Notifier) OnProgress(jobID id.JobID, fn ProgressFunc) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	token := n.next
	key := jobID.String()
	n.progress[key] = append(n.progress[key], progressSub{token: token, fn: fn})

	return Subscription{cancel: func() { n.removeProgress(key, token) }}
}

// OnStatusChange registers fn to be invoked for every status transition
// of the given job. Multiple subscribers are invoked in registration order.
func (n *Notifier) OnStatusChange(jobID id.JobID, fn StatusFunc) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	token := n.next
	key := jobID.String()
	n.status[key] = append(n.status[key], statusSub{token: token, fn: fn})

	return Subscription{cancel: func() { n.removeStatus(key, token) }}
}

// EmitProgress invokes the job's progress subscribers synchronously, in
// registration order.
func (n *Notifier) EmitProgress(jobID id.JobID, progress int) {
	n.mu.Lock()
	key := jobID.String()
	subs := make([]progressSub, len(n.progress[key]))
	copy(subs, n.progress[key])
	n.mu.Unlock()

	for _, s := range subs {
		s.fn(jobID, progress)
	}
}

// EmitStatus invokes the job's status subscribers synchronously, in
// registration order.
func (n *Notifier) EmitStatus(jobID id.JobID, status job.Status) {
	n.mu.Lock()
	key := jobID.String()
	subs := make([]statusSub, len(n.status[key]))
	copy(subs, n.status[key])
	n.mu.Unlock()

	for _, s := range subs {
		s.fn(jobID, status)
	}
}

// Forget drops all subscriptions for a job. Called when a job record is
// pruned by the retention sweeper.
func (n *Notifier) Forget(jobID id.JobID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.progress, jobID.String())
	delete(n.status, jobID.String())
}

func (n *Notifier) removeProgress(key string, token uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.progress[key]
	for i, s := range subs {
		if s.token == token {
			n.progress[key] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (n *Notifier) removeStatus(key string, token uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.status[key]
	for i, s := range subs {
		if s.token == token {
			n.status[key] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
