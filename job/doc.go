// Package job defines the RenderJob entity, its status state machine,
// creation parameters with validation, render-time estimation, and the
// persistence contract (Store) implemented by the store backends.
//
// A RenderJob is created in StatusQueued, admitted by the engine into the
// pending queue, dispatched to StatusRendering when capacity allows, and
// finishes in one of the terminal statuses (completed, failed, cancelled).
// Failed jobs with retry budget remaining re-enter the queue through
// StatusScheduled, the delayed variant of queued.
package job
