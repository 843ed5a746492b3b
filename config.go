package rendersched

import "time"

// Config holds configuration for the scheduling engine.
type Config struct {
	// MaxConcurrent is the global bound on simultaneously rendering jobs.
	MaxConcurrent int

	// QueueCapacity is the maximum number of pending jobs. Creation fails
	// with ErrQueueFull once reached.
	QueueCapacity int

	// DispatchRate is the maximum sustained dispatches per second.
	// Zero disables rate limiting.
	DispatchRate float64

	// DispatchBurst is the burst size for the dispatch rate limiter.
	// Defaults to 1 if DispatchRate is set but DispatchBurst is zero.
	DispatchBurst int

	// Retention is how long terminal jobs are kept before the sweeper
	// removes them.
	Retention time.Duration

	// MaxRetries is the default retry budget for jobs that opt into
	// retry-on-failure.
	MaxRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		QueueCapacity: 100,
		Retention:     30 * 24 * time.Hour,
		MaxRetries:    3,
	}
}
