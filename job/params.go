package job

import (
	"fmt"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/id"
)

// CreateParams carries everything needed to create a render job.
type CreateParams struct {
	ProjectID string
	SceneID   string
	UserID    string

	OutputFormat OutputFormat

	// Resolution is the explicit output size. Leave zero and set Quality
	// to use a named preset instead.
	Resolution Resolution

	// Quality is an optional preset name ("1080p", "4k", "8k") used when
	// Resolution is zero.
	Quality string

	// Engine and Samples are renderer hints. Zero values mean the
	// backend's defaults (Cycles, 256 samples).
	Engine  Engine
	Samples int

	// FPS and Duration describe video output. Ignored for stills.
	FPS      int
	Duration float64

	Priority    Priority
	CreditsCost float64

	RetryOnFailure bool
	MaxRetries     int

	Metadata map[string]string
}

// normalize resolves presets and fills defaults. Called by New after
// validation.
func (p *CreateParams) normalize(defaultMaxRetries int) {
	if p.Resolution.IsZero() {
		if r, ok := ResolutionForQuality(p.Quality); ok {
			p.Resolution = r
		}
	}
	if !p.Priority.Valid() {
		p.Priority = PriorityNormal
	}
	if p.Engine == "" {
		p.Engine = EngineCycles
	}
	if p.Samples <= 0 {
		p.Samples = 256
	}
	if p.OutputFormat == OutputFormatVideo {
		if p.FPS <= 0 {
			p.FPS = 30
		}
		if p.Duration <= 0 {
			p.Duration = 10
		}
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
}

// Validate checks the creation parameters against the admission rules.
// Missing identity fields, format, or resolution fail with
// ErrMissingFields; an unknown format fails with ErrInvalidOutputFormat;
// non-positive dimensions fail with ErrInvalidResolution.
func (p CreateParams) Validate() error {
	if p.ProjectID == "" || p.SceneID == "" || p.UserID == "" {
		return fmt.Errorf("%w: projectId, sceneId, and userId are required", rendersched.ErrMissingFields)
	}
	if p.OutputFormat == "" {
		return fmt.Errorf("%w: outputFormat is required", rendersched.ErrMissingFields)
	}
	if !p.OutputFormat.Valid() {
		return fmt.Errorf("%w: %q", rendersched.ErrInvalidOutputFormat, p.OutputFormat)
	}

	res := p.Resolution
	if res.IsZero() {
		preset, ok := ResolutionForQuality(p.Quality)
		if !ok {
			return fmt.Errorf("%w: resolution is required", rendersched.ErrMissingFields)
		}
		res = preset
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", rendersched.ErrInvalidResolution, res.Width, res.Height)
	}

	return nil
}

// New validates params and builds a RenderJob in StatusQueued with
// progress zero, defaults applied, and the render time estimated.
func New(params CreateParams, defaultMaxRetries int) (*RenderJob, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.normalize(defaultMaxRetries)

	j := &RenderJob{
		Entity:               rendersched.NewEntity(),
		ID:                   id.NewJobID(),
		ProjectID:            params.ProjectID,
		SceneID:              params.SceneID,
		UserID:               params.UserID,
		OutputFormat:         params.OutputFormat,
		Resolution:           params.Resolution,
		Engine:               params.Engine,
		Samples:              params.Samples,
		FPS:                  params.FPS,
		Duration:             params.Duration,
		Priority:             params.Priority,
		Status:               StatusQueued,
		Progress:             0,
		CreditsCost:          params.CreditsCost,
		EstimatedTimeSeconds: EstimateRenderTime(params),
		RetryOnFailure:       params.RetryOnFailure,
		MaxRetries:           params.MaxRetries,
	}
	if len(params.Metadata) > 0 {
		j.Metadata = make(map[string]string, len(params.Metadata))
		for k, v := range params.Metadata {
			j.Metadata[k] = v
		}
	}

	return j, nil
}
