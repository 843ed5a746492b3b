package job

import "math"

// Estimation constants. The estimate scales with pixel count relative to
// a 1080p baseline, so a 4K job always estimates strictly longer than an
// otherwise-identical 1080p job.
const (
	baselinePixels  = 1920 * 1080
	baselineSamples = 256

	// secondsPerFrame is the cost of one 1080p frame at baseline samples.
	secondsPerFrame = 45.0

	// overheadSeconds is the fixed per-job cost (scene load, encode,
	// upload) independent of output size.
	overheadSeconds = 15.0

	// eeveeSpeedup reflects Eevee's real-time rasterizer being much
	// cheaper than Cycles path tracing.
	eeveeSpeedup = 0.25
)

// EstimateRenderTime returns the estimated wall-clock seconds for the
// given creation parameters. The estimate is strictly monotonic in pixel
// count for otherwise-identical jobs.
func EstimateRenderTime(params CreateParams) int {
	res := params.Resolution
	if res.IsZero() {
		if preset, ok := ResolutionForQuality(params.Quality); ok {
			res = preset
		} else {
			res, _ = ResolutionForQuality("1080p")
		}
	}

	samples := params.Samples
	if samples <= 0 {
		samples = baselineSamples
	}

	perFrame := secondsPerFrame *
		(float64(res.PixelCount()) / float64(baselinePixels)) *
		(float64(samples) / float64(baselineSamples))

	if params.Engine == EngineEevee {
		perFrame *= eeveeSpeedup
	}

	frames := 1.0
	if params.OutputFormat == OutputFormatVideo {
		fps := params.FPS
		if fps <= 0 {
			fps = 30
		}
		duration := params.Duration
		if duration <= 0 {
			duration = 10
		}
		frames = float64(fps) * duration
	}

	return int(math.Ceil(perFrame*frames + overheadSeconds))
}
