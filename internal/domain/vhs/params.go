package vhs

import (
	"retrocast-server-go/internal/platform/config"
)

// Params controls the tape-degradation transform. Zero values disable the
// corresponding stage, except the bandwidth widths where 1 is the no-op.
type Params struct {
	// LumaBandwidth is the uniform horizontal averaging kernel width for
	// the brightness channel. Chroma carries less bandwidth on tape, so
	// ChromaBandwidth should be >= LumaBandwidth.
	LumaBandwidth   int
	ChromaBandwidth int

	// ChromaOffset shifts Cr right and Cb left by this many pixels,
	// zero-filling the exposed edge.
	ChromaOffset int

	// Ghosting adds a delayed copy of the horizontal luma gradient.
	GhostShiftPixels int
	GhostStrength    float64

	// Standard deviations of the zero-mean Gaussian noise per channel group.
	LumaNoiseLevel   float64
	ChromaNoiseLevel float64

	// Each row independently tears sideways with GlitchProbability; the
	// signed offset is GlitchStrength * width * U(-0.5, 0.5).
	GlitchProbability float64
	GlitchStrength    float64
}

// DefaultParams reproduces the reference VHS look.
func DefaultParams() Params {
	return Params{
		LumaBandwidth:     5,
		ChromaBandwidth:   8,
		ChromaOffset:      2,
		GhostShiftPixels:  3,
		GhostStrength:     0.3,
		LumaNoiseLevel:    10.0,
		ChromaNoiseLevel:  20.0,
		GlitchProbability: 0.005,
		GlitchStrength:    0.8,
	}
}

// FromConfig maps the configuration surface onto transform parameters.
func FromConfig(cfg config.TransformConfig) Params {
	return Params{
		LumaBandwidth:     cfg.LumaBandwidth,
		ChromaBandwidth:   cfg.ChromaBandwidth,
		ChromaOffset:      cfg.ChromaOffset,
		GhostShiftPixels:  cfg.GhostShiftPixels,
		GhostStrength:     cfg.GhostStrength,
		LumaNoiseLevel:    cfg.LumaNoiseLevel,
		ChromaNoiseLevel:  cfg.ChromaNoiseLevel,
		GlitchProbability: cfg.GlitchProbability,
		GlitchStrength:    cfg.GlitchStrength,
	}
}
