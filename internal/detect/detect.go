// Package detect locates license-plate candidate regions in video frames.
// Three interchangeable backends satisfy the Proposer contract: a Haar
// cascade tuned for plate-like patterns, a cheap contour heuristic, and a
// two-stage neural variant that finds vehicles first.
package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Candidate is a plate-candidate bounding box. Score is the backend's prior
// confidence in [0,1]; backends without an intrinsic score leave it zero and
// candidates rank by area instead.
type Candidate struct {
	Rect  image.Rectangle
	Score float64
}

// Proposer finds plate candidates in a frame. A per-frame failure returns an
// error and the worker skips the frame; it never terminates the pipeline.
type Proposer interface {
	Propose(frame gocv.Mat) ([]Candidate, error)
	Close() error
}

// Config selects and tunes a backend. Constructors fail fast on missing
// model files so a misconfigured worker dies at startup, not mid-stream.
type Config struct {
	Backend        string
	CascadePath    string
	ModelPath      string
	ModelConfig    string
	ClassNamesPath string
	ScoreThreshold float64
	MaxCandidates  int
}

// New builds the proposer selected by cfg.Backend.
func New(cfg Config) (Proposer, error) {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 10
	}
	switch cfg.Backend {
	case "cascade":
		return NewCascadeProposer(cfg.CascadePath, cfg.MaxCandidates)
	case "contour":
		return NewContourProposer(cfg.MaxCandidates), nil
	case "neural":
		return NewNeuralProposer(cfg)
	default:
		return nil, fmt.Errorf("unknown detection backend %q", cfg.Backend)
	}
}

// ResizeMaxWidth downscales a frame in place when it is wider than maxWidth,
// preserving aspect ratio. Detection quality does not improve past ~1000 px
// and the cascade slows down quadratically.
func ResizeMaxWidth(frame *gocv.Mat, maxWidth int) {
	if frame.Cols() <= maxWidth {
		return
	}
	scale := float64(maxWidth) / float64(frame.Cols())
	height := int(float64(frame.Rows()) * scale)
	gocv.Resize(*frame, frame, image.Pt(maxWidth, height), 0, 0, gocv.InterpolationLinear)
}
