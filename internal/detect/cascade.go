package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Multi-scale sweep parameters carried over from the tuned deployment:
// a 1.1 pyramid step with 5 neighbor confirmations, and box bounds that
// bracket real plate sizes at ≤1000 px frame width.
const (
	cascadeScaleFactor  = 1.1
	cascadeMinNeighbors = 5
)

var (
	cascadeMinSize = image.Pt(60, 20)
	cascadeMaxSize = image.Pt(300, 100)
)

// CascadeProposer runs a Haar cascade trained on license plates over the
// enhanced frame. The cascade gives no per-box confidence; all candidates
// carry equal prior and rank by area.
type CascadeProposer struct {
	classifier gocv.CascadeClassifier
	max        int
}

func NewCascadeProposer(cascadePath string, max int) (*CascadeProposer, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load plate cascade from %s", cascadePath)
	}
	return &CascadeProposer{classifier: classifier, max: max}, nil
}

func (p *CascadeProposer) Propose(frame gocv.Mat) ([]Candidate, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	enhanced := enhanceForDetection(frame)
	defer enhanced.Close()

	rects := p.classifier.DetectMultiScaleWithParams(
		enhanced,
		cascadeScaleFactor,
		cascadeMinNeighbors,
		0,
		cascadeMinSize,
		cascadeMaxSize,
	)

	candidates := make([]Candidate, 0, len(rects))
	for _, rect := range rects {
		candidates = append(candidates, Candidate{Rect: rect})
	}
	return rankCandidates(candidates, p.max), nil
}

func (p *CascadeProposer) Close() error {
	return p.classifier.Close()
}
