package detect

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

const (
	contourKeepLargest = 10
	cannyLow           = 30
	cannyHigh          = 200
	polyEpsilonFactor  = 0.018
)

// ContourProposer is the cheap heuristic backend: edge-preserving smoothing,
// Canny edges, then near-quadrilateral contours with plate-like geometry.
// Higher false-positive rate than the cascade; the decision layer's
// sensitivity threshold is the second filter.
type ContourProposer struct {
	max int
}

func NewContourProposer(max int) *ContourProposer {
	return &ContourProposer{max: max}
}

func (p *ContourProposer) Propose(frame gocv.Mat) ([]Candidate, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	candidates := proposeByContours(frame)
	return rankCandidates(candidates, p.max), nil
}

func (p *ContourProposer) Close() error { return nil }

// proposeByContours runs the contour heuristic over a BGR image. Shared with
// the neural backend, which applies it inside vehicle regions.
func proposeByContours(img gocv.Mat) []Candidate {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	// Bilateral filtering smooths noise while keeping the plate frame edges.
	filtered := gocv.NewMat()
	defer filtered.Close()
	gocv.BilateralFilter(gray, &filtered, 11, 17, 17)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(filtered, &edges, cannyLow, cannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	type indexedContour struct {
		index int
		area  float64
	}
	byArea := make([]indexedContour, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		byArea = append(byArea, indexedContour{index: i, area: gocv.ContourArea(contours.At(i))})
	}
	sort.Slice(byArea, func(i, j int) bool { return byArea[i].area > byArea[j].area })
	if len(byArea) > contourKeepLargest {
		byArea = byArea[:contourKeepLargest]
	}

	var candidates []Candidate
	for _, ic := range byArea {
		contour := contours.At(ic.index)
		peri := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, polyEpsilonFactor*peri, true)

		// A plate projects to a quadrilateral; allow a little slack for
		// rounded corners.
		vertices := approx.Size()
		if vertices >= 4 && vertices <= 6 {
			rect := gocv.BoundingRect(approx)
			if plateShaped(rect) {
				candidates = append(candidates, Candidate{Rect: rect})
			}
		}
		approx.Close()
	}
	return candidates
}
