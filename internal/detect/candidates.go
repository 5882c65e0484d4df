package detect

import (
	"image"
	"sort"
)

// Plate-shape heuristics shared by the contour and neural backends.
const (
	minAspectRatio = 2.0
	maxAspectRatio = 5.0
	minPlateWidth  = 60
)

// plateShaped reports whether a bounding box has plate-like geometry.
func plateShaped(rect image.Rectangle) bool {
	w := rect.Dx()
	h := rect.Dy()
	if h <= 0 || w < minPlateWidth {
		return false
	}
	ratio := float64(w) / float64(h)
	return ratio >= minAspectRatio && ratio <= maxAspectRatio
}

// rankCandidates orders candidates by prior score, breaking ties by area,
// and caps the result at max.
func rankCandidates(candidates []Candidate, max int) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return area(candidates[i].Rect) > area(candidates[j].Rect)
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

func area(rect image.Rectangle) int {
	return rect.Dx() * rect.Dy()
}

// clampRect confines a rectangle to the given frame bounds.
func clampRect(rect image.Rectangle, width, height int) image.Rectangle {
	return rect.Intersect(image.Rect(0, 0, width, height))
}
