// Package ocr reads normalized plate text out of candidate regions.
package ocr

import (
	"errors"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// ErrNoCandidate means the region produced no plate-like text. Treated by
// the worker as "no plate this frame", never as a failure.
var ErrNoCandidate = errors.New("no plate candidate")

const roiPadding = 10

// Result is one accepted plate read.
type Result struct {
	Text       string
	Confidence float64
}

// Extractor wraps a Tesseract client. Not safe for concurrent use; each
// camera worker owns its own instance.
type Extractor struct {
	client *gosseract.Client
}

// NewExtractor configures Tesseract for single-line plate reading with the
// given language and character whitelist.
func NewExtractor(language, whitelist string) (*Extractor, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if whitelist != "" {
		if err := client.SetWhitelist(whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR whitelist: %w", err)
		}
	}
	return &Extractor{client: client}, nil
}

func (e *Extractor) Close() error {
	return e.client.Close()
}

// Extract reads plate text from the candidate region of the frame. The
// region is padded, enhanced and binarized before OCR; the best hypothesis
// is normalized and checked against the plate sanity filter.
func (e *Extractor) Extract(frame gocv.Mat, region image.Rectangle) (*Result, error) {
	roi := padRect(region, frame.Cols(), frame.Rows())
	if roi.Empty() {
		return nil, ErrNoCandidate
	}

	prepared := prepareRegion(frame, roi)
	defer prepared.Close()

	encoded, err := gocv.IMEncode(".png", prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	defer encoded.Close()

	if err := e.client.SetImageFromBytes(encoded.GetBytes()); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}

	lines, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR hypotheses: %w", err)
	}

	best, ok := bestHypothesis(lines)
	if !ok {
		return nil, ErrNoCandidate
	}

	normalized := Normalize(best.Word)
	if !PlateLike(normalized) {
		return nil, ErrNoCandidate
	}

	return &Result{Text: normalized, Confidence: best.Confidence}, nil
}

// bestHypothesis picks the maximum-confidence line. Tesseract reports
// confidence on a 0-100 scale already.
func bestHypothesis(lines []gosseract.BoundingBox) (gosseract.BoundingBox, bool) {
	var best gosseract.BoundingBox
	found := false
	for _, line := range lines {
		if line.Word == "" {
			continue
		}
		if !found || line.Confidence > best.Confidence {
			best = line
			found = true
		}
	}
	return best, found
}

// prepareRegion enhances and binarizes a plate region: denoise, sharpen,
// CLAHE contrast, grayscale, then Otsu thresholding.
func prepareRegion(frame gocv.Mat, roi image.Rectangle) gocv.Mat {
	region := frame.Region(roi)
	defer region.Close()

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoisingColoredWithParams(region, &denoised, 10, 10, 7, 21)

	sharpened := gocv.NewMat()
	defer sharpened.Close()
	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kernel.SetFloatAt(row, col, -1)
		}
	}
	kernel.SetFloatAt(1, 1, 9)
	gocv.Filter2D(denoised, &sharpened, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(sharpened, &gray, gocv.ColorBGRToGray)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	return binary
}

// padRect grows the candidate box a little; cascade boxes tend to crop the
// plate frame tightly and Tesseract wants margin around the glyphs.
func padRect(rect image.Rectangle, width, height int) image.Rectangle {
	padded := image.Rect(
		rect.Min.X-roiPadding,
		rect.Min.Y-roiPadding,
		rect.Max.X+roiPadding,
		rect.Max.Y+roiPadding,
	)
	return padded.Intersect(image.Rect(0, 0, width, height))
}
