package detect

import (
	"fmt"
	"image"
	"os"
	"strings"

	"gocv.io/x/gocv"
)

const (
	neuralInputSize    = 416
	neuralNMSThreshold = 0.4
)

// vehicleClasses whitelists the detector classes worth searching for plates.
var vehicleClasses = map[string]bool{
	"car":       true,
	"truck":     true,
	"bus":       true,
	"motorbike": true,
}

// NeuralProposer narrows the search space with a full-frame vehicle
// detector, then applies the contour heuristic inside each vehicle region
// and maps the boxes back to frame coordinates. Suppresses most off-vehicle
// false positives at the cost of a model dependency.
type NeuralProposer struct {
	net            gocv.Net
	outputNames    []string
	classNames     []string
	scoreThreshold float32
	max            int
}

func NewNeuralProposer(cfg Config) (*NeuralProposer, error) {
	net := gocv.ReadNet(cfg.ModelPath, cfg.ModelConfig)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	classNames, err := loadClassNames(cfg.ClassNamesPath)
	if err != nil {
		net.Close()
		return nil, err
	}

	threshold := float32(cfg.ScoreThreshold)
	if threshold <= 0 {
		threshold = 0.5
	}

	return &NeuralProposer{
		net:            net,
		outputNames:    outputLayerNames(&net),
		classNames:     classNames,
		scoreThreshold: threshold,
		max:            cfg.MaxCandidates,
	}, nil
}

func (p *NeuralProposer) Propose(frame gocv.Mat) ([]Candidate, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	vehicles, err := p.detectVehicles(frame)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, vehicle := range vehicles {
		roi := clampRect(vehicle.Rect, frame.Cols(), frame.Rows())
		if roi.Empty() {
			continue
		}
		region := frame.Region(roi)
		for _, c := range proposeByContours(region) {
			candidates = append(candidates, Candidate{
				Rect:  c.Rect.Add(roi.Min),
				Score: vehicle.Score,
			})
		}
		region.Close()
	}
	return rankCandidates(candidates, p.max), nil
}

// detectVehicles runs the full-frame detector and keeps whitelisted classes
// above the score threshold, de-duplicated with NMS.
func (p *NeuralProposer) detectVehicles(frame gocv.Mat) ([]Candidate, error) {
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(neuralInputSize, neuralInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	outputs := p.net.ForwardLayers(p.outputNames)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	frameW := float32(frame.Cols())
	frameH := float32(frame.Rows())

	var boxes []image.Rectangle
	var scores []float32
	for _, out := range outputs {
		cols := out.Cols()
		for row := 0; row < out.Rows(); row++ {
			classID, score := bestClass(out, row, cols)
			if score < p.scoreThreshold {
				continue
			}
			if classID >= len(p.classNames) || !vehicleClasses[p.classNames[classID]] {
				continue
			}

			cx := out.GetFloatAt(row, 0) * frameW
			cy := out.GetFloatAt(row, 1) * frameH
			w := out.GetFloatAt(row, 2) * frameW
			h := out.GetFloatAt(row, 3) * frameH
			boxes = append(boxes, image.Rect(
				int(cx-w/2), int(cy-h/2),
				int(cx+w/2), int(cy+h/2),
			))
			scores = append(scores, score)
		}
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	kept := gocv.NMSBoxes(boxes, scores, p.scoreThreshold, neuralNMSThreshold)
	vehicles := make([]Candidate, 0, len(kept))
	for _, idx := range kept {
		vehicles = append(vehicles, Candidate{
			Rect:  boxes[idx],
			Score: float64(scores[idx]),
		})
	}
	return vehicles, nil
}

// bestClass scans the class-score tail of one detection row.
func bestClass(out gocv.Mat, row, cols int) (int, float32) {
	bestID := -1
	var best float32
	for col := 5; col < cols; col++ {
		score := out.GetFloatAt(row, col)
		if score > best {
			best = score
			bestID = col - 5
		}
	}
	return bestID, best
}

func (p *NeuralProposer) Close() error {
	return p.net.Close()
}

func outputLayerNames(net *gocv.Net) []string {
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		names = append(names, layer.GetName())
		layer.Close()
	}
	return names
}

func loadClassNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class names from %s: %w", path, err)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
