// Package worker runs one camera's detection pipeline: capture a frame,
// propose plate regions, read text, deduplicate, submit to the decision
// service. Each worker is fully independent; there is no shared state
// between camera pipelines.
package worker

import (
	"context"
	"errors"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"plategate/internal/detect"
	"plategate/internal/domain/plate"
	"plategate/internal/ocr"
)

const maxFrameWidth = 1000

// TextReader is the OCR surface the worker needs; satisfied by
// *ocr.Extractor.
type TextReader interface {
	Extract(frame gocv.Mat, region image.Rectangle) (*ocr.Result, error)
	Close() error
}

// Options wires one worker instance.
type Options struct {
	Name       string
	CameraID   int64
	FrameDelay time.Duration
}

type Worker struct {
	source    FrameSource
	proposer  detect.Proposer
	reader    TextReader
	dedup     *Deduplicator
	submitter *Submitter
	opts      Options
	log       zerolog.Logger
}

func New(
	source FrameSource,
	proposer detect.Proposer,
	reader TextReader,
	dedup *Deduplicator,
	submitter *Submitter,
	opts Options,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		source:    source,
		proposer:  proposer,
		reader:    reader,
		dedup:     dedup,
		submitter: submitter,
		opts:      opts,
		log:       log,
	}
}

// Run processes frames until the stream ends or the context is cancelled.
// Per-frame errors are logged and skipped; only the frame source ending the
// stream terminates the loop. The capture resource is released on every
// exit path.
func (w *Worker) Run(ctx context.Context) error {
	defer w.source.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	w.log.Info().Str("worker", w.opts.Name).Msg("camera worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Str("worker", w.opts.Name).Msg("camera worker stopped")
			return ctx.Err()
		default:
		}

		if err := w.source.Next(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				w.log.Info().Str("worker", w.opts.Name).Msg("end of stream")
				return nil
			}
			w.log.Error().Err(err).Str("worker", w.opts.Name).Msg("frame read failed")
			return err
		}

		detect.ResizeMaxWidth(&frame, maxFrameWidth)
		w.processFrame(ctx, frame)

		if w.opts.FrameDelay > 0 {
			select {
			case <-time.After(w.opts.FrameDelay):
			case <-ctx.Done():
			}
		}
	}
}

// processFrame runs one detect-extract-dedupe-submit pass. Every failure in
// here is local to the frame.
func (w *Worker) processFrame(ctx context.Context, frame gocv.Mat) {
	candidates, err := w.proposer.Propose(frame)
	if err != nil {
		w.log.Warn().Err(err).Str("worker", w.opts.Name).Msg("detection failed, skipping frame")
		return
	}

	for _, candidate := range candidates {
		result, err := w.reader.Extract(frame, candidate.Rect)
		if err != nil {
			if !errors.Is(err, ocr.ErrNoCandidate) {
				w.log.Warn().Err(err).Str("worker", w.opts.Name).Msg("text extraction failed")
			}
			continue
		}

		now := time.Now()
		if !w.dedup.ShouldSubmit(result.Text, now) {
			continue
		}

		cameraID := w.opts.CameraID
		event := plate.DetectionEvent{
			EventID:     uuid.NewString(),
			PlateNumber: result.Text,
			Confidence:  result.Confidence,
			ProcessedBy: w.opts.Name,
			CameraID:    &cameraID,
			Timestamp:   now,
		}

		decision, err := w.submitter.Submit(ctx, event)
		if err != nil {
			// At-most-once: the event is dropped, the next frame may retry.
			w.log.Error().
				Err(err).
				Str("worker", w.opts.Name).
				Str("plate", result.Text).
				Msg("submission failed, event dropped")
			continue
		}

		w.dedup.MarkSubmitted(result.Text, now)
		w.log.Info().
			Str("worker", w.opts.Name).
			Str("plate", result.Text).
			Float64("confidence", result.Confidence).
			Bool("is_authorized", decision.IsAuthorized).
			Str("action_taken", decision.ActionTaken).
			Msg("plate submitted")
	}
}
