package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"plategate/internal/config"
	"plategate/internal/detect"
	"plategate/internal/ocr"
	"plategate/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path of the config file")
	streamURL := flag.String("stream", "", "video source (overrides camera.stream_url)")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "camera-worker").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	url := cfg.Camera.StreamURL
	if *streamURL != "" {
		url = *streamURL
	}
	if url == "" {
		log.Fatal().Msg("no video source configured; set camera.stream_url or pass -stream")
	}

	// Initialization failures are fatal: a worker with a broken backend
	// must not run.
	source, err := worker.OpenVideoSource(url)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open video source")
	}

	proposer, err := detect.New(detect.Config{
		Backend:        cfg.Detection.Backend,
		CascadePath:    cfg.Detection.CascadePath,
		ModelPath:      cfg.Detection.ModelPath,
		ModelConfig:    cfg.Detection.ModelConfig,
		ClassNamesPath: cfg.Detection.ClassNames,
		ScoreThreshold: cfg.Detection.ScoreThreshold,
		MaxCandidates:  cfg.Detection.MaxCandidates,
	})
	if err != nil {
		source.Close()
		log.Fatal().Err(err).Msg("failed to initialize detection backend")
	}
	defer proposer.Close()

	reader, err := ocr.NewExtractor(cfg.OCR.Language, cfg.OCR.Whitelist)
	if err != nil {
		source.Close()
		log.Fatal().Err(err).Msg("failed to initialize OCR")
	}
	defer reader.Close()

	dedup := worker.NewDeduplicator(cfg.Camera.DedupWindow)
	submitter := worker.NewSubmitter(cfg.Camera.ServerURL, cfg.Auth.APIToken, cfg.Camera.SubmitTimeout)

	w := worker.New(source, proposer, reader, dedup, submitter, worker.Options{
		Name:       cfg.Camera.WorkerName,
		CameraID:   cfg.Camera.ID,
		FrameDelay: cfg.Camera.FrameDelay,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("worker exited with error")
	}
}
