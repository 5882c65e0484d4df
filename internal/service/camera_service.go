package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
)

// CameraStore persists administered camera records.
type CameraStore interface {
	Get(ctx context.Context, id int64) (*plate.Camera, error)
	List(ctx context.Context, activeOnly bool) ([]plate.Camera, error)
	Create(ctx context.Context, cam *plate.Camera) error
	Update(ctx context.Context, cam *plate.Camera) error
	Delete(ctx context.Context, id int64) error
	TouchLastConnected(ctx context.Context, id int64, at time.Time) error
}

type CameraService struct {
	store CameraStore
	log   zerolog.Logger
}

func NewCameraService(store CameraStore, log zerolog.Logger) *CameraService {
	return &CameraService{store: store, log: log}
}

func (s *CameraService) Create(ctx context.Context, cam plate.Camera) (*plate.Camera, error) {
	if cam.Name == "" || cam.IPAddress == "" {
		return nil, fmt.Errorf("%w: name and ip_address are required", ErrInvalidInput)
	}
	if cam.Port == 0 {
		cam.Port = 554
	}
	if cam.StreamType == "" {
		cam.StreamType = "rtsp"
	}
	if cam.RTSPPath == "" {
		cam.RTSPPath = "/"
	}
	cam.IsActive = true
	cam.CreatedAt = time.Now()

	if err := s.store.Create(ctx, &cam); err != nil {
		s.log.Error().Err(err).Str("camera", cam.Name).Msg("failed to create camera")
		return nil, fmt.Errorf("failed to create camera: %w", err)
	}
	s.log.Info().Int64("camera_id", cam.ID).Str("camera", cam.Name).Msg("camera created")
	return &cam, nil
}

func (s *CameraService) Get(ctx context.Context, id int64) (*plate.Camera, error) {
	cam, err := s.store.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: camera", ErrNotFound)
		}
		return nil, err
	}
	return cam, nil
}

func (s *CameraService) List(ctx context.Context, activeOnly bool) ([]plate.Camera, error) {
	cams, err := s.store.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	return cams, nil
}

func (s *CameraService) Update(ctx context.Context, cam plate.Camera) (*plate.Camera, error) {
	if cam.Name == "" || cam.IPAddress == "" {
		return nil, fmt.Errorf("%w: name and ip_address are required", ErrInvalidInput)
	}
	if err := s.store.Update(ctx, &cam); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: camera", ErrNotFound)
		}
		s.log.Error().Err(err).Int64("camera_id", cam.ID).Msg("failed to update camera")
		return nil, fmt.Errorf("failed to update camera: %w", err)
	}
	return s.Get(ctx, cam.ID)
}

func (s *CameraService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: camera", ErrNotFound)
		}
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	s.log.Info().Int64("camera_id", id).Msg("camera deleted")
	return nil
}
