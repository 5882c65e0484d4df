package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Store is the persistence surface the decision engine and registry depend
// on. Registry mutations must persist the record change and its history
// entry atomically.
type Store interface {
	FindActivePlate(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error)
	FindPlateByNumber(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error)
	GetPlate(ctx context.Context, id int64) (*plate.AuthorizedPlate, error)
	ListPlates(ctx context.Context) ([]plate.AuthorizedPlate, error)
	CreatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entry *plate.AuthorizationHistory) error
	UpdatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entries []plate.AuthorizationHistory) error
	DeletePlate(ctx context.Context, id int64, entry *plate.AuthorizationHistory) error
	AppendPlateRecord(ctx context.Context, rec *plate.PlateRecord) error
	UpdateLastAccess(ctx context.Context, plateNumber string, at time.Time) error
	ListPlateRecords(ctx context.Context, limit, offset int) ([]plate.PlateRecord, error)
	ListHistory(ctx context.Context, limit, offset int) ([]plate.AuthorizationHistory, error)
}

// GateNotifier is told about granted decisions so a gate controller can act.
type GateNotifier interface {
	NotifyAccessGranted(event plate.DetectionEvent) error
}

// DecisionService is the authoritative authorization engine. Concurrent
// submissions for the same plate number are serialized through a per-plate
// lock so the read-match-update-append sequence never interleaves; different
// plates proceed independently.
type DecisionService struct {
	store    Store
	notifier GateNotifier
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewDecisionService(store Store, notifier GateNotifier, log zerolog.Logger) *DecisionService {
	return &DecisionService{
		store:    store,
		notifier: notifier,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// Decide matches a detection event against the registry, appends exactly one
// plate record and returns the decision. Authorization is fail-closed: a
// matched plate with confidence below its sensitivity is denied, and
// last_access moves only on the granted path.
func (s *DecisionService) Decide(ctx context.Context, event plate.DetectionEvent) (*plate.DecisionResult, error) {
	if event.PlateNumber == "" {
		return nil, fmt.Errorf("%w: plate_number is required", ErrInvalidInput)
	}
	if event.Confidence < 0 || event.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be in [0,100]", ErrInvalidInput)
	}
	if event.ProcessedBy == "" {
		event.ProcessedBy = "system"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	unlock := s.lockPlate(event.PlateNumber)
	defer unlock()

	matched, err := s.store.FindActivePlate(ctx, event.PlateNumber)
	if err != nil {
		s.log.Error().Err(err).Str("plate", event.PlateNumber).Msg("registry lookup failed")
		return nil, fmt.Errorf("failed to look up plate: %w", err)
	}

	authorized := matched != nil && event.Confidence >= matched.Sensitivity
	action := plate.ActionDenied
	if authorized {
		action = plate.ActionGranted
	}

	if authorized {
		if err := s.store.UpdateLastAccess(ctx, event.PlateNumber, event.Timestamp); err != nil {
			s.log.Error().Err(err).Str("plate", event.PlateNumber).Msg("failed to update last access")
			return nil, fmt.Errorf("failed to update last access: %w", err)
		}
	}

	record := &plate.PlateRecord{
		EventID:      event.EventID,
		PlateNumber:  event.PlateNumber,
		Confidence:   event.Confidence,
		IsAuthorized: authorized,
		ProcessedBy:  event.ProcessedBy,
		ActionTaken:  action,
		CameraID:     event.CameraID,
		Timestamp:    event.Timestamp,
	}
	if err := s.store.AppendPlateRecord(ctx, record); err != nil {
		s.log.Error().Err(err).Str("plate", event.PlateNumber).Msg("failed to append plate record")
		return nil, fmt.Errorf("failed to append plate record: %w", err)
	}

	s.log.Info().
		Str("plate", event.PlateNumber).
		Float64("confidence", event.Confidence).
		Bool("is_authorized", authorized).
		Str("action_taken", action).
		Str("processed_by", event.ProcessedBy).
		Msg("detection decided")

	if authorized && s.notifier != nil {
		if err := s.notifier.NotifyAccessGranted(event); err != nil {
			// The decision is already persisted; a lost gate notification
			// must not fail the submission.
			s.log.Error().Err(err).Str("plate", event.PlateNumber).Msg("gate notification failed")
		}
	}

	return &plate.DecisionResult{
		IsAuthorized: authorized,
		ActionTaken:  action,
	}, nil
}

// lockPlate serializes decisions per plate number.
func (s *DecisionService) lockPlate(plateNumber string) func() {
	s.mu.Lock()
	lock, ok := s.locks[plateNumber]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[plateNumber] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *DecisionService) ListPlateRecords(ctx context.Context, limit, offset int) ([]plate.PlateRecord, error) {
	limit = clampLimit(limit)
	records, err := s.store.ListPlateRecords(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list plate records: %w", err)
	}
	return records, nil
}

func (s *DecisionService) ListHistory(ctx context.Context, limit, offset int) ([]plate.AuthorizationHistory, error) {
	limit = clampLimit(limit)
	entries, err := s.store.ListHistory(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorization history: %w", err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}
