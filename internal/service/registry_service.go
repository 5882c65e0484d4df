package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
)

// RegistryService owns administrative mutations of the authorized-plate
// registry. Every mutation appends exactly one history entry per changed
// aspect, written atomically with the mutation by the store.
type RegistryService struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewRegistryService(store Store, log zerolog.Logger) *RegistryService {
	return &RegistryService{store: store, log: log, now: time.Now}
}

type CreatePlateInput struct {
	PlateNumber string
	Description string
	Sensitivity *float64
}

type UpdatePlateInput struct {
	PlateNumber *string
	Description *string
	Sensitivity *float64
	IsActive    *bool
}

func (s *RegistryService) Create(ctx context.Context, input CreatePlateInput, changedBy string) (*plate.AuthorizedPlate, error) {
	if input.PlateNumber == "" {
		return nil, fmt.Errorf("%w: plate_number is required", ErrInvalidInput)
	}
	sensitivity := plate.DefaultSensitivity
	if input.Sensitivity != nil {
		sensitivity = *input.Sensitivity
	}
	if sensitivity < 0 || sensitivity > 100 {
		return nil, fmt.Errorf("%w: sensitivity must be in [0,100]", ErrInvalidInput)
	}

	existing, err := s.store.FindPlateByNumber(ctx, input.PlateNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check plate number: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: plate %s already registered", ErrConflict, input.PlateNumber)
	}

	rec := &plate.AuthorizedPlate{
		PlateNumber: input.PlateNumber,
		Description: input.Description,
		IsActive:    true,
		Sensitivity: sensitivity,
		CreatedAt:   s.now(),
	}
	entry := s.historyEntry(rec.PlateNumber, plate.HistoryActivate, "plate registered", changedBy)
	if err := s.store.CreatePlate(ctx, rec, entry); err != nil {
		s.log.Error().Err(err).Str("plate", rec.PlateNumber).Msg("failed to create authorized plate")
		return nil, fmt.Errorf("failed to create authorized plate: %w", err)
	}

	s.log.Info().Str("plate", rec.PlateNumber).Str("changed_by", changedBy).Msg("authorized plate created")
	return rec, nil
}

func (s *RegistryService) Update(ctx context.Context, id int64, input UpdatePlateInput, changedBy string) (*plate.AuthorizedPlate, error) {
	rec, err := s.store.GetPlate(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err)
	}

	var entries []plate.AuthorizationHistory

	if input.PlateNumber != nil && *input.PlateNumber != rec.PlateNumber {
		if *input.PlateNumber == "" {
			return nil, fmt.Errorf("%w: plate_number cannot be empty", ErrInvalidInput)
		}
		existing, err := s.store.FindPlateByNumber(ctx, *input.PlateNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to check plate number: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, fmt.Errorf("%w: plate %s already registered", ErrConflict, *input.PlateNumber)
		}
		entries = append(entries, *s.historyEntry(*input.PlateNumber, plate.HistoryUpdate,
			fmt.Sprintf("plate number changed: %s -> %s", rec.PlateNumber, *input.PlateNumber), changedBy))
		rec.PlateNumber = *input.PlateNumber
	}

	if input.Description != nil && *input.Description != rec.Description {
		rec.Description = *input.Description
		entries = append(entries, *s.historyEntry(rec.PlateNumber, plate.HistoryUpdate, "description changed", changedBy))
	}

	if input.Sensitivity != nil && *input.Sensitivity != rec.Sensitivity {
		if *input.Sensitivity < 0 || *input.Sensitivity > 100 {
			return nil, fmt.Errorf("%w: sensitivity must be in [0,100]", ErrInvalidInput)
		}
		rec.Sensitivity = *input.Sensitivity
		entries = append(entries, *s.historyEntry(rec.PlateNumber, plate.HistoryUpdate,
			fmt.Sprintf("sensitivity changed: %.1f", rec.Sensitivity), changedBy))
	}

	if input.IsActive != nil && *input.IsActive != rec.IsActive {
		rec.IsActive = *input.IsActive
		action := plate.HistoryDeactivate
		if rec.IsActive {
			action = plate.HistoryActivate
		}
		entries = append(entries, *s.historyEntry(rec.PlateNumber, action,
			fmt.Sprintf("plate %sd", action), changedBy))
	}

	if len(entries) == 0 {
		return rec, nil
	}

	if err := s.store.UpdatePlate(ctx, rec, entries); err != nil {
		s.log.Error().Err(err).Str("plate", rec.PlateNumber).Msg("failed to update authorized plate")
		return nil, s.wrapLookup(err)
	}

	s.log.Info().
		Str("plate", rec.PlateNumber).
		Int("history_entries", len(entries)).
		Str("changed_by", changedBy).
		Msg("authorized plate updated")
	return rec, nil
}

// SetActive flips the activation state, appending one history entry. A no-op
// transition (activating an active plate) is rejected so the audit trail
// stays one entry per real state change.
func (s *RegistryService) SetActive(ctx context.Context, id int64, active bool, changedBy string) (*plate.AuthorizedPlate, error) {
	rec, err := s.store.GetPlate(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err)
	}
	if rec.IsActive == active {
		return nil, fmt.Errorf("%w: plate is already in the requested state", ErrInvalidInput)
	}
	return s.Update(ctx, id, UpdatePlateInput{IsActive: &active}, changedBy)
}

// Delete removes the registry record permanently. The history entry outlives
// the record; deletion is terminal.
func (s *RegistryService) Delete(ctx context.Context, id int64, changedBy string) error {
	rec, err := s.store.GetPlate(ctx, id)
	if err != nil {
		return s.wrapLookup(err)
	}
	entry := s.historyEntry(rec.PlateNumber, plate.HistoryDelete, "plate deleted", changedBy)
	if err := s.store.DeletePlate(ctx, id, entry); err != nil {
		s.log.Error().Err(err).Str("plate", rec.PlateNumber).Msg("failed to delete authorized plate")
		return s.wrapLookup(err)
	}
	s.log.Info().Str("plate", rec.PlateNumber).Str("changed_by", changedBy).Msg("authorized plate deleted")
	return nil
}

func (s *RegistryService) Get(ctx context.Context, id int64) (*plate.AuthorizedPlate, error) {
	rec, err := s.store.GetPlate(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err)
	}
	return rec, nil
}

func (s *RegistryService) List(ctx context.Context) ([]plate.AuthorizedPlate, error) {
	plates, err := s.store.ListPlates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized plates: %w", err)
	}
	return plates, nil
}

func (s *RegistryService) historyEntry(plateNumber, action, description, changedBy string) *plate.AuthorizationHistory {
	return &plate.AuthorizationHistory{
		PlateNumber: plateNumber,
		Action:      action,
		Description: description,
		ChangedBy:   changedBy,
		Timestamp:   s.now(),
	}
}

func (s *RegistryService) wrapLookup(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: authorized plate", ErrNotFound)
	}
	return err
}
