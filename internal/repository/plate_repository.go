package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"plategate/internal/domain/plate"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

type PlateRepository struct {
	db *gorm.DB
}

func NewPlateRepository(db *gorm.DB) *PlateRepository {
	return &PlateRepository{db: db}
}

type AuthorizedPlate struct {
	ID          int64   `gorm:"primaryKey"`
	PlateNumber string  `gorm:"not null;uniqueIndex"`
	Description string  `gorm:"not null"`
	IsActive    bool    `gorm:"not null"`
	Sensitivity float64 `gorm:"not null"`
	CreatedAt   time.Time
	LastAccess  *time.Time
}

type PlateRecord struct {
	ID           int64  `gorm:"primaryKey"`
	EventID      string `gorm:"not null"`
	PlateNumber  string `gorm:"not null"`
	Confidence   float64
	IsAuthorized bool   `gorm:"not null"`
	ProcessedBy  string `gorm:"not null"`
	ActionTaken  string `gorm:"not null"`
	CameraID     *int64
	Timestamp    time.Time `gorm:"not null"`
}

type AuthorizationHistory struct {
	ID          int64     `gorm:"primaryKey"`
	PlateNumber string    `gorm:"not null"`
	Action      string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	ChangedBy   string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"not null"`
}

func (AuthorizationHistory) TableName() string {
	return "authorization_history"
}

func (r *PlateRepository) FindActivePlate(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	var row AuthorizedPlate
	err := r.db.WithContext(ctx).
		Where("plate_number = ? AND is_active = ?", plateNumber, true).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainPlate(&row), nil
}

func (r *PlateRepository) FindPlateByNumber(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	var row AuthorizedPlate
	err := r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainPlate(&row), nil
}

func (r *PlateRepository) GetPlate(ctx context.Context, id int64) (*plate.AuthorizedPlate, error) {
	var row AuthorizedPlate
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainPlate(&row), nil
}

func (r *PlateRepository) ListPlates(ctx context.Context) ([]plate.AuthorizedPlate, error) {
	var rows []AuthorizedPlate
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]plate.AuthorizedPlate, 0, len(rows))
	for i := range rows {
		result = append(result, *toDomainPlate(&rows[i]))
	}
	return result, nil
}

// CreatePlate inserts the registry entry and its history entry in one
// transaction so the audit trail can never miss a mutation.
func (r *PlateRepository) CreatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entry *plate.AuthorizationHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := AuthorizedPlate{
			PlateNumber: rec.PlateNumber,
			Description: rec.Description,
			IsActive:    rec.IsActive,
			Sensitivity: rec.Sensitivity,
			CreatedAt:   rec.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		rec.ID = row.ID
		return tx.Create(toHistoryRow(entry)).Error
	})
}

// UpdatePlate persists field changes together with the history entries that
// describe them.
func (r *PlateRepository) UpdatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entries []plate.AuthorizationHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"plate_number": rec.PlateNumber,
			"description":  rec.Description,
			"is_active":    rec.IsActive,
			"sensitivity":  rec.Sensitivity,
		}
		res := tx.Model(&AuthorizedPlate{}).Where("id = ?", rec.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for i := range entries {
			if err := tx.Create(toHistoryRow(&entries[i])).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PlateRepository) DeletePlate(ctx context.Context, id int64, entry *plate.AuthorizationHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&AuthorizedPlate{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(toHistoryRow(entry)).Error
	})
}

func (r *PlateRepository) AppendPlateRecord(ctx context.Context, rec *plate.PlateRecord) error {
	row := PlateRecord{
		EventID:      rec.EventID,
		PlateNumber:  rec.PlateNumber,
		Confidence:   rec.Confidence,
		IsAuthorized: rec.IsAuthorized,
		ProcessedBy:  rec.ProcessedBy,
		ActionTaken:  rec.ActionTaken,
		CameraID:     rec.CameraID,
		Timestamp:    rec.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	return nil
}

func (r *PlateRepository) UpdateLastAccess(ctx context.Context, plateNumber string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&AuthorizedPlate{}).
		Where("plate_number = ?", plateNumber).
		Update("last_access", at).Error
}

func (r *PlateRepository) ListPlateRecords(ctx context.Context, limit, offset int) ([]plate.PlateRecord, error) {
	var rows []PlateRecord
	query := r.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]plate.PlateRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, plate.PlateRecord{
			ID:           row.ID,
			EventID:      row.EventID,
			PlateNumber:  row.PlateNumber,
			Confidence:   row.Confidence,
			IsAuthorized: row.IsAuthorized,
			ProcessedBy:  row.ProcessedBy,
			ActionTaken:  row.ActionTaken,
			CameraID:     row.CameraID,
			Timestamp:    row.Timestamp,
		})
	}
	return result, nil
}

func (r *PlateRepository) ListHistory(ctx context.Context, limit, offset int) ([]plate.AuthorizationHistory, error) {
	var rows []AuthorizationHistory
	query := r.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]plate.AuthorizationHistory, 0, len(rows))
	for _, row := range rows {
		result = append(result, plate.AuthorizationHistory{
			ID:          row.ID,
			PlateNumber: row.PlateNumber,
			Action:      row.Action,
			Description: row.Description,
			ChangedBy:   row.ChangedBy,
			Timestamp:   row.Timestamp,
		})
	}
	return result, nil
}

func toDomainPlate(row *AuthorizedPlate) *plate.AuthorizedPlate {
	return &plate.AuthorizedPlate{
		ID:          row.ID,
		PlateNumber: row.PlateNumber,
		Description: row.Description,
		IsActive:    row.IsActive,
		Sensitivity: row.Sensitivity,
		CreatedAt:   row.CreatedAt,
		LastAccess:  row.LastAccess,
	}
}

func toHistoryRow(entry *plate.AuthorizationHistory) *AuthorizationHistory {
	return &AuthorizationHistory{
		PlateNumber: entry.PlateNumber,
		Action:      entry.Action,
		Description: entry.Description,
		ChangedBy:   entry.ChangedBy,
		Timestamp:   entry.Timestamp,
	}
}
