package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"plategate/internal/domain/plate"
)

type CameraRepository struct {
	db *gorm.DB
}

func NewCameraRepository(db *gorm.DB) *CameraRepository {
	return &CameraRepository{db: db}
}

type Camera struct {
	ID            int64  `gorm:"primaryKey"`
	Name          string `gorm:"not null;uniqueIndex"`
	IPAddress     string `gorm:"not null"`
	Port          int    `gorm:"not null"`
	Username      *string
	Password      *string
	StreamType    string `gorm:"not null"`
	RTSPPath      string `gorm:"not null;column:rtsp_path"`
	IsActive      bool   `gorm:"not null"`
	Settings      datatypes.JSON
	LastConnected *time.Time
	CreatedAt     time.Time
}

func (r *CameraRepository) Get(ctx context.Context, id int64) (*plate.Camera, error) {
	var row Camera
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainCamera(&row)
}

func (r *CameraRepository) List(ctx context.Context, activeOnly bool) ([]plate.Camera, error) {
	query := r.db.WithContext(ctx).Order("id")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []Camera
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]plate.Camera, 0, len(rows))
	for i := range rows {
		cam, err := toDomainCamera(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *cam)
	}
	return result, nil
}

func (r *CameraRepository) Create(ctx context.Context, cam *plate.Camera) error {
	row, err := toCameraRow(cam)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	cam.ID = row.ID
	return nil
}

func (r *CameraRepository) Update(ctx context.Context, cam *plate.Camera) error {
	row, err := toCameraRow(cam)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&Camera{}).Where("id = ?", cam.ID).Updates(map[string]interface{}{
		"name":        row.Name,
		"ip_address":  row.IPAddress,
		"port":        row.Port,
		"username":    row.Username,
		"password":    row.Password,
		"stream_type": row.StreamType,
		"rtsp_path":   row.RTSPPath,
		"is_active":   row.IsActive,
		"settings":    row.Settings,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CameraRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&Camera{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CameraRepository) TouchLastConnected(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Camera{}).
		Where("id = ?", id).
		Update("last_connected", at).Error
}

func toDomainCamera(row *Camera) (*plate.Camera, error) {
	cam := &plate.Camera{
		ID:            row.ID,
		Name:          row.Name,
		IPAddress:     row.IPAddress,
		Port:          row.Port,
		StreamType:    row.StreamType,
		RTSPPath:      row.RTSPPath,
		IsActive:      row.IsActive,
		LastConnected: row.LastConnected,
		CreatedAt:     row.CreatedAt,
	}
	if row.Username != nil {
		cam.Username = *row.Username
	}
	if row.Password != nil {
		cam.Password = *row.Password
	}
	if len(row.Settings) > 0 {
		if err := json.Unmarshal(row.Settings, &cam.Settings); err != nil {
			return nil, err
		}
	}
	return cam, nil
}

func toCameraRow(cam *plate.Camera) (*Camera, error) {
	row := &Camera{
		ID:         cam.ID,
		Name:       cam.Name,
		IPAddress:  cam.IPAddress,
		Port:       cam.Port,
		StreamType: cam.StreamType,
		RTSPPath:   cam.RTSPPath,
		IsActive:   cam.IsActive,
		CreatedAt:  cam.CreatedAt,
	}
	if cam.Username != "" {
		row.Username = &cam.Username
	}
	if cam.Password != "" {
		row.Password = &cam.Password
	}
	if cam.Settings != nil {
		data, err := json.Marshal(cam.Settings)
		if err != nil {
			return nil, err
		}
		row.Settings = datatypes.JSON(data)
	}
	return row, nil
}
