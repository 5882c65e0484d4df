package plate

import (
	"time"
)

// Action strings recorded on every decision.
const (
	ActionGranted = "access granted"
	ActionDenied  = "access denied"
)

// History actions recorded on registry mutations.
const (
	HistoryActivate   = "activate"
	HistoryDeactivate = "deactivate"
	HistoryUpdate     = "update"
	HistoryDelete     = "delete"
)

// DefaultSensitivity is the minimum OCR confidence required for a matched
// plate to be authorized, unless the record overrides it.
const DefaultSensitivity = 85.0

// DetectionEvent is one plate read produced by a camera worker. Immutable
// once created; the worker mints the EventID.
type DetectionEvent struct {
	EventID     string    `json:"event_id"`
	PlateNumber string    `json:"plate_number"`
	Confidence  float64   `json:"confidence"`
	ProcessedBy string    `json:"processed_by"`
	CameraID    *int64    `json:"camera_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// DecisionResult is what the decision engine returns to the submitter.
type DecisionResult struct {
	IsAuthorized bool   `json:"is_authorized"`
	ActionTaken  string `json:"action_taken"`
}

// AuthorizedPlate is a registry entry. Mutated only through the registry
// service, which appends one AuthorizationHistory entry per mutation.
type AuthorizedPlate struct {
	ID          int64      `json:"id"`
	PlateNumber string     `json:"plate_number"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	Sensitivity float64    `json:"sensitivity"`
	CreatedAt   time.Time  `json:"created_at"`
	LastAccess  *time.Time `json:"last_access,omitempty"`
}

// PlateRecord is the append-only audit row written for every decision.
type PlateRecord struct {
	ID           int64     `json:"id"`
	EventID      string    `json:"event_id"`
	PlateNumber  string    `json:"plate_number"`
	Confidence   float64   `json:"confidence"`
	IsAuthorized bool      `json:"is_authorized"`
	ProcessedBy  string    `json:"processed_by"`
	ActionTaken  string    `json:"action_taken"`
	CameraID     *int64    `json:"camera_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// AuthorizationHistory is the append-only audit trail of registry mutations.
type AuthorizationHistory struct {
	ID          int64     `json:"id"`
	PlateNumber string    `json:"plate_number"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// Camera is an administered camera record. The settings column carries
// backend-specific tuning as free-form JSON.
type Camera struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	IPAddress     string                 `json:"ip_address"`
	Port          int                    `json:"port"`
	Username      string                 `json:"username,omitempty"`
	Password      string                 `json:"-"`
	StreamType    string                 `json:"stream_type"`
	RTSPPath      string                 `json:"rtsp_path"`
	IsActive      bool                   `json:"is_active"`
	Settings      map[string]interface{} `json:"settings,omitempty"`
	LastConnected *time.Time             `json:"last_connected,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
