package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&PoseSample{},
	&DragEvent{},
	&GeneralEvent{},
	&SyncPerformance{},
}

var DatabaseModelsSQLite = []interface{}{
	&Session{},
	&PoseSample{},
	&DragEvent{},
	&GeneralEvent{},
	&SyncPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SyncPerformance is the model for service performance metrics
type SyncPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	SessionID           uint              `json:"sessionId" gorm:"index:idx_syncperformance_session_id"`
	Session             Session           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	BufferLengths       BufferLengths     `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	FramesSeen          uint64            `json:"framesSeen"`
	FramesCommitted     uint64            `json:"framesCommitted"`
	DragsApplied        uint64            `json:"dragsApplied"`
	DragsRejected       uint64            `json:"dragsRejected"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*SyncPerformance) TableName() string {
	return "sync_performances"
}

// BufferLengths is the model for the buffer lengths
type BufferLengths struct {
	PoseSamples   uint16 `json:"poseSamples"`
	DragEvents    uint16 `json:"dragEvents"`
	GeneralEvents uint16 `json:"generalEvents"`
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	PoseSamples   uint16 `json:"poseSamples"`
	DragEvents    uint16 `json:"dragEvents"`
	GeneralEvents uint16 `json:"generalEvents"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is the main model for a recording session
type Session struct {
	gorm.Model
	Name            string         `json:"name" gorm:"size:200"`
	EngineName      string         `json:"engineName" gorm:"size:127"`
	ProjectionSRID  int            `json:"projectionSrid" gorm:"default:3857"`
	GimbalThreshold float64        `json:"gimbalThreshold" gorm:"default:1.0"`
	StartTime       time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime         time.Time      `json:"endTime" gorm:"type:timestamptz;default:NULL"`
	ServiceVersion  string         `json:"serviceVersion" gorm:"size:64;default:1.0.0"`
	Tag             string         `json:"tag" gorm:"size:127"`
	Addons          datatypes.JSON `json:"addons" gorm:"type:jsonb;default:'[]'"`

	PoseSamples   []PoseSample
	DragEvents    []DragEvent
	GeneralEvents []GeneralEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// Get loads the most recently started session matching the receiver's fields.
func (s *Session) Get(db *gorm.DB) (err error) {
	err = db.Where(&s).Order(
		"start_time DESC",
	).First(&s).Error
	return err
}

// PoseSample records the synchronized camera pose at the end of a frame.
// Positions are stored in the session projection (web mercator by default).
type PoseSample struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID    uint      `json:"sessionId" gorm:"index:idx_posesample_session_id"`
	Session      Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_posesample_capture_frame;"`

	CameraPosition geom.Point `json:"cameraPosition"` // projected camera ground position
	LookAtPosition geom.Point `json:"lookAtPosition"` // projected look-at position
	Tilt           float64    `json:"tilt"`           // degrees from straight down (0-90)
	Heading        float64    `json:"heading"`        // degrees clockwise from north (0-360)
	ViewRange      float64    `json:"range"`          // slant distance camera to look-at in meters
	Degenerate     bool       `json:"degenerate" gorm:"default:false"`
}

func (*PoseSample) TableName() string {
	return "pose_samples"
}

// DragEvent records a marker drop on the map and the view pushed back to the
// engine because of it. Applied is false when the drop was discarded.
type DragEvent struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID    uint      `json:"sessionId" gorm:"index:idx_dragevent_session_id"`
	Session      Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_dragevent_capture_frame;"`

	Marker       string     `json:"marker" gorm:"size:16"` // camera or lookat
	DropPosition geom.Point `json:"dropPosition"`          // projected drop position
	Heading      float64    `json:"heading"`
	ViewRange    float64    `json:"range"`
	Degenerate   bool       `json:"degenerate" gorm:"default:false"`
	Applied      bool       `json:"applied" gorm:"default:true"`
}

func (*DragEvent) TableName() string {
	return "drag_events"
}

// GeneralEvent is a generic event for engine attach/detach, activation, custom events
type GeneralEvent struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time      `json:"time" gorm:"type:timestamptz;"`
	SessionID    uint           `json:"sessionId" gorm:"index:idx_generalevent_session_id"`
	Session      Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	CaptureFrame uint           `json:"captureFrame" gorm:"index:idx_generalevent_capture_frame;"`
	Name         string         `json:"name" gorm:"size:64"`                      // Event type: activated, deactivated, engineChanged, custom
	Message      string         `json:"message"`                                  // Event message
	ExtraData    datatypes.JSON `json:"extraData" gorm:"type:jsonb;default:'{}'"` // Additional JSON data
}

func (g *GeneralEvent) TableName() string {
	return "general_events"
}
