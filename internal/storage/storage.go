// internal/storage/storage.go
package storage

import "github.com/geoviewer/camsync/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Pose and interaction recording
	RecordPoseSample(p *core.PoseSample) error
	RecordDragEvent(e *core.DragEvent) error
	RecordGeneralEvent(e *core.GeneralEvent) error
}

// UploadMetadata describes an exported session file for the web frontend
// upload form.
type UploadMetadata struct {
	EngineName      string
	SessionName     string
	SessionDuration float64
	Tag             string
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() UploadMetadata
}

// Replayable is an optional interface for backends that retain the recorded
// session in memory and can hand it back, e.g. for KML export.
type Replayable interface {
	GetSession() (core.Session, bool)
	PoseSamples() []core.PoseSample
	DragEvents() []core.DragEvent
	GeneralEvents() []core.GeneralEvent
}
