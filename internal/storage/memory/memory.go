// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/geoviewer/camsync/internal/config"
	"github.com/geoviewer/camsync/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	endTime time.Time

	poseSamples   []core.PoseSample
	dragEvents    []core.DragEvent
	generalEvents []core.GeneralEvent

	// most recent record time, used for duration before the session ends
	lastRecordTime time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:           cfg,
		poseSamples:   make([]core.PoseSample, 0),
		dragEvents:    make([]core.DragEvent, 0),
		generalEvents: make([]core.GeneralEvent, 0),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.endTime = time.Time{}
	b.lastRecordTime = time.Time{}

	// Reset all collections
	b.poseSamples = make([]core.PoseSample, 0)
	b.dragEvents = make([]core.DragEvent, 0)
	b.generalEvents = make([]core.GeneralEvent, 0)
	b.lastExportPath = ""

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session to end")
	}
	b.endTime = time.Now()

	return b.exportJSON()
}

// RecordPoseSample records a committed pose
func (b *Backend) RecordPoseSample(p *core.PoseSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poseSamples = append(b.poseSamples, *p)
	if p.Time.After(b.lastRecordTime) {
		b.lastRecordTime = p.Time
	}
	return nil
}

// RecordDragEvent records a marker drag
func (b *Backend) RecordDragEvent(e *core.DragEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dragEvents = append(b.dragEvents, *e)
	if e.Time.After(b.lastRecordTime) {
		b.lastRecordTime = e.Time
	}
	return nil
}

// RecordGeneralEvent records a general event
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generalEvents = append(b.generalEvents, *e)
	if e.Time.After(b.lastRecordTime) {
		b.lastRecordTime = e.Time
	}
	return nil
}

// GetSession returns the active session, if any
func (b *Backend) GetSession() (core.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.session == nil {
		return core.Session{}, false
	}
	return *b.session, true
}

// PoseSamples returns a copy of the recorded pose samples
func (b *Backend) PoseSamples() []core.PoseSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.PoseSample, len(b.poseSamples))
	copy(out, b.poseSamples)
	return out
}

// DragEvents returns a copy of the recorded drag events
func (b *Backend) DragEvents() []core.DragEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.DragEvent, len(b.dragEvents))
	copy(out, b.dragEvents)
	return out
}

// GeneralEvents returns a copy of the recorded general events
func (b *Backend) GeneralEvents() []core.GeneralEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.GeneralEvent, len(b.generalEvents))
	copy(out, b.generalEvents)
	return out
}

// duration returns the recorded session length in seconds.
// Callers must hold at least a read lock.
func (b *Backend) duration() float64 {
	if b.session == nil || b.session.StartTime.IsZero() {
		return 0
	}
	switch {
	case !b.endTime.IsZero():
		return b.endTime.Sub(b.session.StartTime).Seconds()
	case !b.lastRecordTime.IsZero():
		return b.lastRecordTime.Sub(b.session.StartTime).Seconds()
	default:
		return 0
	}
}
