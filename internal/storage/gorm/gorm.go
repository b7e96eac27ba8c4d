// Package gormstorage implements the storage.Backend interface on top of a
// GORM connection with internal queues and a background DB writer goroutine.
// The postgres and sqlite backends both build on it; with a nil DB it runs in
// queue-only mode, which the unit tests use.
package gormstorage

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/geoviewer/camsync/internal/cache"
	"github.com/geoviewer/camsync/internal/logging"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/internal/model/convert"
	"github.com/geoviewer/camsync/internal/queue"
	"github.com/geoviewer/camsync/internal/session"
	"github.com/geoviewer/camsync/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
// The func fields may be nil; they then default to false.
type Dependencies struct {
	DB              *gorm.DB
	PoseCache       *cache.PoseCache
	LogManager      *logging.SlogManager
	SessionContext  *session.Context
	IsDatabaseValid func() bool
	ShouldSaveLocal func() bool
	DBInsertsPaused func() bool
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	PoseSamples   *queue.Queue[model.PoseSample]
	DragEvents    *queue.Queue[model.DragEvent]
	GeneralEvents *queue.Queue[model.GeneralEvent]
}

func newQueues() *queues {
	return &queues{
		PoseSamples:   queue.New[model.PoseSample](),
		DragEvents:    queue.New[model.DragEvent](),
		GeneralEvents: queue.New[model.GeneralEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	dbReady   bool

	// written by the DB writer goroutine, read by the monitor
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration when a DB is present,
// and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB != nil {
		if err := b.setupDB(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		b.dbReady = true
	}

	b.startDBWriters()
	return nil
}

// setupDB migrates the schema for the connected dialect.
func (b *Backend) setupDB() error {
	log := b.deps.LogManager

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	models := model.DatabaseModels
	if b.shouldSaveLocal() {
		models = model.DatabaseModelsSQLite
	}
	if err := b.deps.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// StartSession inserts the session row, assigns the DB-generated ID back to
// the core session, and records it for the DB writer.
func (b *Backend) StartSession(coreSession *core.Session) error {
	gormSession := convert.CoreToSession(*coreSession)

	if b.deps.DB != nil {
		if err := b.deps.DB.Create(&gormSession).Error; err != nil {
			return fmt.Errorf("failed to insert new session: %w", err)
		}
		coreSession.ID = gormSession.ID
	}

	b.sessionID.Store(uint64(gormSession.ID))
	if b.deps.SessionContext != nil {
		b.deps.SessionContext.SetSession(&gormSession)
	}
	return nil
}

// EndSession drains any queued rows synchronously, stamps the session end
// time, and clears the session context.
func (b *Backend) EndSession() error {
	b.drainOnce()

	id := uint(b.sessionID.Load())
	if b.deps.DB != nil && id != 0 {
		err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).
			Update("end_time", time.Now()).Error
		if err != nil {
			return fmt.Errorf("failed to stamp session end time: %w", err)
		}
	}

	if b.deps.SessionContext != nil {
		b.deps.SessionContext.Clear()
	}
	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// RecordPoseSample converts and queues a pose sample.
func (b *Backend) RecordPoseSample(p *core.PoseSample) error {
	gormObj := convert.CoreToPoseSample(*p)
	b.queues.PoseSamples.Push(gormObj)
	return nil
}

// RecordDragEvent converts and queues a drag event.
func (b *Backend) RecordDragEvent(e *core.DragEvent) error {
	gormObj := convert.CoreToDragEvent(*e)
	b.queues.DragEvents.Push(gormObj)
	return nil
}

// RecordGeneralEvent converts and queues a general event.
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	gormObj := convert.CoreToGeneralEvent(*e)
	b.queues.GeneralEvents.Push(gormObj)
	return nil
}

// GetLastPose returns the most recent committed pose from the cache.
func (b *Backend) GetLastPose() (core.PoseSample, bool) {
	if b.deps.PoseCache == nil {
		return core.PoseSample{}, false
	}
	return b.deps.PoseCache.Get()
}

// GetLastDBWriteDuration reports how long the most recent queue drain took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return b.lastDBWriteDuration
}

// QueueLengths reports the pending write queue depths for the monitor.
func (b *Backend) QueueLengths() (poses, drags, events int) {
	if b.queues == nil {
		return 0, 0, 0
	}
	return b.queues.PoseSamples.Len(), b.queues.DragEvents.Len(), b.queues.GeneralEvents.Len()
}

func (b *Backend) shouldSaveLocal() bool {
	return b.deps.ShouldSaveLocal != nil && b.deps.ShouldSaveLocal()
}

func (b *Backend) insertsPaused() bool {
	return b.deps.DBInsertsPaused != nil && b.deps.DBInsertsPaused()
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T), onSuccess func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
	if onSuccess != nil {
		onSuccess(items)
	}
}

// drainOnce stamps the current session ID onto queued rows and writes them.
func (b *Backend) drainOnce() {
	if !b.dbReady {
		return
	}
	if b.queues.PoseSamples.Empty() && b.queues.DragEvents.Empty() && b.queues.GeneralEvents.Empty() {
		return
	}

	log := b.deps.LogManager.WriteLog
	sessionID := uint(b.sessionID.Load())

	stampPoses := func(items []model.PoseSample) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampDrags := func(items []model.DragEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampEvents := func(items []model.GeneralEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}

	start := time.Now()
	writeQueue(b.deps.DB, b.queues.PoseSamples, "pose samples", log, stampPoses, nil)
	writeQueue(b.deps.DB, b.queues.DragEvents, "drag events", log, stampDrags, nil)
	writeQueue(b.deps.DB, b.queues.GeneralEvents, "general events", log, stampEvents, nil)
	b.lastDBWriteDuration = time.Since(start)
}

// startDBWriters starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady || b.insertsPaused() {
				time.Sleep(1 * time.Second)
				continue
			}

			b.drainOnce()
			time.Sleep(2 * time.Second)
		}
	}()
}
