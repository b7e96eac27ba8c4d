// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/geoviewer/camsync/internal/cache"
	"github.com/geoviewer/camsync/internal/database"
	"github.com/geoviewer/camsync/internal/logging"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/internal/model/convert"
	"github.com/geoviewer/camsync/internal/queue"
	"github.com/geoviewer/camsync/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the PostgreSQL storage backend.
type Dependencies struct {
	DB         *gorm.DB
	PoseCache  *cache.PoseCache
	LogManager *logging.SlogManager
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

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	dbReady   bool
}

// New creates a new PostgreSQL storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// setupDB ensures PostGIS is available and migrates the schema.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS Extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
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

// StartSession creates the session row in the DB and assigns the generated ID
// back to the core session for the DB writer goroutine.
func (b *Backend) StartSession(coreSession *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	gormSession := convert.CoreToSession(*coreSession)
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	coreSession.ID = gormSession.ID
	b.sessionID.Store(uint64(gormSession.ID))
	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession drains the remaining queued rows and stamps the session end time.
func (b *Backend) EndSession() error {
	b.writeAll()

	id := uint(b.sessionID.Load())
	if b.deps.DB == nil || id == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).
		Update("end_time", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to stamp session end time: %w", err)
	}
	return nil
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

// writeAll stamps the current session ID onto queued rows and writes each queue.
func (b *Backend) writeAll() {
	if !b.dbReady {
		return
	}

	log := b.deps.LogManager.WriteLog

	// Read sessionID once per write cycle
	sessionID := uint(b.sessionID.Load())

	stampPoseSamples := func(items []model.PoseSample) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampDragEvents := func(items []model.DragEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampGeneralEvents := func(items []model.GeneralEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}

	writeQueue(b.deps.DB, b.queues.PoseSamples, "pose samples", log, stampPoseSamples, nil)
	writeQueue(b.deps.DB, b.queues.DragEvents, "drag events", log, stampDragEvents, nil)
	writeQueue(b.deps.DB, b.queues.GeneralEvents, "general events", log, stampGeneralEvents, nil)
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			b.writeAll()

			time.Sleep(2 * time.Second)
		}
	}()
}
