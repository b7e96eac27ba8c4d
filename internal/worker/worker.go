// Package worker owns the recording pipeline between the sync controller
// and the active storage backend. Controller callbacks stay cheap: they
// push into queues, and a background goroutine drains those queues into
// the backend off the frame path.
package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geoviewer/camsync/internal/cache"
	"github.com/geoviewer/camsync/internal/logging"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/internal/model/convert"
	"github.com/geoviewer/camsync/internal/parser"
	"github.com/geoviewer/camsync/internal/queue"
	"github.com/geoviewer/camsync/internal/session"
	"github.com/geoviewer/camsync/internal/storage"
	"github.com/geoviewer/camsync/pkg/core"
)

// ErrNoSession is returned when a session operation arrives without a
// session in progress.
var ErrNoSession = fmt.Errorf("no session in progress")

// drainInterval is how often the background goroutine flushes the
// recording queues into the backend.
const drainInterval = 1 * time.Second

// defaultPoseMinInterval caps the pose recording rate when config does
// not say otherwise.
const defaultPoseMinInterval = 250 * time.Millisecond

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	PoseCache      *cache.PoseCache
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	ParserService  parser.Service
}

// Config tunes the recording pipeline.
type Config struct {
	// PoseMinInterval is the minimum spacing between two recorded pose
	// samples. Poses arriving faster still update the cache but are
	// counted as dropped instead of queued.
	PoseMinInterval time.Duration
}

type queues struct {
	PoseSamples   *queue.Queue[core.PoseSample]
	DragEvents    *queue.Queue[core.DragEvent]
	GeneralEvents *queue.Queue[core.GeneralEvent]
}

// Manager manages the recording queues and their drain goroutine.
// It satisfies the controller's Recorder hook.
type Manager struct {
	deps    Dependencies
	cfg     Config
	backend storage.Backend

	queues queues

	active        atomic.Bool
	lastPoseNanos atomic.Int64
	posesDropped  atomic.Uint64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, cfg Config, backend storage.Backend) *Manager {
	if cfg.PoseMinInterval <= 0 {
		cfg.PoseMinInterval = defaultPoseMinInterval
	}
	return &Manager{
		deps:    deps,
		cfg:     cfg,
		backend: backend,
		queues: queues{
			PoseSamples:   queue.New[core.PoseSample](),
			DragEvents:    queue.New[core.DragEvent](),
			GeneralEvents: queue.New[core.GeneralEvent](),
		},
		stopChan: make(chan struct{}),
	}
}

// OnPose receives every committed pose from the sync controller. The pose
// cache always takes the sample; the recording queue only takes it when a
// session is running and the minimum interval has passed.
func (m *Manager) OnPose(s core.PoseSample) {
	m.deps.PoseCache.Set(s)

	if !m.active.Load() {
		return
	}

	now := time.Now().UnixNano()
	last := m.lastPoseNanos.Load()
	if last != 0 && now-last < int64(m.cfg.PoseMinInterval) {
		m.posesDropped.Add(1)
		return
	}
	if !m.lastPoseNanos.CompareAndSwap(last, now) {
		// lost the slot to a concurrent pose
		m.posesDropped.Add(1)
		return
	}

	m.queues.PoseSamples.Push(s)
}

// OnDrag receives every drag outcome from the sync controller, applied or
// rejected. Drags are low volume and never throttled.
func (m *Manager) OnDrag(e core.DragEvent) {
	if !m.active.Load() {
		return
	}
	m.queues.DragEvents.Push(e)
}

// RecordEvent queues a general annotation event against the running session.
func (m *Manager) RecordEvent(ev core.GeneralEvent) {
	if !m.active.Load() {
		return
	}
	m.queues.GeneralEvents.Push(ev)
}

// StartSession parses session metadata, opens the session on the backend,
// and begins accepting recordings.
func (m *Manager) StartSession(data []string) (core.Session, error) {
	sess, err := m.deps.ParserService.ParseSession(data)
	if err != nil {
		return core.Session{}, fmt.Errorf("failed to parse session data: %w", err)
	}

	if err := m.backend.StartSession(&sess); err != nil {
		return core.Session{}, fmt.Errorf("failed to start session: %w", err)
	}

	gormSession := convert.CoreToSession(sess)
	gormSession.ID = sess.ID
	m.deps.SessionContext.SetSession(&gormSession)

	m.lastPoseNanos.Store(0)
	m.posesDropped.Store(0)
	m.active.Store(true)

	m.deps.LogManager.Logger().Info("Session started",
		"sessionName", sess.Name,
		"engineName", sess.EngineName)

	return sess, nil
}

// EndSession stops intake, flushes everything still buffered, and closes
// the session on the backend.
func (m *Manager) EndSession() error {
	if !m.active.Swap(false) {
		return ErrNoSession
	}

	m.drainOnce()

	if err := m.backend.EndSession(); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	name := m.deps.SessionContext.GetSession().Name
	m.deps.SessionContext.Clear()

	m.deps.LogManager.Logger().Info("Session ended", "sessionName", name)
	return nil
}

// Start launches the background drain goroutine.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(drainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				m.drainOnce()
				return
			case <-ticker.C:
				m.drainOnce()
			}
		}
	}()
}

// Stop terminates the drain goroutine after a final flush.
func (m *Manager) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

// drainOnce forwards everything currently queued to the backend. Failures
// are logged and the items dropped; backends carry their own retry.
func (m *Manager) drainOnce() {
	log := m.deps.LogManager.Logger()

	for _, p := range m.queues.PoseSamples.GetAndEmpty() {
		if err := m.backend.RecordPoseSample(&p); err != nil {
			log.Error("Failed to record pose sample", "error", err)
		}
	}
	for _, d := range m.queues.DragEvents.GetAndEmpty() {
		if err := m.backend.RecordDragEvent(&d); err != nil {
			log.Error("Failed to record drag event", "error", err)
		}
	}
	for _, g := range m.queues.GeneralEvents.GetAndEmpty() {
		if err := m.backend.RecordGeneralEvent(&g); err != nil {
			log.Error("Failed to record general event", "error", err)
		}
	}
}

// BufferLengths reports how many recordings are waiting in each queue.
func (m *Manager) BufferLengths() model.BufferLengths {
	return model.BufferLengths{
		PoseSamples:   uint16(m.queues.PoseSamples.Len()),
		DragEvents:    uint16(m.queues.DragEvents.Len()),
		GeneralEvents: uint16(m.queues.GeneralEvents.Len()),
	}
}

// PosesDropped reports how many poses the throttle has discarded since the
// session started.
func (m *Manager) PosesDropped() uint64 {
	return m.posesDropped.Load()
}

// QueueLengthsProvider is an optional interface for backends that batch
// writes through internal queues.
type QueueLengthsProvider interface {
	QueueLengths() (poses, drags, events int)
}

// WriteQueueLengths reports the backend's pending write queues. Backends
// without internal queues report zeros.
func (m *Manager) WriteQueueLengths() model.WriteQueueLengths {
	p, ok := m.backend.(QueueLengthsProvider)
	if !ok {
		return model.WriteQueueLengths{}
	}
	poses, drags, events := p.QueueLengths()
	return model.WriteQueueLengths{
		PoseSamples:   uint16(poses),
		DragEvents:    uint16(drags),
		GeneralEvents: uint16(events),
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
