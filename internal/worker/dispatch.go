package worker

import (
	"fmt"

	"github.com/geoviewer/camsync/internal/dispatcher"
)

// RegisterHandlers registers the data-path command handlers with the
// dispatcher. Lifecycle and controller commands stay with the host
// entrypoint.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Session lifecycle - sync (recording gates on the session existing)
	d.Register(":SESSION:START:", m.handleSessionStart, dispatcher.Logged())
	d.Register(":SESSION:END:", m.handleSessionEnd, dispatcher.Logged())

	// Annotations - buffered
	d.Register(":EVENT:", m.handleGeneralEvent, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	sess, err := m.StartSession(e.Args)
	if err != nil {
		return nil, err
	}
	return sess.Name, nil
}

func (m *Manager) handleSessionEnd(e dispatcher.Event) (any, error) {
	if err := m.EndSession(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Manager) handleGeneralEvent(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseGeneralEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log general event: %w", err)
	}

	if !m.active.Load() {
		return nil, ErrNoSession
	}
	m.RecordEvent(obj)

	return nil, nil
}
