package session

import (
	"sync"

	"github.com/geoviewer/camsync/internal/model"
)

// Context holds the current recording session state
type Context struct {
	mu      sync.RWMutex
	Session *model.Session
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Session: &model.Session{Name: "No session started"},
	}
}

// GetSession returns the current session
func (sc *Context) GetSession() *model.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// SetSession sets the current session
func (sc *Context) SetSession(session *model.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = session
}

// Clear resets the context to the no-session placeholder
func (sc *Context) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = &model.Session{Name: "No session started"}
}

// InProgress reports whether a session row has been started in the database
func (sc *Context) InProgress() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session != nil && sc.Session.ID != 0
}
