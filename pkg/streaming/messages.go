package streaming

import (
	"encoding/json"

	"github.com/geoviewer/camsync/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypePoseSample   = "pose_sample"
	TypeDragEvent    = "drag_event"
	TypeGeneralEvent = "general_event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the session metadata announced to consumers.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload closes a session on the consumer side.
type EndSessionPayload struct {
	SessionName string `json:"sessionName"`
	EndTime     int64  `json:"endTime"` // unix milliseconds
}
