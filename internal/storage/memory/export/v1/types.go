// Package v1 contains the v1 export format for recorded camera sessions.
// This format is the compact row layout the replay web frontend consumes.
package v1

// Export is the root JSON structure for v1 format
type Export struct {
	ServiceVersion  string   `json:"serviceVersion"`
	SessionName     string   `json:"sessionName"`
	EngineName      string   `json:"engineName"`
	ProjectionSRID  int      `json:"projectionSrid"`
	GimbalThreshold float64  `json:"gimbalThreshold"`
	Tag             string   `json:"tag"`
	Addons          []string `json:"addons"`
	StartTime       string   `json:"startTime"` // RFC3339
	Duration        float64  `json:"duration"`  // seconds
	EndFrame        uint     `json:"endFrame"`
	Poses           [][]any  `json:"poses"`
	Drags           [][]any  `json:"drags"`
	Events          [][]any  `json:"events"`
}
