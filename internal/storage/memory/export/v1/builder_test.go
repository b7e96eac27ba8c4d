package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoviewer/camsync/pkg/core"
)

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestBuildEmptySession(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Empty", EngineName: "globe-sim"},
	}

	export := Build(data)

	assert.Equal(t, "Empty", export.SessionName)
	assert.Equal(t, "globe-sim", export.EngineName)
	assert.Empty(t, export.Poses)
	assert.Empty(t, export.Drags)
	assert.Empty(t, export.Events)
	assert.Equal(t, uint(0), export.EndFrame)
	assert.Equal(t, float64(0), export.Duration)
}

func TestBuildWithSessionMetadata(t *testing.T) {
	start := time.Date(2026, 5, 20, 16, 45, 0, 0, time.UTC)
	data := &SessionData{
		Session: &core.Session{
			Name:            "Harbor Overflight",
			EngineName:      "globe-sim",
			ProjectionSRID:  3857,
			GimbalThreshold: 0.05,
			Tag:             "Survey",
			Addons:          []string{"terrain-pack", "weather"},
			StartTime:       start,
		},
	}

	export := Build(data)

	assert.Equal(t, "1.0.0", export.ServiceVersion)
	assert.Equal(t, "Harbor Overflight", export.SessionName)
	assert.Equal(t, "globe-sim", export.EngineName)
	assert.Equal(t, 3857, export.ProjectionSRID)
	assert.Equal(t, 0.05, export.GimbalThreshold)
	assert.Equal(t, "Survey", export.Tag)
	assert.Equal(t, []string{"terrain-pack", "weather"}, export.Addons)
	assert.Equal(t, "2026-05-20T16:45:00Z", export.StartTime)
}

func TestBuildNilSession(t *testing.T) {
	data := &SessionData{}

	export := Build(data)

	assert.Empty(t, export.SessionName)
	assert.Empty(t, export.StartTime)
	assert.NotNil(t, export.Addons)
	assert.Empty(t, export.Addons)
	assert.Equal(t, float64(0), export.Duration)
}

func TestBuildPoseRows(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Poses"},
		PoseSamples: []core.PoseSample{
			{
				Frame:   1,
				Camera:  core.GeoPoint{Lon: 13.377, Lat: 52.516},
				LookAt:  core.GeoPoint{Lon: 13.401, Lat: 52.519},
				Tilt:    45.0,
				Heading: 78.2,
				Range:   1800.0,
			},
			{
				Frame:      2,
				Camera:     core.GeoPoint{Lon: 13.378, Lat: 52.517},
				LookAt:     core.GeoPoint{Lon: 13.402, Lat: 52.52},
				Tilt:       0.0,
				Heading:    0.0,
				Range:      1795.5,
				Degenerate: true,
			},
		},
	}

	export := Build(data)

	require.Len(t, export.Poses, 2)

	first := export.Poses[0]
	require.Len(t, first, 7)
	assert.Equal(t, uint(1), first[0])
	assert.Equal(t, []float64{13.377, 52.516}, first[1])
	assert.Equal(t, []float64{13.401, 52.519}, first[2])
	assert.Equal(t, 45.0, first[3])
	assert.Equal(t, 78.2, first[4])
	assert.Equal(t, 1800.0, first[5])
	assert.Equal(t, 0, first[6])

	second := export.Poses[1]
	assert.Equal(t, uint(2), second[0])
	assert.Equal(t, 1, second[6])
}

func TestBuildDragRows(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Drags"},
		DragEvents: []core.DragEvent{
			{
				Frame:   10,
				Marker:  core.MarkerCamera,
				Drop:    core.GeoPoint{Lon: 2.2945, Lat: 48.8584},
				Heading: 310.0,
				Range:   500.0,
				Applied: true,
			},
			{
				Frame:   11,
				Marker:  core.MarkerLookAt,
				Drop:    core.GeoPoint{Lon: 2.295, Lat: 48.859},
				Heading: 311.5,
				Range:   480.0,
				Applied: false,
			},
		},
	}

	export := Build(data)

	require.Len(t, export.Drags, 2)

	first := export.Drags[0]
	require.Len(t, first, 6)
	assert.Equal(t, uint(10), first[0])
	assert.Equal(t, "camera", first[1])
	assert.Equal(t, []float64{2.2945, 48.8584}, first[2])
	assert.Equal(t, 310.0, first[3])
	assert.Equal(t, 500.0, first[4])
	assert.Equal(t, 1, first[5])

	second := export.Drags[1]
	assert.Equal(t, "lookat", second[1])
	assert.Equal(t, 0, second[5])
}

func TestBuildEventRows(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Events"},
		GeneralEvents: []core.GeneralEvent{
			{Frame: 5, Name: "engineSwitch", Message: "attached to globe-sim"},
		},
	}

	export := Build(data)

	require.Len(t, export.Events, 1)
	row := export.Events[0]
	require.Len(t, row, 3)
	assert.Equal(t, uint(5), row[0])
	assert.Equal(t, "engineSwitch", row[1])
	assert.Equal(t, "attached to globe-sim", row[2])
}

func TestBuildEventMessageJSONParsing(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected any
	}{
		{"json array", "[1,2]", []any{float64(1), float64(2)}},
		{"json object", `{"key":"value"}`, map[string]any{"key": "value"}},
		{"plain string", "hello", "hello"},
		{"invalid json array", "[1,2", "[1,2"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &SessionData{
				Session: &core.Session{Name: "Test"},
				GeneralEvents: []core.GeneralEvent{
					{Frame: 1, Name: "test", Message: tt.message},
				},
			}

			export := Build(data)

			require.Len(t, export.Events, 1)
			assert.Equal(t, tt.expected, export.Events[0][2])
		})
	}
}

func TestBuildEventExtraData(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Extra"},
		GeneralEvents: []core.GeneralEvent{
			{
				Frame:     3,
				Name:      "statusReport",
				Message:   "engaged",
				ExtraData: map[string]any{"engine": "globe-sim"},
			},
			{Frame: 4, Name: "plain", Message: "no extra"},
		},
	}

	export := Build(data)

	require.Len(t, export.Events, 2)

	withExtra := export.Events[0]
	require.Len(t, withExtra, 4)
	assert.Equal(t, map[string]any{"engine": "globe-sim"}, withExtra[3])

	withoutExtra := export.Events[1]
	assert.Len(t, withoutExtra, 3)
}

func TestBuildEndFrame(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "Frames"},
		PoseSamples: []core.PoseSample{
			{Frame: 50},
			{Frame: 120},
		},
		DragEvents: []core.DragEvent{
			{Frame: 80},
		},
		GeneralEvents: []core.GeneralEvent{
			{Frame: 300, Name: "late"},
		},
	}

	export := Build(data)

	assert.Equal(t, uint(300), export.EndFrame)
}

func TestBuildDurationFromEndTime(t *testing.T) {
	start := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	data := &SessionData{
		Session: &core.Session{Name: "Timed", StartTime: start},
		EndTime: start.Add(150 * time.Second),
		PoseSamples: []core.PoseSample{
			// Record time is earlier than the end time; end time wins
			{Frame: 1, Time: start.Add(60 * time.Second)},
		},
	}

	export := Build(data)

	assert.Equal(t, 150.0, export.Duration)
}

func TestBuildDurationFromLastRecord(t *testing.T) {
	start := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	data := &SessionData{
		Session: &core.Session{Name: "Running", StartTime: start},
		PoseSamples: []core.PoseSample{
			{Frame: 1, Time: start.Add(30 * time.Second)},
			{Frame: 2, Time: start.Add(75 * time.Second)},
		},
		DragEvents: []core.DragEvent{
			{Frame: 3, Time: start.Add(45 * time.Second)},
		},
	}

	export := Build(data)

	assert.Equal(t, 75.0, export.Duration)
}

func TestBuildDurationZeroWithoutStartTime(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{Name: "No Start"},
		PoseSamples: []core.PoseSample{
			{Frame: 1, Time: time.Now()},
		},
	}

	export := Build(data)

	assert.Equal(t, float64(0), export.Duration)
}
