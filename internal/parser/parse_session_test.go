package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSession(t *testing.T) {
	p := newTestParser()

	session, err := p.ParseSession([]string{
		`"Harbor Overflight"`,
		`"globe-sim"`,
		"3857.0",
		"0.05",
		`"demo"`,
		`["terrain-pack","city-models"]`,
	})

	require.NoError(t, err)
	assert.Equal(t, "Harbor Overflight", session.Name)
	assert.Equal(t, "globe-sim", session.EngineName)
	assert.Equal(t, 3857, session.ProjectionSRID)
	assert.Equal(t, 0.05, session.GimbalThreshold)
	assert.Equal(t, "demo", session.Tag)
	assert.Equal(t, []string{"terrain-pack", "city-models"}, session.Addons)
	assert.WithinDuration(t, time.Now(), session.StartTime, 5*time.Second)
}

func TestParseSession_Defaults(t *testing.T) {
	p := newTestParser()

	session, err := p.ParseSession([]string{"Quick Look"})

	require.NoError(t, err)
	assert.Equal(t, "Quick Look", session.Name)
	assert.Empty(t, session.EngineName)
	assert.Equal(t, 3857, session.ProjectionSRID)
	assert.Equal(t, 1.0, session.GimbalThreshold)
	assert.Equal(t, "live", session.Tag, "tag should fall back to the parser default")
	assert.Empty(t, session.Addons)
}

func TestParseSession_EmptyTrailingFields(t *testing.T) {
	p := newTestParser()

	session, err := p.ParseSession([]string{"Session", "engine", "", "", "", ""})

	require.NoError(t, err)
	assert.Equal(t, 3857, session.ProjectionSRID)
	assert.Equal(t, 1.0, session.GimbalThreshold)
	assert.Equal(t, "live", session.Tag)
}

func TestParseSession_MissingName(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseSession([]string{})
	assert.Error(t, err)

	_, err = p.ParseSession([]string{`""`})
	assert.Error(t, err)
}

func TestParseSession_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		data []string
	}{
		{"bad srid", []string{"S", "e", "not-a-number"}},
		{"fractional srid", []string{"S", "e", "3857.5"}},
		{"bad threshold", []string{"S", "e", "3857", "wide"}},
		{"bad addons json", []string{"S", "e", "3857", "0.1", "tag", `["unterminated`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseSession(tt.data)
			assert.Error(t, err)
		})
	}
}
