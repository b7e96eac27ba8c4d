package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Session", &Session{}, "sessions"},
		{"PoseSample", &PoseSample{}, "pose_samples"},
		{"DragEvent", &DragEvent{}, "drag_events"},
		{"GeneralEvent", &GeneralEvent{}, "general_events"},
		{"SyncPerformance", &SyncPerformance{}, "sync_performances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_CoverAllTables(t *testing.T) {
	assert.Len(t, DatabaseModels, 5)
	assert.Len(t, DatabaseModelsSQLite, 5)
}
