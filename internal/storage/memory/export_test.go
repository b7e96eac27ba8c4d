// internal/storage/memory/export_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geoviewer/camsync/internal/config"
	v1 "github.com/geoviewer/camsync/internal/storage/memory/export/v1"
	"github.com/geoviewer/camsync/pkg/core"
)

func TestExportJSON(t *testing.T) {
	tempDir := t.TempDir()

	b := New(config.MemoryConfig{
		OutputDir:      tempDir,
		CompressOutput: false,
	})

	session := &core.Session{
		Name:       "Export Test",
		EngineName: "globe-sim",
		StartTime:  time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
	}

	_ = b.StartSession(session)
	_ = b.RecordPoseSample(&core.PoseSample{Frame: 1})

	// EndSession triggers export
	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	// Check file was created
	pattern := filepath.Join(tempDir, "Export_Test_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 JSON file, found %d", len(matches))
	}

	// Read and validate JSON
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}

	var export v1.Export
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}

	if export.SessionName != "Export Test" {
		t.Errorf("expected SessionName='Export Test', got '%s'", export.SessionName)
	}
	if export.EngineName != "globe-sim" {
		t.Errorf("expected EngineName='globe-sim', got '%s'", export.EngineName)
	}
	if export.StartTime != "2026-03-15T14:30:00Z" {
		t.Errorf("expected StartTime='2026-03-15T14:30:00Z', got '%s'", export.StartTime)
	}
}

func TestExportGzipJSON(t *testing.T) {
	tempDir := t.TempDir()

	b := New(config.MemoryConfig{
		OutputDir:      tempDir,
		CompressOutput: true,
	})

	session := &core.Session{
		Name:       "Gzip Test",
		EngineName: "globe-sim",
		StartTime:  time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC),
	}

	_ = b.StartSession(session)
	_ = b.RecordPoseSample(&core.PoseSample{Frame: 1})

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	// Check .json.gz file was created
	pattern := filepath.Join(tempDir, "Gzip_Test_*.json.gz")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 .json.gz file, found %d", len(matches))
	}

	// Read and decompress
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("failed to open gzip file: %v", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("failed to create gzip reader: %v", err)
	}
	defer gzReader.Close()

	var export v1.Export
	if err := json.NewDecoder(gzReader).Decode(&export); err != nil {
		t.Fatalf("failed to decode gzipped JSON: %v", err)
	}

	if export.SessionName != "Gzip Test" {
		t.Errorf("expected SessionName='Gzip Test', got '%s'", export.SessionName)
	}
}

func TestFilenameGeneration(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		sessionName    string
		compress       bool
		expectedSuffix string
	}{
		{"Simple Name", false, ".json"},
		{"Simple Name", true, ".json.gz"},
		{"Name:With:Colons", false, ".json"},
		{"Name With Spaces", false, ".json"},
	}

	for _, tt := range tests {
		b := New(config.MemoryConfig{
			OutputDir:      tempDir,
			CompressOutput: tt.compress,
		})

		session := &core.Session{
			Name:      tt.sessionName,
			StartTime: time.Now(),
		}

		_ = b.StartSession(session)
		_ = b.EndSession()

		// Find the file
		pattern := filepath.Join(tempDir, "*"+tt.expectedSuffix)
		matches, _ := filepath.Glob(pattern)
		if len(matches) == 0 {
			t.Errorf("no file with suffix %s found for session '%s'", tt.expectedSuffix, tt.sessionName)
			continue
		}

		// Check filename doesn't contain spaces or colons
		filename := filepath.Base(matches[len(matches)-1])
		if strings.Contains(filename, " ") {
			t.Errorf("filename contains spaces: %s", filename)
		}
		if strings.Contains(filename, ":") {
			t.Errorf("filename contains colons: %s", filename)
		}
	}
}

func TestExportCreatesOutputDir(t *testing.T) {
	tempDir := t.TempDir()
	nonExistentDir := filepath.Join(tempDir, "nested", "output", "dir")

	b := New(config.MemoryConfig{
		OutputDir:      nonExistentDir,
		CompressOutput: false,
	})

	session := &core.Session{
		Name:      "Nested Dir Test",
		StartTime: time.Now(),
	}

	_ = b.StartSession(session)
	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	// Verify directory was created
	if _, err := os.Stat(nonExistentDir); os.IsNotExist(err) {
		t.Error("output directory was not created")
	}

	// Verify file exists in nested directory
	pattern := filepath.Join(nonExistentDir, "*.json")
	matches, _ := filepath.Glob(pattern)
	if len(matches) != 1 {
		t.Errorf("expected 1 file in nested dir, found %d", len(matches))
	}
}

func TestExportedPoseRowFormat(t *testing.T) {
	tempDir := t.TempDir()

	b := New(config.MemoryConfig{
		OutputDir:      tempDir,
		CompressOutput: false,
	})

	session := &core.Session{
		Name:      "Pose Format",
		StartTime: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}

	_ = b.StartSession(session)
	_ = b.RecordPoseSample(&core.PoseSample{
		Frame:      42,
		Camera:     core.GeoPoint{Lon: 13.377, Lat: 52.516},
		LookAt:     core.GeoPoint{Lon: 13.401, Lat: 52.519},
		Tilt:       45.5,
		Heading:    78.25,
		Range:      1800.0,
		Degenerate: true,
	})

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	export := decodeExport(t, b.GetExportedFilePath())

	if len(export.Poses) != 1 {
		t.Fatalf("expected 1 pose row, got %d", len(export.Poses))
	}

	// Row format: [frameNum, [camLon, camLat], [lookLon, lookLat], tilt, heading, range, degenerate]
	row := export.Poses[0]
	if len(row) != 7 {
		t.Fatalf("expected 7 elements in pose row, got %d", len(row))
	}
	if row[0].(float64) != 42 {
		t.Errorf("expected frame 42, got %v", row[0])
	}

	cam := row[1].([]any)
	if cam[0].(float64) != 13.377 || cam[1].(float64) != 52.516 {
		t.Errorf("unexpected camera position: %v", cam)
	}

	look := row[2].([]any)
	if look[0].(float64) != 13.401 || look[1].(float64) != 52.519 {
		t.Errorf("unexpected look-at position: %v", look)
	}

	if row[3].(float64) != 45.5 {
		t.Errorf("expected tilt 45.5, got %v", row[3])
	}
	if row[4].(float64) != 78.25 {
		t.Errorf("expected heading 78.25, got %v", row[4])
	}
	if row[5].(float64) != 1800.0 {
		t.Errorf("expected range 1800, got %v", row[5])
	}
	if row[6].(float64) != 1 {
		t.Errorf("expected degenerate flag 1, got %v", row[6])
	}
}

func TestExportedDragRowFormat(t *testing.T) {
	tempDir := t.TempDir()

	b := New(config.MemoryConfig{
		OutputDir:      tempDir,
		CompressOutput: false,
	})

	session := &core.Session{
		Name:      "Drag Format",
		StartTime: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}

	_ = b.StartSession(session)
	_ = b.RecordDragEvent(&core.DragEvent{
		Frame:   7,
		Marker:  core.MarkerCamera,
		Drop:    core.GeoPoint{Lon: 2.2945, Lat: 48.8584},
		Heading: 310.0,
		Range:   500.0,
		Applied: true,
	})

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	export := decodeExport(t, b.GetExportedFilePath())

	if len(export.Drags) != 1 {
		t.Fatalf("expected 1 drag row, got %d", len(export.Drags))
	}

	// Row format: [frameNum, marker, [lon, lat], heading, range, applied]
	row := export.Drags[0]
	if len(row) != 6 {
		t.Fatalf("expected 6 elements in drag row, got %d", len(row))
	}
	if row[0].(float64) != 7 {
		t.Errorf("expected frame 7, got %v", row[0])
	}
	if row[1].(string) != "camera" {
		t.Errorf("expected marker 'camera', got %v", row[1])
	}

	drop := row[2].([]any)
	if drop[0].(float64) != 2.2945 || drop[1].(float64) != 48.8584 {
		t.Errorf("unexpected drop position: %v", drop)
	}

	if row[5].(float64) != 1 {
		t.Errorf("expected applied flag 1, got %v", row[5])
	}
}

func TestEmptyExport(t *testing.T) {
	tempDir := t.TempDir()

	b := New(config.MemoryConfig{
		OutputDir:      tempDir,
		CompressOutput: false,
	})

	session := &core.Session{
		Name:      "Empty",
		StartTime: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}

	_ = b.StartSession(session)
	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	export := decodeExport(t, b.GetExportedFilePath())

	if len(export.Poses) != 0 {
		t.Errorf("expected no pose rows, got %d", len(export.Poses))
	}
	if len(export.Drags) != 0 {
		t.Errorf("expected no drag rows, got %d", len(export.Drags))
	}
	if len(export.Events) != 0 {
		t.Errorf("expected no event rows, got %d", len(export.Events))
	}
	if export.EndFrame != 0 {
		t.Errorf("expected EndFrame=0, got %d", export.EndFrame)
	}
}

// decodeExport reads an uncompressed export file and unmarshals it.
func decodeExport(t *testing.T, path string) v1.Export {
	t.Helper()

	if path == "" {
		t.Fatal("no export path set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}

	var export v1.Export
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("failed to unmarshal export: %v", err)
	}
	return export
}
