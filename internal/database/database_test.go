package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/pkg/core"
)

func TestGetSqliteDBStandalone_FileMigrateAndInsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camsync.db")
	db, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.DatabaseModelsSQLite...))

	sess := model.Session{
		Name:       "migration check",
		EngineName: "globe-sim",
		StartTime:  time.Now(),
	}
	require.NoError(t, db.Create(&sess).Error)
	require.NotZero(t, sess.ID)

	pose := model.PoseSample{
		Time:           time.Now(),
		SessionID:      sess.ID,
		CaptureFrame:   12,
		CameraPosition: geo.Point3857(core.GeoPoint{Lon: 7.0, Lat: 47.0}),
		LookAtPosition: geo.Point3857(core.GeoPoint{Lon: 7.001, Lat: 47.0005}),
		Tilt:           45,
		Heading:        90,
		ViewRange:      1500,
	}
	require.NoError(t, db.Create(&pose).Error)

	var got model.PoseSample
	require.NoError(t, db.First(&got, pose.ID).Error)
	require.Equal(t, sess.ID, got.SessionID)
	require.EqualValues(t, 12, got.CaptureFrame)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.DatabaseModelsSQLite...))
	require.NoError(t, db.Create(&model.Session{Name: "dump check", StartTime: time.Now()}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)
	require.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "note.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestManager_ConnectFallsBackToSqlite(t *testing.T) {
	// Point the Postgres DSN at a closed port so the fallback path runs.
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "camsync")
	defer viper.Reset()

	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect())
	require.True(t, m.IsValid)
	require.True(t, m.ShouldSaveLocal)

	require.NoError(t, m.Setup())
}
