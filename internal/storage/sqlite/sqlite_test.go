package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/geoviewer/camsync/internal/cache"
	"github.com/geoviewer/camsync/internal/logging"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/internal/session"
	"github.com/geoviewer/camsync/internal/storage"
	"github.com/geoviewer/camsync/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	b, err := New(cfg, cache.NewPoseCache(), logging.NewSlogManager(), session.NewContext())
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	b := newTestBackend(t, Config{})
	require.NotNil(t, b)
	require.NotNil(t, b.db)
}

func TestInitClose(t *testing.T) {
	b := newTestBackend(t, Config{})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestRecordAndDrainOnEndSession(t *testing.T) {
	b := newTestBackend(t, Config{})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	coreSession := &core.Session{Name: "SQLite Session", StartTime: time.Now()}
	require.NoError(t, b.StartSession(coreSession))
	require.NotZero(t, coreSession.ID)

	require.NoError(t, b.RecordPoseSample(&core.PoseSample{Frame: 1, Tilt: 45, Range: 1000}))
	require.NoError(t, b.RecordGeneralEvent(&core.GeneralEvent{Name: "activated"}))

	require.NoError(t, b.EndSession())

	// the in-memory DB uses a shared cache, so scope counts to this session
	var poseCount, eventCount int64
	b.db.Model(&model.PoseSample{}).Where("session_id = ?", coreSession.ID).Count(&poseCount)
	b.db.Model(&model.GeneralEvent{}).Where("session_id = ?", coreSession.ID).Count(&eventCount)
	assert.Equal(t, int64(1), poseCount)
	assert.Equal(t, int64(1), eventCount)
}

func TestDumpLoop_WritesSnapshotFile(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "camsync_test.db")
	b := newTestBackend(t, Config{
		DumpInterval: 50 * time.Millisecond,
		DumpPath:     dumpPath,
	})
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.StartSession(&core.Session{Name: "Dump Session", StartTime: time.Now()}))

	require.Eventually(t, func() bool {
		info, err := os.Stat(dumpPath)
		return err == nil && info.Size() > 0
	}, 3*time.Second, 25*time.Millisecond, "dump file should appear on disk")
}

func TestDumpLoop_DisabledWithoutPath(t *testing.T) {
	b := newTestBackend(t, Config{DumpInterval: 50 * time.Millisecond})
	require.NoError(t, b.Init())
	// No dump path → no dump goroutine; Close must still succeed cleanly
	require.NoError(t, b.Close())
}
