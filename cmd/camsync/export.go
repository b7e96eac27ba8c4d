package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geoviewer/camsync/internal/database"
	"github.com/geoviewer/camsync/internal/kmlgen"
	"github.com/geoviewer/camsync/internal/model"
	"github.com/geoviewer/camsync/internal/model/convert"
	"github.com/geoviewer/camsync/internal/monitor"
	v1 "github.com/geoviewer/camsync/internal/storage/memory/export/v1"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// requireDB hands out the postgres connection for the subcommands that read
// or rewrite recorded sessions, reusing the storage backend's handle when
// the postgres backend is active.
func requireDB() (*gorm.DB, error) {
	if perfDB != nil {
		return perfDB, nil
	}
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	perfDB = db
	isDatabaseValid = true
	return db, nil
}

// setupDatabase provisions the schema ahead of time: connects (falling back
// to an in-memory sqlite when postgres is unreachable), migrates, and on
// postgres turns the time-series tables into TimescaleDB hypertables when
// the extension is present.
func setupDatabase() error {
	mgr := database.NewManager(ZLogger)
	if err := mgr.Connect(); err != nil {
		return err
	}
	if err := mgr.Setup(); err != nil {
		return err
	}
	if !mgr.ShouldSaveLocal {
		hyper := monitor.NewService(monitor.Dependencies{
			DB:         mgr.DB,
			LogManager: SlogManager,
		})
		if err := hyper.ValidateHypertables(map[string][]string{
			"pose_samples":      {"session_id"},
			"sync_performances": {"session_id"},
		}); err != nil {
			Logger.Warn("TimescaleDB hypertables not configured", "error", err)
		}
	}
	return nil
}

// loadSessionData reads one recorded session with all its rows, ordered by
// frame, and converts them back to core types.
func loadSessionData(db *gorm.DB, sessionID int) (*v1.SessionData, error) {
	var gormSession model.Session
	err := db.Model(&model.Session{}).Where("id = ?", sessionID).First(&gormSession).Error
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}

	gormPoses := []model.PoseSample{}
	err = db.Model(&model.PoseSample{}).
		Where("session_id = ?", sessionID).
		Order("capture_frame ASC").
		Find(&gormPoses).Error
	if err != nil {
		return nil, fmt.Errorf("error getting pose samples: %w", err)
	}

	gormDrags := []model.DragEvent{}
	err = db.Model(&model.DragEvent{}).
		Where("session_id = ?", sessionID).
		Order("capture_frame ASC").
		Find(&gormDrags).Error
	if err != nil {
		return nil, fmt.Errorf("error getting drag events: %w", err)
	}

	gormEvents := []model.GeneralEvent{}
	err = db.Model(&model.GeneralEvent{}).
		Where("session_id = ?", sessionID).
		Order("capture_frame ASC").
		Find(&gormEvents).Error
	if err != nil {
		return nil, fmt.Errorf("error getting general events: %w", err)
	}

	sess := convert.SessionToCore(gormSession)
	data := &v1.SessionData{
		Session: &sess,
		EndTime: gormSession.EndTime,
	}
	for _, p := range gormPoses {
		data.PoseSamples = append(data.PoseSamples, convert.PoseSampleToCore(p))
	}
	for _, d := range gormDrags {
		data.DragEvents = append(data.DragEvents, convert.DragEventToCore(d))
	}
	for _, g := range gormEvents {
		data.GeneralEvents = append(data.GeneralEvents, convert.GeneralEventToCore(g))
	}
	return data, nil
}

// getRecordingJSON exports recorded sessions from the database in the same
// compact layout the memory backend writes, gzipped for the replay
// frontend.
func getRecordingJSON(sessionIDs []string) (err error) {
	fmt.Println("Getting JSON for session IDs: ", sessionIDs)

	db, err := requireDB()
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		data, err := loadSessionData(db, sessionIDInt)
		if err != nil {
			return err
		}
		export := v1.Build(data)
		fmt.Println("Got session data in ", time.Since(txStart))

		exportJSON, err := json.Marshal(export)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", data.Session.Name, data.Session.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}

		gzWriter := gzip.NewWriter(f)
		_, err = gzWriter.Write(exportJSON)
		if err != nil {
			f.Close()
			return fmt.Errorf("error writing to gzip: %w", err)
		}
		if err = gzWriter.Close(); err != nil {
			f.Close()
			return fmt.Errorf("error closing gzip: %w", err)
		}
		if err = f.Close(); err != nil {
			return fmt.Errorf("error closing file: %w", err)
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}

// exportSessionKML writes KML flight tracks for recorded sessions straight
// from the database.
func exportSessionKML(sessionIDs []string) (err error) {
	fmt.Println("Exporting KML for session IDs: ", sessionIDs)

	db, err := requireDB()
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		data, err := loadSessionData(db, sessionIDInt)
		if err != nil {
			return err
		}

		path, err := kmlExporter.Export(kmlgen.Document{
			Session: *data.Session,
			Poses:   data.PoseSamples,
			Drags:   data.DragEvents,
		})
		if err != nil {
			return fmt.Errorf("error writing KML: %w", err)
		}

		fmt.Println("Wrote KML track to ", path, " in ", time.Since(txStart))
	}

	return nil
}

// reduceSession thins the pose track of recorded sessions down to every
// fifth frame, then vacuums the database to recover the space.
func reduceSession(sessionIDs []string) (err error) {
	db, err := requireDB()
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var sess model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&sess).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		poseSamplesToDelete := []model.PoseSample{}
		err = db.Model(&model.PoseSample{}).Where(
			"session_id = ? AND capture_frame % 5 != 0",
			sess.ID,
		).Order("capture_frame ASC").Find(&poseSamplesToDelete).Error
		if err != nil {
			return fmt.Errorf("error getting pose samples to delete: %w", err)
		}

		if len(poseSamplesToDelete) == 0 {
			fmt.Println("No pose samples to delete for sessionId ", sessionID, ", checked in ", time.Since(txStart))
			continue
		}

		err = db.Delete(&poseSamplesToDelete).Error
		if err != nil {
			return fmt.Errorf("error deleting pose samples: %w", err)
		}

		fmt.Println("Deleted ", len(poseSamplesToDelete), " pose samples from sessionId ", sessionID, " in ", time.Since(txStart))
	}

	fmt.Println("")
	fmt.Println("----------------------------------------")
	fmt.Println("")
	fmt.Println("Finished reducing pose samples, running VACUUM to recover space...")
	txStart := time.Now()
	tables := []string{}
	err = db.Raw(
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`,
	).Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("error getting tables to vacuum: %w", err)
	}

	for _, table := range tables {
		err = db.Exec(fmt.Sprintf(`VACUUM (FULL) "%s"`, table)).Error
		if err != nil {
			return fmt.Errorf("error running VACUUM on table %s: %w", table, err)
		}
	}

	fmt.Println("Finished VACUUM in ", time.Since(txStart))

	return nil
}

// migrateBackups moves locally dumped sqlite recordings into postgres. Each
// successfully migrated file is renamed so a rerun does not duplicate data.
func migrateBackups() (err error) {
	sqlitePaths, err := database.GetBackupDBPaths(WorkDir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %v", err)
	}
	postgresDB, err := requireDB()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	successfulMigrations := make([]string, 0)

	for _, sqlitePath := range sqlitePaths {
		sqliteDB, err := database.GetSqliteDBStandalone(sqlitePath)
		if err != nil {
			return fmt.Errorf("error getting sqlite database: %v", err)
		}

		// transaction for postgres so we can rollback on errors
		tx := postgresDB.Begin()

		err = migrateTable(sqliteDB, tx, model.Session{}, "sessions")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating sessions: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.PoseSample{}, "pose_samples")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating pose_samples: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.DragEvent{}, "drag_events")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating drag_events: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.GeneralEvent{}, "general_events")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating general_events: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.SyncPerformance{}, "sync_performances")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating sync_performances: %v", err)
		}

		tx.Commit()

		sqlConnection, err := sqliteDB.DB()
		if err != nil {
			Logger.Error("Error getting sqlite connection", "error", err)
			continue
		}
		err = sqlConnection.Close()
		if err != nil {
			Logger.Error("Error closing sqlite connection", "error", err)
		}
		err = os.Rename(sqlitePath, sqlitePath+".migrated")
		if err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		successfulMigrations = append(successfulMigrations, sqlitePath)
	}

	Logger.Info("Successfully migrated backups, it's recommended to delete these to avoid future data duplication",
		"count", len(successfulMigrations),
		"paths", successfulMigrations)

	return nil
}

// migrateTable copies one table's rows between databases, dropping ids so
// postgres assigns fresh ones and skipping rows that conflict.
func migrateTable[M any](
	sqliteDB *gorm.DB,
	postgresDB *gorm.DB,
	mdl M,
	tableName string,
) error {
	var data = &map[string]any{}
	sqliteDB.Model(&mdl).
		Assign("id", gorm.Expr("NULL")).
		Find(data)
	Logger.Info("Found records", "count", len(*data), "table", tableName)

	if len(*data) == 0 {
		return nil
	}

	Logger.Info("Inserting records", "count", len(*data), "table", tableName)

	postgresDB.Model(&mdl).Clauses(
		clause.OnConflict{
			DoNothing: true,
		}).Create(data)
	if postgresDB.Error != nil {
		Logger.Error("Error migrating table", "error", postgresDB.Error, "table", tableName)
		return postgresDB.Error
	}

	return nil
}
