package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/geoviewer/camsync/internal/config"
	"github.com/geoviewer/camsync/internal/database"
	"github.com/geoviewer/camsync/internal/storage"
	"github.com/geoviewer/camsync/internal/storage/memory"
	pgstorage "github.com/geoviewer/camsync/internal/storage/postgres"
	sqlitestorage "github.com/geoviewer/camsync/internal/storage/sqlite"
	wsstorage "github.com/geoviewer/camsync/internal/storage/websocket"
	"github.com/geoviewer/camsync/internal/worker"

	"github.com/spf13/viper"
)

// initStorage selects and initializes the recording backend, then builds the
// worker pipeline on top of it and binds the data-path commands. Safe to
// call again once storage is up.
func initStorage() error {
	if storageBackend != nil {
		Logger.Debug("Storage already initialized")
		return nil
	}

	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	storageBackend = backend

	workerManager = worker.NewManager(worker.Dependencies{
		PoseCache:      poseCache,
		LogManager:     SlogManager,
		SessionContext: sessionContext,
		ParserService:  parserService,
	}, worker.Config{
		PoseMinInterval: config.GetWorkerConfig().PoseMinInterval,
	}, storageBackend)

	Logger.Debug("Registering worker handlers with dispatcher")
	workerManager.RegisterHandlers(eventDispatcher)
	workerManager.Start()
	Logger.Info("Worker handlers registered with dispatcher")

	storageReadyOnce.Do(func() { close(storageReady) })
	return nil
}

// createStorageBackend builds the backend named by storage.type. The
// postgres connection is established here so the monitor and the database
// subcommands can share it.
func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
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
		Logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			DB:         db,
			PoseCache:  poseCache,
			LogManager: SlogManager,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(WorkDir, fmt.Sprintf("%s_%s.db", ServiceName, SessionStartTime.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, poseCache, SlogManager, sessionContext)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/ws"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		Logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}), nil

	default:
		Logger.Info("Memory storage backend selected")
		return memory.New(storageCfg.Memory), nil
	}
}

// httpToWS converts an HTTP(S) URL to its WebSocket counterpart.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
