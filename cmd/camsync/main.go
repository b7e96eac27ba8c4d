// Command camsync hosts the camera view synchronization service. It keeps
// the 2D map picture of a 3D camera (marker, look-at marker, connecting
// line) consistent with the engine rendering that camera, pushes marker
// drags back into the engine, and records the resulting pose track through
// a pluggable storage backend. Host applications drive it over the command
// surface of the event dispatcher.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/geoviewer/camsync/internal/api"
	"github.com/geoviewer/camsync/internal/cache"
	"github.com/geoviewer/camsync/internal/config"
	"github.com/geoviewer/camsync/internal/control"
	"github.com/geoviewer/camsync/internal/dispatcher"
	"github.com/geoviewer/camsync/internal/engine/sim"
	"github.com/geoviewer/camsync/internal/geo"
	"github.com/geoviewer/camsync/internal/influx"
	"github.com/geoviewer/camsync/internal/kmlgen"
	"github.com/geoviewer/camsync/internal/logging"
	"github.com/geoviewer/camsync/internal/mapview"
	"github.com/geoviewer/camsync/internal/monitor"
	intOtel "github.com/geoviewer/camsync/internal/otel"
	"github.com/geoviewer/camsync/internal/parser"
	"github.com/geoviewer/camsync/internal/session"
	"github.com/geoviewer/camsync/internal/storage"
	"github.com/geoviewer/camsync/internal/util"
	"github.com/geoviewer/camsync/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "1.0.0"
	BuildDate      string = "unknown"

	ServiceName string = "camsync"
)

// file paths
var (
	// WorkDir anchors the config file, the status file and local recordings.
	// It is the directory the binary runs from.
	WorkDir string

	InitLogFilePath string
	InitLogFile     *os.File
	LogFilePath     string
	LogFile         *os.File
)

// logging
var (
	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	// ZLogger feeds the influx and database managers.
	ZLogger      zerolog.Logger
	gelfHandler  *logging.GelfHandler
	OTelProvider *intOtel.Provider
)

// timestamps
var (
	SessionStartTime time.Time = time.Now()
)

// hostVersion is whatever the host application reports via :HOST:VERSION:.
var hostVersion string = "unknown"

// services
var (
	eventDispatcher *dispatcher.Dispatcher
	parserService   parser.Service
	poseCache       *cache.PoseCache
	sessionContext  *session.Context
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	controller      *control.Controller
	canvas          *mapview.Canvas
	influxManager   *influx.Manager
	apiClient       *api.Client
	kmlExporter     *kmlgen.Exporter

	engineMu  sync.Mutex
	simEngine *sim.Engine
)

// storage
var (
	storageBackend storage.Backend
	// perfDB is the shared postgres handle when the postgres backend is
	// active. The monitor and the database subcommands reuse it.
	perfDB          *gorm.DB
	isDatabaseValid bool

	storageReady     = make(chan struct{})
	storageReadyOnce sync.Once
)

func init() {
	var err error

	WorkDir = resolveWorkDir()

	// bootstrap log until the config tells us where the real one goes
	InitLogFilePath = filepath.Join(WorkDir, "init.log")
	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(InitLogFile, "info", nil)
	Logger = SlogManager.Logger()

	if err = loadConfig(); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	if _, err := os.Stat(viper.GetString("logsDir")); os.IsNotExist(err) {
		os.MkdirAll(viper.GetString("logsDir"), 0755)
	}

	LogFilePath = logging.LogFilePath(viper.GetString("logsDir"), ServiceName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}
	Logger.Info("Begin logging in logs directory", "path", LogFilePath)

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Warn("Failed to create OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		gelfHandler, err = logging.NewGelfHandler(graylogCfg.Address, ServiceName, slog.LevelInfo)
		if err != nil {
			Logger.Warn("Failed to connect GELF handler", "error", err, "address", graylogCfg.Address)
			gelfHandler = nil
		}
	}

	setupSlog()

	SlogManager.SetContextProvider(func() []slog.Attr {
		attrs := []slog.Attr{}
		if sessionContext != nil && sessionContext.InProgress() {
			sess := sessionContext.GetSession()
			attrs = append(attrs,
				slog.String("currentSession", sess.Name),
				slog.Uint64("currentSessionID", uint64(sess.ID)),
			)
		}
		if monitorService != nil {
			attrs = append(attrs, slog.Bool("statusMonitorActive", monitorService.IsRunning()))
		}
		return attrs
	})

	setupZerolog()

	// the dispatcher comes up before storage so lifecycle commands answer
	// immediately
	if err = setupDispatcher(); err != nil {
		Logger.Error("Failed to set up dispatcher!", "error", err)
		panic(err)
	}
	Logger.Info("Early dispatcher initialized with lifecycle handlers")

	// parsing and session bookkeeping carry no external deps, build them now
	parserService = parser.NewParser(Logger, viper.GetString("defaultTag"))
	poseCache = cache.NewPoseCache()
	sessionContext = session.NewContext()

	numCPUs := runtime.NumCPU()
	Logger.Debug("Number of CPUs", "numCPUs", numCPUs)
	// leave headroom for the host application
	runtime.GOMAXPROCS(int(math.Max(float64(numCPUs-2), 1)))

	config.Watch(onConfigReload)
}

func main() {
	var err error
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	Logger.Info("Initializing storage...")
	if err = initStorage(); err != nil {
		panic(err)
	}
	Logger.Info("Storage initialization complete.")

	if err = startServices(); err != nil {
		panic(err)
	}
	initService()

	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "demo":
			Logger.Info("Populating demo data...")
			demoStart := time.Now()
			populateDemoData()
			Logger.Info("Demo data populated.", "duration", time.Since(demoStart))
		case "setupdb":
			if err = setupDatabase(); err != nil {
				panic(err)
			}
			Logger.Info("DB setup complete.")
		case "getjson":
			if len(args) < 2 {
				fmt.Println("Usage: getjson <sessionID> [sessionID...]")
				break
			}
			if err = getRecordingJSON(args[1:]); err != nil {
				Logger.Error("Failed to export session JSON", "error", err)
			}
		case "exportkml":
			if len(args) < 2 {
				fmt.Println("Usage: exportkml <sessionID> [sessionID...]")
				break
			}
			if err = exportSessionKML(args[1:]); err != nil {
				Logger.Error("Failed to export session KML", "error", err)
			}
		case "reducesession":
			if len(args) < 2 {
				fmt.Println("Usage: reducesession <sessionID> [sessionID...]")
				break
			}
			if err = reduceSession(args[1:]); err != nil {
				Logger.Error("Failed to reduce session", "error", err)
			}
		case "migratebackups":
			if err = migrateBackups(); err != nil {
				Logger.Error("Failed to migrate backups", "error", err)
			}
		default:
			fmt.Println("Unknown command. Available: demo, setupdb, getjson, exportkml, reducesession, migratebackups")
		}
	}

	fmt.Println("Press enter to exit.")
	fmt.Scanln()
	shutdown()
}

// resolveWorkDir anchors config, status and recordings next to the binary,
// falling back to the current directory.
func resolveWorkDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// loadConfig reads camsync.cfg.json from the working directory.
func loadConfig() error {
	return config.Load(WorkDir)
}

// setupSlog (re)wires the slog pipeline: session log file, optional OTel
// bridge, optional GELF forwarding.
func setupSlog() {
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	extras := []slog.Handler{}
	if gelfHandler != nil {
		extras = append(extras, gelfHandler)
	}
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider, extras...)
	Logger = SlogManager.Logger()
}

// setupZerolog builds the zerolog logger the influx and database managers
// consume, mirroring the slog outputs: console plus the session log file.
func setupZerolog() {
	level := zerolog.InfoLevel
	switch strings.ToUpper(viper.GetString("logLevel")) {
	case "TRACE":
		level = zerolog.TraceLevel
	case "DEBUG":
		level = zerolog.DebugLevel
	case "WARN":
		level = zerolog.WarnLevel
	case "ERROR":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
	}
	if LogFile != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: LogFile, TimeFormat: time.RFC3339, NoColor: true})
	}
	ZLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func setupDispatcher() error {
	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(d)
	eventDispatcher = d
	return nil
}

// onConfigReload re-applies the safe keys after viper reloads the config
// file: log level and the controller tunables. Storage and engine selection
// require a restart.
func onConfigReload() {
	setupSlog()
	if controller != nil {
		controller.Reconfigure(controlConfig())
	}
	Logger.Info("Configuration reloaded", "logLevel", viper.GetString("logLevel"))
}

// controlConfig maps the config file tunables onto the controller defaults.
func controlConfig() control.Config {
	fileCfg := config.GetControlConfig()
	cfg := control.DefaultConfig()
	cfg.GimbalThresholdDeg = fileCfg.GimbalThresholdDeg
	cfg.MinDragDistanceM = fileCfg.MinDragDistanceM
	if fileCfg.CameraIcon != "" {
		cfg.CameraStyle.Icon = fileCfg.CameraIcon
	}
	if fileCfg.LookAtIcon != "" {
		cfg.LookAtStyle.Icon = fileCfg.LookAtIcon
	}
	if fileCfg.LineColor != "" {
		cfg.LineStyle.StrokeColor = fileCfg.LineColor
	}
	if fileCfg.LineWidth > 0 {
		cfg.LineStyle.StrokeWidth = fileCfg.LineWidth
	}
	return cfg
}

// startServices builds everything that sits on top of the storage pipeline:
// the map canvas, the sync controller, the status monitor and the export
// plumbing.
func startServices() error {
	functionName := "startServices"

	// canvas centered on the stock engine view, 10 m/px
	x, y := geo.To3857(sim.DefaultView().LookAt)
	canvas = mapview.NewCanvas(x-50000, y+50000, 10)

	deps := control.Dependencies{
		Map:    canvas,
		Logger: Logger,
	}
	if workerManager != nil {
		deps.Recorder = workerManager
	}
	var err error
	controller, err = control.New(deps, controlConfig())
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		DB:              perfDB,
		LogManager:      SlogManager,
		SessionContext:  sessionContext,
		WorkerManager:   workerManager,
		Status:          controller.Snapshot,
		StatusDir:       WorkDir,
		IsDatabaseValid: func() bool { return isDatabaseValid },
	})
	if !monitorService.IsRunning() {
		Logger.Debug("Status process not running, starting it")
		monitorService.Start()
	}

	influxManager = influx.NewManager(ZLogger, filepath.Join(viper.GetString("logsDir"), "influx_backup.gz"))
	go func() {
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB not available, metrics buffered locally", "error", err)
		}
	}()

	apiCfg := config.GetAPIConfig()
	apiClient = api.New(apiCfg.ServerURL, apiCfg.APIKey)

	kmlCfg := config.GetKMLConfig()
	kmlExporter = kmlgen.NewExporter(kmlgen.Config{
		OutputDir: kmlCfg.OutputDir,
		Gradient:  kmlCfg.Gradient,
	})

	SlogManager.WriteLog(functionName, "Services started successfully", "INFO")
	return nil
}

// initService announces readiness and probes the replay frontend in the
// background.
func initService() {
	Logger.Info("Service ready", "version", CurrentVersion, "build", BuildDate)
	go checkServerStatus()
}

func checkServerStatus() {
	if err := apiClient.Healthcheck(); err != nil {
		Logger.Info("Replay frontend is offline")
	} else {
		Logger.Info("Replay frontend is online")
	}
}

// waitForStorage blocks until the recording pipeline is up or the timeout
// elapses. Activation wants the recorder bound so no track points are lost
// when storage was brought up asynchronously.
func waitForStorage(timeout time.Duration) bool {
	select {
	case <-storageReady:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ensureSimEngine lazily builds and starts the simulated engine from config.
func ensureSimEngine() *sim.Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if simEngine != nil {
		return simEngine
	}
	cfg := sim.DefaultConfig()
	engCfg := config.GetEngineConfig()
	if engCfg.Name != "" {
		cfg.Name = engCfg.Name
	}
	if engCfg.FrameInterval > 0 {
		cfg.FrameInterval = engCfg.FrameInterval
	}
	simEngine = sim.New(cfg)
	simEngine.Start()
	Logger.Info("Simulated engine started", "name", cfg.Name, "frameInterval", cfg.FrameInterval)
	return simEngine
}

func currentEngine() *sim.Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	return simEngine
}

func stopEngine() {
	engineMu.Lock()
	defer engineMu.Unlock()
	if simEngine == nil {
		return
	}
	simEngine.Stop()
	simEngine = nil
	Logger.Info("Simulated engine stopped")
}

// registerLifecycleHandlers binds the commands that must answer before the
// storage pipeline exists. The recording commands (:SESSION:START:,
// :SESSION:END:, :EVENT:) are bound by the worker manager once storage is
// up.
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		go initService()
		return "ok", nil
	})

	d.Register(":INIT:STORAGE:", func(e dispatcher.Event) (any, error) {
		go func() {
			if err := initStorage(); err != nil {
				Logger.Error("Storage initialization failed", "error", err)
			}
		}()
		return "ok", nil
	})

	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":HOST:VERSION:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) > 0 {
			hostVersion = util.FixEscapeQuotes(util.TrimQuotes(e.Args[0]))
			Logger.Info("Host version", "version", hostVersion)
		}
		return "ok", nil
	})

	d.Register(":GETDIR:WORK:", func(e dispatcher.Event) (any, error) {
		return WorkDir, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return viper.GetString("logsDir"), nil
	})

	d.Register(":ACTIVATE:", func(e dispatcher.Event) (any, error) {
		if controller == nil {
			return nil, fmt.Errorf("controller not started")
		}
		if !waitForStorage(5 * time.Second) {
			Logger.Warn("Storage pipeline not ready, activating without recording")
		}
		if err := controller.Activate(); err != nil {
			return nil, err
		}
		return "active", nil
	}, dispatcher.Logged())

	d.Register(":DEACTIVATE:", func(e dispatcher.Event) (any, error) {
		if controller == nil {
			return nil, fmt.Errorf("controller not started")
		}
		controller.Deactivate()
		return "inactive", nil
	}, dispatcher.Logged())

	d.Register(":ENGINE:SET:", func(e dispatcher.Event) (any, error) {
		if controller == nil {
			return nil, fmt.Errorf("controller not started")
		}
		if len(e.Args) > 0 && util.TrimQuotes(e.Args[0]) == "none" {
			controller.SetEngine(nil)
			stopEngine()
			return "detached", nil
		}
		eng := ensureSimEngine()
		controller.SetEngine(eng)
		return eng.Name(), nil
	}, dispatcher.Logged())

	d.Register(":ENGINE:VIEW:", func(e dispatcher.Event) (any, error) {
		eng := currentEngine()
		if eng == nil {
			return nil, fmt.Errorf("no engine attached")
		}
		view, err := parserService.ParseView(e.Args)
		if err != nil {
			return nil, err
		}
		if err := eng.ApplyView(view); err != nil {
			return nil, err
		}
		return "ok", nil
	})

	d.Register(":STATUS:", func(e dispatcher.Event) (any, error) {
		if controller == nil {
			return nil, fmt.Errorf("controller not started")
		}
		out, err := json.Marshal(controller.Snapshot())
		if err != nil {
			return nil, err
		}
		return string(out), nil
	})

	d.Register(":EXPORT:KML:", func(e dispatcher.Event) (any, error) {
		if storageBackend == nil || kmlExporter == nil {
			return nil, fmt.Errorf("storage not initialized")
		}
		replayable, ok := storageBackend.(storage.Replayable)
		if !ok {
			return nil, fmt.Errorf("storage backend %T cannot replay sessions", storageBackend)
		}
		sess, ok := replayable.GetSession()
		if !ok {
			return nil, fmt.Errorf("no session recorded")
		}
		path, err := kmlExporter.Export(kmlgen.Document{
			Session: sess,
			Poses:   replayable.PoseSamples(),
			Drags:   replayable.DragEvents(),
		})
		if err != nil {
			return nil, err
		}
		Logger.Info("Exported KML track", "path", path)
		return path, nil
	}, dispatcher.Logged())

	d.Register(":METRIC:", func(e dispatcher.Event) (any, error) {
		if influxManager == nil {
			return nil, fmt.Errorf("influx manager not started")
		}
		if len(e.Args) < 2 {
			return nil, fmt.Errorf("metric needs at least a bucket and a measurement, got %d args", len(e.Args))
		}
		bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
		if err != nil {
			return nil, err
		}
		return "ok", influxManager.WritePoint(context.Background(), bucket, point)
	}, dispatcher.Buffered(500))

	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SAVE: command, ending session recording")
		if workerManager != nil {
			if err := workerManager.EndSession(); err != nil && !errors.Is(err, worker.ErrNoSession) {
				Logger.Error("Failed to end session", "error", err)
				return nil, err
			}
		}
		if OTelProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
		}
		return "ok", nil
	}, dispatcher.Logged())
}

// shutdown tears the services down in dependency order and flushes the
// telemetry pipelines.
func shutdown() {
	Logger.Info("Shutting down...")

	if controller != nil {
		controller.Deactivate()
	}
	stopEngine()
	if workerManager != nil {
		if err := workerManager.EndSession(); err != nil && !errors.Is(err, worker.ErrNoSession) {
			Logger.Error("Failed to end session during shutdown", "error", err)
		}
		workerManager.Stop()
	}
	if monitorService != nil {
		monitorService.Stop()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if influxManager != nil && influxManager.IsValid {
		influxManager.Client.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	SlogManager.Flush(ctx)
}
