package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds local sqlite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds remote websocket storage backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB metric export settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// GraylogConfig holds GELF log forwarding settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// ControlConfig holds the camera sync tunables
type ControlConfig struct {
	GimbalThresholdDeg float64 `json:"gimbalThresholdDeg" mapstructure:"gimbalThresholdDeg"`
	MinDragDistanceM   float64 `json:"minDragDistanceM" mapstructure:"minDragDistanceM"`
	CameraIcon         string  `json:"cameraIcon" mapstructure:"cameraIcon"`
	LookAtIcon         string  `json:"lookAtIcon" mapstructure:"lookAtIcon"`
	LineColor          string  `json:"lineColor" mapstructure:"lineColor"`
	LineWidth          float64 `json:"lineWidth" mapstructure:"lineWidth"`
}

// EngineConfig holds the demo engine settings
type EngineConfig struct {
	Name          string        `json:"name" mapstructure:"name"`
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
}

// APIConfig holds the upload API settings
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// WorkerConfig holds the recording pipeline settings
type WorkerConfig struct {
	PoseMinInterval time.Duration `json:"poseMinInterval" mapstructure:"poseMinInterval"`
}

// KMLConfig holds the KML track export settings
type KMLConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	Gradient  string `json:"gradient" mapstructure:"gradient"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Flight")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "camsync")

	viper.SetDefault("influx.enabled", true)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "camsync-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("control.gimbalThresholdDeg", 1.0)
	viper.SetDefault("control.minDragDistanceM", 0.1)
	viper.SetDefault("control.cameraIcon", "camera.png")
	viper.SetDefault("control.lookAtIcon", "crosshair.png")
	viper.SetDefault("control.lineColor", "#ff6600")
	viper.SetDefault("control.lineWidth", 2.0)

	viper.SetDefault("engine.name", "globe-sim")
	viper.SetDefault("engine.frameInterval", "33ms")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/camsync.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5001/ws")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("worker.poseMinInterval", "250ms")

	viper.SetDefault("kml.outputDir", "./recordings")
	viper.SetDefault("kml.gradient", "turbo")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "camsync")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("camsync.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Watch re-reads the config file whenever it changes on disk and invokes fn
// after each reload.
func Watch(fn func()) {
	viper.OnConfigChange(func(fsnotify.Event) {
		if fn != nil {
			fn()
		}
	})
	viper.WatchConfig()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend selection and settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry export settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB export settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetDBConfig returns the PostgreSQL connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetGraylogConfig returns the GELF forwarding settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetControlConfig returns the camera sync tunables.
func GetControlConfig() ControlConfig {
	return ControlConfig{
		GimbalThresholdDeg: viper.GetFloat64("control.gimbalThresholdDeg"),
		MinDragDistanceM:   viper.GetFloat64("control.minDragDistanceM"),
		CameraIcon:         viper.GetString("control.cameraIcon"),
		LookAtIcon:         viper.GetString("control.lookAtIcon"),
		LineColor:          viper.GetString("control.lineColor"),
		LineWidth:          viper.GetFloat64("control.lineWidth"),
	}
}

// GetEngineConfig returns the demo engine settings.
func GetEngineConfig() EngineConfig {
	return EngineConfig{
		Name:          viper.GetString("engine.name"),
		FrameInterval: viper.GetDuration("engine.frameInterval"),
	}
}

// GetAPIConfig returns the upload API settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetWorkerConfig returns the recording pipeline settings.
func GetWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PoseMinInterval: viper.GetDuration("worker.poseMinInterval"),
	}
}

// GetKMLConfig returns the KML track export settings.
func GetKMLConfig() KMLConfig {
	return KMLConfig{
		OutputDir: viper.GetString("kml.outputDir"),
		Gradient:  viper.GetString("kml.gradient"),
	}
}
