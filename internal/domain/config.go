package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Model snapshot settings
	Model ModelConfig `json:"model"`

	// Admin endpoint protection
	Security SecurityConfig `json:"security"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ModelConfig holds model snapshot and update pipeline settings.
type ModelConfig struct {
	// SnapshotsDir is the read-only directory holding model definition files.
	// Update notices are resolved against it; paths escaping it are rejected.
	SnapshotsDir string `json:"snapshotsDir"`

	// BootstrapFile is the model definition compiled at startup.
	// Empty disables bootstrap; the service starts on the empty model.
	BootstrapFile string `json:"bootstrapFile"`

	// UpdateQueueSize bounds the pending update notices.
	UpdateQueueSize int `json:"updateQueueSize"`

	// UpdateWorkers is the number of compile/publish workers.
	UpdateWorkers int `json:"updateWorkers"`
}

// SecurityConfig holds the admin API shared secret.
type SecurityConfig struct {
	AdminAPIKey string `json:"adminApiKey"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns a single-node configuration: SQLite, in-memory
// cache, and the in-process channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Model: ModelConfig{
			SnapshotsDir:    "./snapshots",
			BootstrapFile:   "model.json",
			UpdateQueueSize: 64,
			UpdateWorkers:   2,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// DistributedConfig returns a multi-node configuration: PostgreSQL audit
// log, Redis counters, and NATS as the notification channel.
func DistributedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:      "redis",
		RedisAddr: "localhost:6379",
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
