package config

import "time"

// Config is the fully-typed application configuration, unmarshalled
// from YAML plus environment overrides by Load.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	TCP            TCPConfig            `mapstructure:"tcp"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Station        StationConfig        `mapstructure:"station"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	EventBus       EventBusConfig       `mapstructure:"event_bus"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Vault          VaultConfig          `mapstructure:"vault"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimiting   RateLimitingConfig   `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Email          EmailConfig          `mapstructure:"email"`
	Cache          CacheConfig          `mapstructure:"cache"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// TCPConfig configures the raw wire-protocol server (spec §6): one
// JSON request/response object per exchange, framed by reading bytes
// until they parse as a complete JSON object.
type TCPConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxConnections int           `mapstructure:"max_connections"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

// StationConfig holds the domain constants the spec leaves as
// configuration points: queue capacity, pile fleet composition, and
// the scheduler's tick cadence.
type StationConfig struct {
	MainQueueCapacity  int           `mapstructure:"main_queue_capacity"`
	FastPileCount      int           `mapstructure:"fast_pile_count"`
	TricklePileCount   int           `mapstructure:"trickle_pile_count"`
	FastPowerKW        float64       `mapstructure:"fast_power_kw"`
	TricklePowerKW     float64       `mapstructure:"trickle_power_kw"`
	SchedulerTick      time.Duration `mapstructure:"scheduler_tick"`
	OptimizedDispatch  bool          `mapstructure:"optimized_dispatch"`
	PersistenceDir     string        `mapstructure:"persistence_dir"`
	PersistenceBackups int           `mapstructure:"persistence_backups"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// EventBusConfig selects and configures the domain-event transport
// (NATS or RabbitMQ) used to broadcast pile state changes to admin
// dashboard subscribers.
type EventBusConfig struct {
	Backend       string        `mapstructure:"backend"` // "nats" or "rabbitmq"
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Exchange      string        `mapstructure:"exchange"`
}

type JWTConfig struct {
	Secret              string        `mapstructure:"secret"`
	AdminTokenDuration  time.Duration `mapstructure:"admin_token_duration"`
	AdminOperatorID     string        `mapstructure:"admin_operator_id"`
	AdminOperatorDigest string        `mapstructure:"admin_operator_digest"`
}

// VaultConfig points at an optional HashiCorp Vault instance used to
// source the JWT signing secret and database DSN instead of plain
// config values.
type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	SecretPath string `mapstructure:"secret_path"`
}

type OpenTelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	JaegerURL   string `mapstructure:"jaeger_url"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	ExposeHeaders  []string `mapstructure:"expose_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}

type EmailConfig struct {
	Provider       string `mapstructure:"provider"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
}

type CacheConfig struct {
	AdminReportsTTL time.Duration `mapstructure:"admin_reports_ttl"`
	PileStatusTTL   time.Duration `mapstructure:"pile_status_ttl"`
}
