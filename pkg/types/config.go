package types

import (
	"errors"
	"time"
)

// Config holds backend selection and the tuning of the sync layer.
type Config struct {
	Backend     string        `json:"backend" yaml:"backend"`
	DataDir     string        `json:"data_dir" yaml:"data_dir"`
	PostgresDSN string        `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
	Table       string        `json:"table" yaml:"table"`
	Buckets     BucketsConfig `json:"buckets" yaml:"buckets"`
	Upload      UploadConfig  `json:"upload" yaml:"upload"`
	Retry       RetryConfig   `json:"retry" yaml:"retry"`
	Cache       CacheConfig   `json:"cache" yaml:"cache"`
	Events      EventsConfig  `json:"events" yaml:"events"`
	Logging     LoggingConfig `json:"logging" yaml:"logging"`
	Server      ServerConfig  `json:"server" yaml:"server"`
}

// BucketsConfig names the object storage buckets used by the uploader.
type BucketsConfig struct {
	Images   string `json:"images" yaml:"images"`
	Videos   string `json:"videos" yaml:"videos"`
	Fallback string `json:"fallback" yaml:"fallback"`
}

// UploadConfig tunes the media uploader.
type UploadConfig struct {
	// InlineCeiling is the exclusive size limit for data URI inlining.
	InlineCeiling int  `json:"inline_ceiling" yaml:"inline_ceiling"`
	RequireAll    bool `json:"require_all" yaml:"require_all"`
}

// RetryConfig tunes the retry loop for create and update.
type RetryConfig struct {
	Attempts  int           `json:"attempts" yaml:"attempts"`
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`
}

// CacheConfig configures the shared location cache. An empty RedisAddr
// disables it.
type CacheConfig struct {
	RedisAddr     string        `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string        `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db"`
	TTL           time.Duration `json:"ttl" yaml:"ttl"`
}

// EventsConfig configures the change feed. An empty AMQPURL disables it.
type EventsConfig struct {
	AMQPURL  string `json:"amqp_url,omitempty" yaml:"amqp_url,omitempty"`
	Exchange string `json:"exchange" yaml:"exchange"`
}

// LoggingConfig selects the log level, format and an optional fluentd sink.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	FluentHost string `json:"fluent_host,omitempty" yaml:"fluent_host,omitempty"`
	FluentPort int    `json:"fluent_port,omitempty" yaml:"fluent_port,omitempty"`
}

// ServerConfig configures the REST server.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// Log formats.
const (
	LogFormatText  = "text"
	LogFormatJSON  = "json"
	LogFormatColor = "color"
)

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Default tuning values.
const (
	DefaultInlineCeiling = 10 << 20
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
	DefaultCacheTTL      = 24 * time.Hour
	DefaultExchange      = "propsync.changes"
	DefaultLogLevel      = "info"
	DefaultServerAddr    = ":8080"
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrDSNEmpty           = errors.New("postgres backend requires a DSN")
	ErrBucketEmpty        = errors.New("bucket name must not be empty")
	ErrCeilingInvalid     = errors.New("inline ceiling must be positive")
	ErrRetryAttempts      = errors.New("retry attempts must be positive")
	ErrRetryDelayNegative = errors.New("retry base delay must not be negative")
	ErrCacheTTLNegative   = errors.New("cache ttl must not be negative")
	ErrLogFormat          = errors.New("unknown log format")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

// DefaultConfig returns a sqlite configuration with the standard buckets and
// tuning values.
func DefaultConfig(dataDir string) Config {
	return Config{
		Backend: BackendSQLite,
		DataDir: dataDir,
		Table:   PropertiesTable,
		Buckets: BucketsConfig{
			Images:   ImagesBucket,
			Videos:   VideosBucket,
			Fallback: FallbackBucket,
		},
		Upload: UploadConfig{InlineCeiling: DefaultInlineCeiling},
		Retry: RetryConfig{
			Attempts:  DefaultRetryAttempts,
			BaseDelay: DefaultRetryDelay,
		},
		Cache:   CacheConfig{TTL: DefaultCacheTTL},
		Events:  EventsConfig{Exchange: DefaultExchange},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: LogFormatText},
		Server:  ServerConfig{Addr: DefaultServerAddr, AllowedOrigins: []string{"*"}},
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. Zero-valued tuning fields are accepted and
// mean "use the default".
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.PostgresDSN == "" {
		return ErrDSNEmpty
	}
	if c.Buckets != (BucketsConfig{}) &&
		(c.Buckets.Images == "" || c.Buckets.Videos == "" || c.Buckets.Fallback == "") {
		return ErrBucketEmpty
	}
	if c.Upload.InlineCeiling < 0 {
		return ErrCeilingInvalid
	}
	if c.Retry.Attempts < 0 {
		return ErrRetryAttempts
	}
	if c.Retry.BaseDelay < 0 {
		return ErrRetryDelayNegative
	}
	if c.Cache.TTL < 0 {
		return ErrCacheTTLNegative
	}
	switch c.Logging.Format {
	case "", LogFormatText, LogFormatJSON, LogFormatColor:
	default:
		return ErrLogFormat
	}
	return nil
}

// WithDefaults returns c with every zero-valued tuning field replaced by its
// default.
func (c Config) WithDefaults() Config {
	if c.Table == "" {
		c.Table = PropertiesTable
	}
	if c.Buckets == (BucketsConfig{}) {
		c.Buckets = BucketsConfig{Images: ImagesBucket, Videos: VideosBucket, Fallback: FallbackBucket}
	}
	if c.Upload.InlineCeiling == 0 {
		c.Upload.InlineCeiling = DefaultInlineCeiling
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = DefaultRetryDelay
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = DefaultExchange
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	return c
}
