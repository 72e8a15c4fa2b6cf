package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/propsync/internal/paths"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "PROPSYNC"
	dotEnvFile     = ".env"
)

// Config keys. Nested keys use the dotted viper form; the matching
// environment variable is PROPSYNC_ followed by the key with dots replaced
// by underscores, e.g. PROPSYNC_CACHE_REDIS_ADDR.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyPostgresDSN    = "postgres_dsn"
	cfgKeyTable          = "table"
	cfgKeyBucketImages   = "buckets.images"
	cfgKeyBucketVideos   = "buckets.videos"
	cfgKeyBucketFallback = "buckets.fallback"
	cfgKeyInlineCeiling  = "upload.inline_ceiling"
	cfgKeyRequireAll     = "upload.require_all"
	cfgKeyRetryAttempts  = "retry.attempts"
	cfgKeyRetryDelay     = "retry.base_delay"
	cfgKeyRedisAddr      = "cache.redis_addr"
	cfgKeyRedisPassword  = "cache.redis_password"
	cfgKeyRedisDB        = "cache.redis_db"
	cfgKeyCacheTTL       = "cache.ttl"
	cfgKeyAMQPURL        = "events.amqp_url"
	cfgKeyExchange       = "events.exchange"
	cfgKeyLogLevel       = "logging.level"
	cfgKeyLogFormat      = "logging.format"
	cfgKeyFluentHost     = "logging.fluent_host"
	cfgKeyFluentPort     = "logging.fluent_port"
	cfgKeyServerAddr     = "server.addr"
	cfgKeyAllowedOrigins = "server.allowed_origins"
)

const defaultConfigHeader = `# propdash configuration
# Every key can be overridden with a PROPSYNC_ environment variable,
# e.g. PROPSYNC_BACKEND=postgres or PROPSYNC_CACHE_REDIS_ADDR=localhost:6379.

`

// loadDotEnv exports the variables of configDir/.env and ./.env. Variables
// already set in the environment win.
func loadDotEnv(configDir string) {
	for _, path := range []string{filepath.Join(configDir, dotEnvFile), dotEnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "propdash: ignoring %s: %v\n", path, err)
		}
	}
}

// loadConfig reads config.yaml from configDir with environment overrides.
// It creates the directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v, types.DefaultConfig(""))
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyDataDir, d.DataDir)
	v.SetDefault(cfgKeyPostgresDSN, d.PostgresDSN)
	v.SetDefault(cfgKeyTable, d.Table)
	v.SetDefault(cfgKeyBucketImages, d.Buckets.Images)
	v.SetDefault(cfgKeyBucketVideos, d.Buckets.Videos)
	v.SetDefault(cfgKeyBucketFallback, d.Buckets.Fallback)
	v.SetDefault(cfgKeyInlineCeiling, d.Upload.InlineCeiling)
	v.SetDefault(cfgKeyRequireAll, d.Upload.RequireAll)
	v.SetDefault(cfgKeyRetryAttempts, d.Retry.Attempts)
	v.SetDefault(cfgKeyRetryDelay, d.Retry.BaseDelay)
	v.SetDefault(cfgKeyRedisAddr, d.Cache.RedisAddr)
	v.SetDefault(cfgKeyRedisPassword, d.Cache.RedisPassword)
	v.SetDefault(cfgKeyRedisDB, d.Cache.RedisDB)
	v.SetDefault(cfgKeyCacheTTL, d.Cache.TTL)
	v.SetDefault(cfgKeyAMQPURL, d.Events.AMQPURL)
	v.SetDefault(cfgKeyExchange, d.Events.Exchange)
	v.SetDefault(cfgKeyLogLevel, d.Logging.Level)
	v.SetDefault(cfgKeyLogFormat, d.Logging.Format)
	v.SetDefault(cfgKeyFluentHost, d.Logging.FluentHost)
	v.SetDefault(cfgKeyFluentPort, d.Logging.FluentPort)
	v.SetDefault(cfgKeyServerAddr, d.Server.Addr)
	v.SetDefault(cfgKeyAllowedOrigins, d.Server.AllowedOrigins)
}

// configFromViper maps the loaded keys onto a Config. Zero tuning values
// are replaced by their defaults; the result is not validated.
func configFromViper(v *viper.Viper) types.Config {
	c := types.Config{
		Backend:     strings.ToLower(strings.TrimSpace(v.GetString(cfgKeyBackend))),
		DataDir:     v.GetString(cfgKeyDataDir),
		PostgresDSN: v.GetString(cfgKeyPostgresDSN),
		Table:       v.GetString(cfgKeyTable),
		Buckets: types.BucketsConfig{
			Images:   v.GetString(cfgKeyBucketImages),
			Videos:   v.GetString(cfgKeyBucketVideos),
			Fallback: v.GetString(cfgKeyBucketFallback),
		},
		Upload: types.UploadConfig{
			InlineCeiling: v.GetInt(cfgKeyInlineCeiling),
			RequireAll:    v.GetBool(cfgKeyRequireAll),
		},
		Retry: types.RetryConfig{
			Attempts:  v.GetInt(cfgKeyRetryAttempts),
			BaseDelay: v.GetDuration(cfgKeyRetryDelay),
		},
		Cache: types.CacheConfig{
			RedisAddr:     v.GetString(cfgKeyRedisAddr),
			RedisPassword: v.GetString(cfgKeyRedisPassword),
			RedisDB:       v.GetInt(cfgKeyRedisDB),
			TTL:           v.GetDuration(cfgKeyCacheTTL),
		},
		Events: types.EventsConfig{
			AMQPURL:  v.GetString(cfgKeyAMQPURL),
			Exchange: v.GetString(cfgKeyExchange),
		},
		Logging: types.LoggingConfig{
			Level:      v.GetString(cfgKeyLogLevel),
			Format:     v.GetString(cfgKeyLogFormat),
			FluentHost: v.GetString(cfgKeyFluentHost),
			FluentPort: v.GetInt(cfgKeyFluentPort),
		},
		Server: types.ServerConfig{
			Addr:           v.GetString(cfgKeyServerAddr),
			AllowedOrigins: v.GetStringSlice(cfgKeyAllowedOrigins),
		},
	}
	return c.WithDefaults()
}

// ensureDefaultConfigFile writes config.yaml with the default settings when
// configDir has none.
func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfigYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(defaultConfigHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(types.DefaultConfig("")); err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	return buf.Bytes(), nil
}
