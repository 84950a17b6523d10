package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
	"github.com/jo-hoe/qrsheet/internal/backend/fetcher"
	"github.com/jo-hoe/qrsheet/internal/backend/store"
)

// Environment variables that override values of the config file.
const (
	EnvCredentialsFile = "QRSHEET_CREDENTIALS_FILE"
	EnvStoreConnection = "QRSHEET_STORE_CONNECTION"
	EnvRedisAddress    = "QRSHEET_REDIS_ADDR"
	EnvArchiveBucket   = "QRSHEET_ARCHIVE_BUCKET"
)

const (
	defaultSheetName    = "QR Data"
	defaultLockKey      = "qrsheet:sync"
	defaultArchiveName  = "transfer-documents"
	defaultLockTTL      = 60
	defaultLogLevelName = "info"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type DecoderConfig struct {
	// Commands is the transform battery; empty selects the built-in default battery.
	Commands []commandstructure.CommandConfig `yaml:"commands"`
}

type FetcherConfig struct {
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
	UserAgent          string `yaml:"userAgent"`
	MaxBytes           int64  `yaml:"maxBytes"`
	Retries            int    `yaml:"retries"`
	RetryBackoffMillis int    `yaml:"retryBackoffMillis"`
}

type ConcurrencyConfig struct {
	ImageWorkers int `yaml:"imageWorkers"`
	URLWorkers   int `yaml:"urlWorkers"`
}

type LockConfig struct {
	// RedisAddress enables the cross-process sync lock when set.
	RedisAddress string `yaml:"redisAddress"`
	Key          string `yaml:"key"`
	TTLSeconds   int    `yaml:"ttlSeconds"`
}

type ArchiveConfig struct {
	// Bucket enables archiving of fetched documents to Cloud Storage when set.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type ServiceConfig struct {
	Port        int               `yaml:"port"`
	LogLevel    string            `yaml:"logLevel"`
	Decoder     DecoderConfig     `yaml:"decoder"`
	Fetcher     FetcherConfig     `yaml:"fetcher"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Store       store.Config      `yaml:"store"`
	Lock        LockConfig        `yaml:"lock"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

// DefaultConfig returns a configuration with every default filled in.
func DefaultConfig() *ServiceConfig {
	defaults := fetcher.DefaultConfig()
	return &ServiceConfig{
		Port:     8080,
		LogLevel: defaultLogLevelName,
		Fetcher: FetcherConfig{
			TimeoutSeconds:     int(defaults.Timeout / time.Second),
			UserAgent:          defaults.UserAgent,
			MaxBytes:           defaults.MaxBytes,
			Retries:            defaults.Retries,
			RetryBackoffMillis: int(defaults.RetryBackoff / time.Millisecond),
		},
		Concurrency: ConcurrencyConfig{ImageWorkers: 1, URLWorkers: 1},
		Store: store.Config{
			Type:            store.TypeSheets,
			SpreadsheetName: defaultSheetName,
			WorksheetName:   defaultSheetName,
			CredentialsFile: "credentials.json",
			ShareWithAnyone: true,
		},
		Lock:    LockConfig{Key: defaultLockKey, TTLSeconds: defaultLockTTL},
		Archive: ArchiveConfig{Prefix: defaultArchiveName},
	}
}

// LoadConfig loads configuration from the specified YAML file on top of the defaults,
// applies environment overrides and validates the result.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return finish(config)
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to the defaults when
// the file does not exist.
func LoadConfigOrDefault(configPath string) (*ServiceConfig, error) {
	config, err := LoadConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("Config: file not found, using defaults", "path", configPath)
		return finish(DefaultConfig())
	}
	return config, err
}

// LoadDotEnv loads a .env file from the working directory if there is one.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func finish(config *ServiceConfig) (*ServiceConfig, error) {
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *ServiceConfig) applyEnv() {
	overrides := map[string]*string{
		EnvCredentialsFile: &c.Store.CredentialsFile,
		EnvStoreConnection: &c.Store.ConnectionString,
		EnvRedisAddress:    &c.Lock.RedisAddress,
		EnvArchiveBucket:   &c.Archive.Bucket,
	}
	for env, target := range overrides {
		if value, ok := os.LookupEnv(env); ok {
			*target = value
		}
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *ServiceConfig) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	if len(c.Decoder.Commands) > 0 {
		if err := commandstructure.ValidateConfigs(commandstructure.DefaultRegistry, c.Decoder.Commands); err != nil {
			errs = append(errs, fmt.Errorf("decoder: %w", err))
		}
	}

	if c.Fetcher.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("fetcher.timeoutSeconds must be positive"))
	}
	if c.Fetcher.MaxBytes <= 0 {
		errs = append(errs, errors.New("fetcher.maxBytes must be positive"))
	}
	if c.Fetcher.Retries < 0 || c.Fetcher.RetryBackoffMillis < 0 {
		errs = append(errs, errors.New("fetcher retries and backoff must not be negative"))
	}

	if c.Concurrency.ImageWorkers < 1 || c.Concurrency.URLWorkers < 1 {
		errs = append(errs, errors.New("concurrency workers must be at least 1"))
	}

	switch c.Store.Type {
	case store.TypeSheets:
		if c.Store.SpreadsheetName == "" || c.Store.WorksheetName == "" {
			errs = append(errs, errors.New("store.spreadsheetName and store.worksheetName are required"))
		}
	case store.TypeSQLite, store.TypePostgres:
		if c.Store.ConnectionString == "" {
			errs = append(errs, fmt.Errorf("store.connectionString is required for %s", c.Store.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store type %q, expected one of %v", c.Store.Type, store.SupportedTypes()))
	}

	if c.Lock.RedisAddress != "" && (c.Lock.Key == "" || c.Lock.TTLSeconds <= 0) {
		errs = append(errs, errors.New("lock.key and a positive lock.ttlSeconds are required with lock.redisAddress"))
	}

	return errors.Join(errs...)
}

// FetcherSettings converts the fetcher section to fetcher.Config.
func (c *ServiceConfig) FetcherSettings() fetcher.Config {
	return fetcher.Config{
		Timeout:      time.Duration(c.Fetcher.TimeoutSeconds) * time.Second,
		UserAgent:    c.Fetcher.UserAgent,
		MaxBytes:     c.Fetcher.MaxBytes,
		Retries:      c.Fetcher.Retries,
		RetryBackoff: time.Duration(c.Fetcher.RetryBackoffMillis) * time.Millisecond,
	}
}

// SlogLevel returns the configured log level.
func (c *ServiceConfig) SlogLevel() slog.Level {
	return logLevels[strings.ToLower(c.LogLevel)]
}
