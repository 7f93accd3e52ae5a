package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// FileEnv names the environment variable pointing at an optional config
// file. Environment variables override values from the file.
const FileEnv = "ORDERDESK_CONFIG"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all runtime configuration for the order desk.
type Config struct {
	Port               int
	LogLevel           string
	Store              string
	DatabaseURL        string
	ProfitFloor        decimal.Decimal
	SettlementMinDelay time.Duration
	SettlementMaxDelay time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	LockTimeout        time.Duration
}

var durationDefaults = map[string]time.Duration{
	"settlement_min_delay": 0,
	"settlement_max_delay": 0,
	"read_timeout":         5 * time.Second,
	"write_timeout":        30 * time.Second,
	"idle_timeout":         60 * time.Second,
	"shutdown_timeout":     10 * time.Second,
	"lock_timeout":         30 * time.Second,
}

// Load reads configuration from the optional config file and environment
// variables, applies defaults, and validates values. It returns an error
// for any invalid value.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	logLevel := v.GetString("log_level")
	if _, ok := levels[logLevel]; !ok {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	cfg := &Config{
		Port:        port,
		LogLevel:    logLevel,
		Store:       v.GetString("store"),
		DatabaseURL: v.GetString("database_url"),
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE: %q, must be one of: memory, postgres", cfg.Store)
	}

	cfg.ProfitFloor, err = decimal.NewFromString(v.GetString("profit_floor"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROFIT_FLOOR: %w", err)
	}

	durations := map[string]*time.Duration{
		"settlement_min_delay": &cfg.SettlementMinDelay,
		"settlement_max_delay": &cfg.SettlementMaxDelay,
		"read_timeout":         &cfg.ReadTimeout,
		"write_timeout":        &cfg.WriteTimeout,
		"idle_timeout":         &cfg.IdleTimeout,
		"shutdown_timeout":     &cfg.ShutdownTimeout,
		"lock_timeout":         &cfg.LockTimeout,
	}
	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", strings.ToUpper(key))
		}
		*dst = d
	}
	if cfg.SettlementMaxDelay < cfg.SettlementMinDelay {
		return nil, fmt.Errorf("invalid SETTLEMENT_MAX_DELAY: %v is below SETTLEMENT_MIN_DELAY %v",
			cfg.SettlementMaxDelay, cfg.SettlementMinDelay)
	}

	return cfg, nil
}

// SlogLevel returns the configured level for the slog handler.
func (c *Config) SlogLevel() slog.Level {
	return levels[c.LogLevel]
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("profit_floor", "-1000")
	for key, d := range durationDefaults {
		v.SetDefault(key, d.String())
	}
}
