package config

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var durationEnvKeys = []string{
	"READ_TIMEOUT",
	"WRITE_TIMEOUT",
	"IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
	"LOCK_TIMEOUT",
}

func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

// genDuration generates a valid Go duration string such as "3s" or "500ms".
func genDuration() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(0, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		port := rapid.IntRange(1, 65535).Draw(t, "port")
		logLevel := rapid.SampledFrom(validLogLevels).Draw(t, "logLevel")
		floor := decimal.New(rapid.Int64Range(-1_000_000, 0).Draw(t, "floorUnits"), -int32(rapid.IntRange(0, 4).Draw(t, "floorScale")))
		durations := make(map[string]string, len(durationEnvKeys))
		for _, key := range durationEnvKeys {
			durations[key] = genDuration().Draw(t, key)
		}

		os.Setenv("PORT", fmt.Sprint(port))
		os.Setenv("LOG_LEVEL", logLevel)
		os.Setenv("PROFIT_FLOOR", floor.String())
		for key, v := range durations {
			os.Setenv(key, v)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}
		if cfg.Port != port || cfg.LogLevel != logLevel {
			t.Fatalf("got port %d level %q, want %d %q", cfg.Port, cfg.LogLevel, port, logLevel)
		}
		if !cfg.ProfitFloor.Equal(floor) {
			t.Fatalf("ProfitFloor = %s, want %s", cfg.ProfitFloor, floor)
		}

		got := map[string]time.Duration{
			"READ_TIMEOUT":     cfg.ReadTimeout,
			"WRITE_TIMEOUT":    cfg.WriteTimeout,
			"IDLE_TIMEOUT":     cfg.IdleTimeout,
			"SHUTDOWN_TIMEOUT": cfg.ShutdownTimeout,
			"LOCK_TIMEOUT":     cfg.LockTimeout,
		}
		for key, raw := range durations {
			want, _ := time.ParseDuration(raw)
			if got[key] != want {
				t.Fatalf("%s = %v, want %v", key, got[key], want)
			}
		}
	})
}

func TestProperty_SettlementRangeOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		minMS := rapid.IntRange(0, 5000).Draw(t, "min")
		maxMS := rapid.IntRange(0, 5000).Draw(t, "max")
		os.Setenv("SETTLEMENT_MIN_DELAY", fmt.Sprintf("%dms", minMS))
		os.Setenv("SETTLEMENT_MAX_DELAY", fmt.Sprintf("%dms", maxMS))

		cfg, err := Load()
		if maxMS < minMS {
			if err == nil {
				t.Fatalf("expected error for max %dms below min %dms", maxMS, minMS)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SettlementMinDelay != time.Duration(minMS)*time.Millisecond ||
			cfg.SettlementMaxDelay != time.Duration(maxMS)*time.Millisecond {
			t.Fatalf("got %v..%v", cfg.SettlementMinDelay, cfg.SettlementMaxDelay)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalid := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return true
		}).Draw(t, "level")
		os.Setenv("LOG_LEVEL", invalid)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for LOG_LEVEL %q", invalid)
		}
	})
}

func TestProperty_InvalidDurationReturnsError(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				invalid := rapid.StringMatching(`[a-zA-Z]{1,10}`).Filter(func(s string) bool {
					_, err := time.ParseDuration(s)
					return err != nil && strings.TrimSpace(s) != ""
				}).Draw(t, "value")
				os.Setenv(key, invalid)

				if _, err := Load(); err == nil {
					t.Fatalf("Load() should return error for %s=%q", key, invalid)
				}
			})
		})
	}
}
