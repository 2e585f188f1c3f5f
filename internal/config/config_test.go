package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.App.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q", cfg.App.ListenAddr)
	}
	if cfg.Limits.PerMinute != 30 || cfg.Limits.PerHour != 1500 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q", cfg.Store.Backend)
	}
	if cfg.Engine.SweepInterval != 30*time.Second || cfg.Engine.Retention != time.Hour {
		t.Errorf("engine = %+v", cfg.Engine)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RANKSCOUT_LISTEN_ADDR", ":9999")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("ENGINE_SWEEP_INTERVAL", "10s")
	t.Setenv("RANKSCOUT_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.App.ListenAddr != ":9999" {
		t.Errorf("listen addr = %q", cfg.App.ListenAddr)
	}
	if cfg.Limits.PerMinute != 5 {
		t.Errorf("per minute = %d", cfg.Limits.PerMinute)
	}
	if cfg.Engine.SweepInterval != 10*time.Second {
		t.Errorf("sweep = %v", cfg.Engine.SweepInterval)
	}
	if cfg.App.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.App.SlogLevel())
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_HOUR", "lots")
	t.Setenv("ENGINE_RETENTION", "soon")

	cfg := Load()
	if cfg.Limits.PerHour != 1500 {
		t.Errorf("per hour = %d, want the default", cfg.Limits.PerHour)
	}
	if cfg.Engine.Retention != time.Hour {
		t.Errorf("retention = %v, want the default", cfg.Engine.Retention)
	}
}
