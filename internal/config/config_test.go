package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with missing file should fall back to defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("got port %d, want 8080", cfg.Port)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("got ping period %v, want 54s", cfg.PingPeriod)
	}
	if cfg.TypingTTL != 5*time.Second {
		t.Errorf("got typing ttl %v, want 5s", cfg.TypingTTL)
	}
	if cfg.SendLimit != 20 {
		t.Errorf("got send limit %d, want 20", cfg.SendLimit)
	}
	if cfg.HistoryDSN == "" {
		t.Error("history dsn default missing")
	}
}
