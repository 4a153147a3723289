package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ALERT_CHECK_INTERVAL", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.StoreDriver != "file" {
		t.Errorf("StoreDriver = %q, want file", c.StoreDriver)
	}
	if c.AlertCheckInterval != time.Minute {
		t.Errorf("AlertCheckInterval = %s, want 1m", c.AlertCheckInterval)
	}
	if c.ReportSchedule != "0 9 * * *" || c.ReportTimezone != "UTC" {
		t.Errorf("unexpected report schedule %q %q", c.ReportSchedule, c.ReportTimezone)
	}
	if c.MetricsPort != 9090 {
		t.Errorf("MetricsPort = %d, want 9090", c.MetricsPort)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("ALERT_CHECK_INTERVAL", "15s")
	t.Setenv("DOBBY_API_KEY", "secret")
	t.Setenv("UPSTREAM_RATE_LIMIT", "2.5")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q, want sqlite", c.StoreDriver)
	}
	if c.AlertCheckInterval != 15*time.Second {
		t.Errorf("AlertCheckInterval = %s, want 15s", c.AlertCheckInterval)
	}
	if c.AIKey != "secret" {
		t.Errorf("AIKey = %q", c.AIKey)
	}
	if c.UpstreamRateLimit != 2.5 {
		t.Errorf("UpstreamRateLimit = %v", c.UpstreamRateLimit)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("ALERT_CHECK_INTERVAL", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
