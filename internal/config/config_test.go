package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PollInterval != 8*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir is empty")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LECTERN_API_URL", "https://qa.example.edu")
	t.Setenv("LECTERN_POLL_INTERVAL_SECONDS", "30")
	t.Setenv("LECTERN_DATA_DIR", "/tmp/lectern-test")

	cfg := Load()
	if cfg.APIURL != "https://qa.example.edu" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.DataDir != "/tmp/lectern-test" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	t.Setenv("LECTERN_POLL_INTERVAL_SECONDS", "soon")
	if cfg := Load(); cfg.PollInterval != 8*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
}
