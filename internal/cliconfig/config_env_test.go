package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("SNODAR_BAUD", "57600")
	t.Setenv("SNODAR_MEASUREMENT_INTERVAL", "45s")
	t.Setenv("SNODAR_VERBOSE", "1")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err != nil {
		t.Fatalf("ApplyEnvConfig returned error: %v", err)
	}
	if cfg.Baud != 57600 {
		t.Errorf("Baud = %d, want 57600", cfg.Baud)
	}
	if cfg.MeasurementInterval != 45*time.Second {
		t.Errorf("MeasurementInterval = %v, want 45s", cfg.MeasurementInterval)
	}
	if !cfg.Verbose {
		t.Error("Verbose not applied from env")
	}
}

func TestApplyEnvConfigFlagPrecedence(t *testing.T) {
	t.Setenv("SNODAR_BAUD", "57600")

	cfg := DefaultConfig()
	cfg.Baud = 9600 // set by flag
	changed := map[string]bool{"baud": true}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig returned error: %v", err)
	}
	if cfg.Baud != 9600 {
		t.Errorf("env overrode flag: Baud = %d", cfg.Baud)
	}
}

func TestApplyEnvConfigBadValue(t *testing.T) {
	t.Setenv("SNODAR_MEASUREMENT_INTERVAL", "whenever")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err == nil {
		t.Error("ApplyEnvConfig accepted a bad duration")
	}
}
