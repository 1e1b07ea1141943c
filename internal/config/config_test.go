package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "osprey.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "testsrv"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Name != "testsrv" {
		t.Fatalf("name = %q", cfg.Server.Name)
	}
	if cfg.Network.KeepAliveInterval != time.Second {
		t.Fatalf("keep-alive default = %s", cfg.Network.KeepAliveInterval)
	}
	if cfg.Simulation.MaxMessagesPerTick != 10000 {
		t.Fatalf("drain cap default = %d", cfg.Simulation.MaxMessagesPerTick)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
[network]
keep_alive_interval = "250ms"
drop_threshold = "2s"

[simulation]
tick_rate = "20ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.KeepAliveInterval != 250*time.Millisecond {
		t.Fatalf("keep-alive = %s", cfg.Network.KeepAliveInterval)
	}
	if cfg.Simulation.TickRate != 20*time.Millisecond {
		t.Fatalf("tick rate = %s", cfg.Simulation.TickRate)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
[network]
keep_alive_interval = "5s"
drop_threshold = "1s"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("drop threshold below keep-alive accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
