package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Port != 8080 || cfg.CacheSize != 128 || cfg.MaxUploadMB != 64 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Concurrency != runtime.NumCPU() {
		t.Fatalf("concurrency = %d", cfg.Concurrency)
	}
	if cfg.StorageDir != filepath.Join(base, "data") {
		t.Fatalf("storageDir = %q", cfg.StorageDir)
	}
	if cfg.Logs.Directory != filepath.Join(base, "data", "logs") || cfg.Logs.Level != "info" {
		t.Fatalf("unexpected log config %+v", cfg.Logs)
	}
	if cfg.Lang != "en" || !cfg.historyEnabled() {
		t.Fatalf("lang %q history %v", cfg.Lang, cfg.historyEnabled())
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `
port: 9090
storageDir: /srv/peers
history: false
lang: tr
allowBadChecksum: true
networks:
  devnet: deadbeef
logs:
  directory: logs
  level: debug
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9090 || cfg.StorageDir != filepath.Clean("/srv/peers") {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.historyEnabled() || !cfg.AllowBadChecksum || cfg.Lang != "tr" {
		t.Fatalf("unexpected flags %+v", cfg)
	}
	if cfg.Networks["devnet"] != "deadbeef" {
		t.Fatalf("networks = %v", cfg.Networks)
	}
	if cfg.Logs.Directory != filepath.Join(filepath.Dir(path), "logs") {
		t.Fatalf("log dir = %q", cfg.Logs.Directory)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "prot: 80\n",
		"bad port":      "port: 70000\n",
		"bad lang":      "lang: klingon\n",
		"bad yaml":      "port: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSetLogLevels(t *testing.T) {
	if err := setLogLevels("debug"); err != nil {
		t.Fatalf("setLogLevels: %v", err)
	}
	if err := setLogLevels("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if got := supportedSubsystems(); len(got) != 4 || got[0] != "PDAT" {
		t.Fatalf("subsystems = %v", got)
	}
}
