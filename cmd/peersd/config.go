package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/peersgate/internal/report"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
}

type config struct {
	Port             int               `yaml:"port"`
	StorageDir       string            `yaml:"storageDir"`
	Concurrency      int               `yaml:"concurrency"`
	CacheSize        int               `yaml:"cacheSize"`
	MaxUploadMB      int               `yaml:"maxUploadMB"`
	AllowBadChecksum bool              `yaml:"allowBadChecksum"`
	History          *bool             `yaml:"history"`
	Networks         map[string]string `yaml:"networks"`
	ReplaceNetworks  bool              `yaml:"replaceNetworks"`
	Lang             string            `yaml:"lang"`
	Logs             logConfig         `yaml:"logs"`
}

// historyEnabled reports whether decoded summaries are persisted.  History
// is on unless explicitly disabled.
func (c config) historyEnabled() bool {
	return c.History == nil || *c.History
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "data"
	}
	cfg.StorageDir = resolvePath(cfg.StorageDir)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	lang, err := report.ParseLanguage(cfg.Lang)
	if err != nil {
		return cfg, err
	}
	cfg.Lang = string(lang)
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	} else {
		cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	if cfg.Logs.Level == "" {
		cfg.Logs.Level = "info"
	}
	return cfg, nil
}
