package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/report"
	"example.com/peersgate/internal/store"
)

const (
	defaultCacheSize      = 128
	defaultMaxUploadBytes = 64 << 20
	defaultHistoryLimit   = 50
)

// Options configures server creation.
type Options struct {
	StorageDir string

	// Concurrency bounds simultaneous decodes; zero selects NumCPU.
	Concurrency int

	// CacheSize is the number of decode results kept by file digest.
	CacheSize int

	MaxUploadBytes int64

	// AllowBadChecksum is the default for requests that do not set
	// allowBadChecksum themselves.
	AllowBadChecksum bool

	// Networks replaces the accepted magics; nil selects
	// peersdat.KnownNetworks.
	Networks peersdat.MagicSet

	Lang report.Language

	// History records every decoded summary when set.
	History *store.Store
}

// ParseNetworks builds a magic set from name to hex pairs.  The known
// networks are included unless replace is set.
func ParseNetworks(extra map[string]string, replace bool) (peersdat.MagicSet, error) {
	set := peersdat.MagicSet{}
	if !replace {
		set = peersdat.KnownNetworks.Clone()
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, errors.New("network entry missing name")
		}
		magic, err := peersdat.ParseMagic(extra[name])
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", trimmed, err)
		}
		if prev, ok := set[magic]; ok && prev != trimmed && extra[prev] != "" {
			return nil, fmt.Errorf("networks %s and %s share magic %s", prev, trimmed, magic)
		}
		set[magic] = trimmed
	}
	if len(set) == 0 {
		return nil, errors.New("no networks configured")
	}
	return set, nil
}

// ParseNetworkFlag splits a NAME=HEX command line value.
func ParseNetworkFlag(v string) (string, string, error) {
	name, hex, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(hex) == "" {
		return "", "", fmt.Errorf("network %q: want NAME=HEX", v)
	}
	return strings.TrimSpace(name), strings.TrimSpace(hex), nil
}
