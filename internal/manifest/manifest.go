package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"example.com/peersgate/internal/common"
)

// Item types recorded in a manifest.
const (
	TypePeers  = "peers"
	TypeJSON   = "json"
	TypeNDJSON = "ndjson"
	TypePDF    = "pdf"
	TypeOther  = "other"
)

type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes every path.  Paths are recorded relative to base when base is
// not empty; items are sorted by path.
func Build(base string, paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, err
		}
		rel := p
		if base != "" {
			if r, err := filepath.Rel(base, p); err == nil {
				rel = filepath.ToSlash(r)
			}
		}
		m.Items = append(m.Items, Item{Path: rel, Size: sz, Sha256: hex, Type: TypeOf(p)})
	}
	sort.Slice(m.Items, func(i, j int) bool { return m.Items[i].Path < m.Items[j].Path })
	return m, nil
}

// TypeOf classifies a path by extension.
func TypeOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat", ".peers":
		return TypePeers
	case ".json":
		return TypeJSON
	case ".jsonl", ".ndjson":
		return TypeNDJSON
	case ".pdf":
		return TypePDF
	}
	return TypeOther
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
