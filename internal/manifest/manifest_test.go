package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTypeOf(t *testing.T) {
	tests := map[string]string{
		"peers.dat":         TypePeers,
		"PEERS.DAT":         TypePeers,
		"out/summary.json":  TypeJSON,
		"diagnostics.jsonl": TypeNDJSON,
		"stream.ndjson":     TypeNDJSON,
		"report.pdf":        TypePDF,
		"notes.txt":         TypeOther,
		"no-extension":      TypeOther,
	}
	for path, want := range tests {
		if got := TypeOf(path); got != want {
			t.Errorf("TypeOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestBuildSaveLoad(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.json":    `{"ok":true}`,
		"a.dat":     "peers",
		"sub/c.pdf": "%PDF-",
	}
	var paths []string
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		paths = append(paths, p)
	}

	m, err := Build(dir, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(m.Items))
	}
	wantOrder := []struct{ path, typ string }{
		{"a.dat", TypePeers},
		{"b.json", TypeJSON},
		{"sub/c.pdf", TypePDF},
	}
	for i, w := range wantOrder {
		if m.Items[i].Path != w.path || m.Items[i].Type != w.typ {
			t.Fatalf("item %d = %+v, want %s/%s", i, m.Items[i], w.path, w.typ)
		}
	}
	if m.Items[0].Size != 5 || len(m.Items[0].Sha256) != 64 {
		t.Fatalf("unexpected first item %+v", m.Items[0])
	}

	out := filepath.Join(dir, "manifest.json")
	if err := Save(m, out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ShaAlgo != "sha256" || len(loaded.Items) != 3 || loaded.Items[2] != m.Items[2] {
		t.Fatalf("unexpected loaded manifest %+v", loaded)
	}
}

func TestBuildMissingFile(t *testing.T) {
	if _, err := Build("", []string{filepath.Join(t.TempDir(), "missing.dat")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
