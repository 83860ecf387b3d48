package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/diag"
	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/report"
	"example.com/peersgate/internal/store"
)

// Server coordinates HTTP handlers and manages temporary artifacts produced by
// decode requests.
type Server struct {
	artifacts   *ArtifactStore
	workDir     string
	cache       *lru.Cache[string, decodeOutcome]
	sem         *semaphore.Weighted
	history     *store.Store
	metrics     *common.Metrics
	networks    peersdat.MagicSet
	lang        report.Language
	maxUpload   int64
	allowBadSum bool
	started     time.Time
}

// decodeOutcome is what peersdat.Decode returned for one file.
type decodeOutcome struct {
	res *peersdat.Result
	err error
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "peersd-")
	if err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, decodeOutcome](cacheSize)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	networks := opts.Networks
	if networks == nil {
		networks = peersdat.KnownNetworks
	}
	s := &Server{
		artifacts:   &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:     workDir,
		cache:       cache,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		history:     opts.History,
		metrics:     common.NewMetrics(),
		networks:    networks,
		lang:        opts.Lang,
		maxUpload:   maxUpload,
		allowBadSum: opts.AllowBadChecksum,
		started:     time.Now(),
	}
	s.metrics.Start()
	log.Debugf("Server workspace %s, concurrency %d, cache %d", workDir,
		concurrency, cacheSize)
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	s.metrics.Stop()
	return os.RemoveAll(s.workDir)
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

// decode returns the cached outcome for digest or decodes data, bounded by
// the server concurrency.
func (s *Server) decode(r *http.Request, digest string, data []byte) (decodeOutcome, bool, error) {
	if out, ok := s.cache.Get(digest); ok {
		return out, true, nil
	}
	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		return decodeOutcome{}, false, err
	}
	defer s.sem.Release(1)

	res, err := peersdat.Decode(data, peersdat.WithMagics(s.networks))
	out := decodeOutcome{res: res, err: err}
	if res == nil {
		s.metrics.AddFailure(int64(len(data)))
	} else {
		s.metrics.AddFile(int64(len(data)), res.Records, res.TotalUnique())
	}
	s.cache.Add(digest, out)
	return out, false, nil
}

type decodeResponse struct {
	Summary    report.Summary  `json:"summary"`
	Acceptance diag.Acceptance `json:"acceptance"`
	Artifacts  []ArtifactRef   `json:"artifacts"`
	Cached     bool            `json:"cached"`
	StoredAt   *time.Time      `json:"storedAt,omitempty"`
}

type decodeError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	File  string `json:"file,omitempty"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	allowBad := s.allowBadSum
	if v := q.Get("allowBadChecksum"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid allowBadChecksum: %v", err), http.StatusBadRequest)
			return
		}
		allowBad = b
	}
	stream := q.Get("stream") == "true"

	data, name, err := s.readUpload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, common.ErrInputTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}
	digest := common.Sha256Hex(data)

	out, cached, err := s.decode(r, digest, data)
	if err != nil {
		http.Error(w, fmt.Sprintf("decode: %v", err), http.StatusServiceUnavailable)
		return
	}
	if out.res == nil {
		var kind peersdat.ErrorKind
		errors.As(out.err, &kind)
		log.Infof("Rejected %s (%s): %v", name, digest, out.err)
		writeJSON(w, http.StatusUnprocessableEntity, decodeError{
			Error: out.err.Error(),
			Kind:  string(kind),
			File:  name,
		})
		return
	}

	summary := report.NewSummary(name, digest, out.res)
	diags := diag.FromResult(name, out.res, out.err, diag.Options{AllowBadChecksum: allowBad})
	acc := diag.MakeAcceptance(diags)
	log.Infof("Decoded %s (%s): %d unique peers, checksum %s, cached %v",
		name, digest, summary.TotalUniquePeers, summary.Integrity, cached)

	var storedAt *time.Time
	if s.history != nil {
		entry, err := s.history.Put(summary)
		if err != nil {
			log.Errorf("Unable to store summary for %s: %v", digest, err)
		} else {
			storedAt = &entry.StoredAt
		}
	}

	if stream {
		s.streamDecode(w, summary, out.res, diags, acc)
		return
	}

	refs, err := s.writeArtifacts(summary, diags, acc)
	if err != nil {
		http.Error(w, fmt.Sprintf("write artifacts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, decodeResponse{
		Summary:    summary,
		Acceptance: acc,
		Artifacts:  refs,
		Cached:     cached,
		StoredAt:   storedAt,
	})
}

func (s *Server) streamDecode(w http.ResponseWriter, summary report.Summary, res *peersdat.Result, diags []diag.Diagnostic, acc diag.Acceptance) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	nd := NewNDJSONWriter(w)
	for _, entry := range res.Addresses.Entries() {
		if err := nd.WriteAddress(entry); err != nil {
			log.Debugf("Stream aborted: %v", err)
			return
		}
	}
	for _, d := range diags {
		if err := nd.WriteDiagnostic(d); err != nil {
			log.Debugf("Stream aborted: %v", err)
			return
		}
	}
	if err := nd.WriteSummary(summary, acc); err != nil {
		log.Debugf("Stream aborted: %v", err)
	}
}

func (s *Server) writeArtifacts(summary report.Summary, diags []diag.Diagnostic, acc diag.Acceptance) ([]ArtifactRef, error) {
	dir, err := os.MkdirTemp(s.workDir, "decode-")
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(summary.File), filepath.Ext(summary.File))
	if base == "" || base == "." {
		base = "peers"
	}

	steps := []struct {
		file  string
		kind  string
		write func(path string) error
	}{
		{file: base + ".summary.json", kind: "summary", write: func(p string) error {
			return report.SaveJSON(summary, p)
		}},
		{file: base + ".diagnostics.ndjson", kind: "diagnostics", write: func(p string) error {
			return diag.SaveNDJSON(p, diags)
		}},
		{file: base + ".acceptance.json", kind: "acceptance", write: func(p string) error {
			return diag.SaveAcceptanceJSON(acc, p)
		}},
		{file: base + ".report.pdf", kind: "report", write: func(p string) error {
			return report.SavePDF(summary, acc, p, report.PDFOptions{Lang: s.lang})
		}},
	}
	refs := make([]ArtifactRef, 0, len(steps))
	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		if err := step.write(path); err != nil {
			return nil, fmt.Errorf("%s: %w", step.kind, err)
		}
		art, err := s.addArtifact(path, step.file, "", step.kind)
		if err != nil {
			return nil, err
		}
		refs = append(refs, toRef(art))
	}
	return refs, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	digest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history"), "/")
	if digest != "" {
		entry, err := s.history.Get(strings.ToLower(digest))
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.history.List(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, struct {
		Entries []store.Entry `json:"entries"`
	}{Entries: entries})
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	disposition := fmt.Sprintf("attachment; filename=\"%s\"", art.Name)
	w.Header().Set("Content-Disposition", disposition)
	io.Copy(w, f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"decoded":   snap.Files,
		"failed":    snap.Failures,
		"records":   snap.Records,
		"addresses": snap.Addresses,
		"cached":    s.cache.Len(),
		"history":   s.history != nil,
	})
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".ndjson", ".jsonl":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
