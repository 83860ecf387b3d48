package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"example.com/peersgate/internal/diag"
	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/report"
)

// Stream record types.
const (
	streamAddress    = "address"
	streamDiagnostic = "diagnostic"
	streamSummary    = "summary"
)

// NDJSONWriter streams newline-delimited JSON objects to the underlying writer.
type NDJSONWriter struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
}

// NewNDJSONWriter wraps the provided ResponseWriter with a helper that writes
// newline-delimited JSON. If the writer supports http.Flusher, Flush will be
// invoked after every write to push bytes to the client promptly.
func NewNDJSONWriter(w http.ResponseWriter) *NDJSONWriter {
	var flusher http.Flusher
	if f, ok := w.(http.Flusher); ok {
		flusher = f
	}
	return &NDJSONWriter{writer: w, flusher: flusher}
}

func (w *NDJSONWriter) WriteAddress(entry peersdat.AddressEntry) error {
	return w.WriteObject(struct {
		Type    string `json:"type"`
		Address string `json:"address"`
		Family  string `json:"family"`
	}{streamAddress, entry.Text, entry.Family.String()})
}

func (w *NDJSONWriter) WriteDiagnostic(d diag.Diagnostic) error {
	return w.WriteObject(struct {
		Type string `json:"type"`
		diag.Diagnostic
	}{streamDiagnostic, d})
}

func (w *NDJSONWriter) WriteSummary(s report.Summary, acc diag.Acceptance) error {
	return w.WriteObject(struct {
		Type       string          `json:"type"`
		Summary    report.Summary  `json:"summary"`
		Acceptance diag.Acceptance `json:"acceptance"`
	}{streamSummary, s, acc})
}

// WriteObject marshals the provided value to JSON, writes it followed by a
// newline and flushes the response.
func (w *NDJSONWriter) WriteObject(v any) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
