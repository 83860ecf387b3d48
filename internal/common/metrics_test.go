package common

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMetricsConcurrentAdds(t *testing.T) {
	m := NewMetrics()
	m.SetTotalBytes(1000)
	m.Start()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddFile(90, 5, 3)
		}()
	}
	wg.Wait()
	m.AddFailure(100)
	m.Stop()

	snap := m.Snapshot()
	if snap.Files != 10 || snap.Failures != 1 {
		t.Fatalf("files/failures = %d/%d, want 10/1", snap.Files, snap.Failures)
	}
	if snap.Bytes != 1000 || snap.Records != 50 || snap.Addresses != 30 {
		t.Fatalf("bytes/records/addresses = %d/%d/%d", snap.Bytes, snap.Records, snap.Addresses)
	}
	if got := snap.Completion(); got != 1 {
		t.Fatalf("Completion = %v, want 1", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{3 * 1024 * 1024, "3.00 MiB"},
	}
	for _, tc := range tests {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatProgressLine(t *testing.T) {
	line := formatProgressLine(MetricsSnapshot{Bytes: 512, TotalBytes: 1024, Files: 2, Failures: 1, Duration: time.Second})
	if !strings.Contains(line, "50.00%") || !strings.Contains(line, "files=2") || !strings.Contains(line, "failed=1") {
		t.Fatalf("unexpected progress line %q", line)
	}
	line = formatProgressLine(MetricsSnapshot{Bytes: 10, Files: 1})
	if !strings.HasPrefix(line, "Processed:") {
		t.Fatalf("unexpected progress line %q", line)
	}
}

func TestStartProgressPrinterStops(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	m.Start()
	stop := StartProgressPrinter(&syncWriter{w: &buf}, m, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	stop()
	if noop := StartProgressPrinter(nil, m, time.Second); noop == nil {
		t.Fatalf("expected a no-op stop func")
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
