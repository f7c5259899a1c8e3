package auditlog

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scouthq/scout/internal/types"
)

func TestAppendAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	events := []types.AuditEvent{
		{Event: types.EventNav, Cost: 0.01},
		{Event: types.EventValidationFail, Cost: 0.02},
		{Event: types.EventNav, Cost: 0.03},
	}
	for _, e := range events {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := log.Query(time.Time{}, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query returned %d events, want 3", len(got))
	}
	for _, e := range got {
		if e.SessionID == "" {
			t.Error("expected session_id to be stamped")
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
	}
}

func TestQueryFiltersByEventTypeAndSince(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	old := time.Now().UTC().Add(-time.Hour)
	recent := time.Now().UTC()

	_ = log.Append(types.AuditEvent{Event: types.EventNav, Timestamp: old})
	_ = log.Append(types.AuditEvent{Event: types.EventNav, Timestamp: recent})
	_ = log.Append(types.AuditEvent{Event: types.EventValidationFail, Timestamp: recent})

	got, err := log.Query(recent.Add(-time.Minute), types.EventNav)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query(since, nav) returned %d events, want 1", len(got))
	}
}

func TestHourlySpend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	_ = log.Append(types.AuditEvent{Event: types.EventNav, Cost: 1.0})
	_ = log.Append(types.AuditEvent{Event: types.EventNav, Cost: 2.5})

	spend, err := log.HourlySpend(1)
	if err != nil {
		t.Fatalf("HourlySpend: %v", err)
	}
	if spend != 3.5 {
		t.Errorf("HourlySpend(1) = %v, want 3.5", spend)
	}
}

func TestLastEventsBoundedRing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	for i := 0; i < 25; i++ {
		_ = log.Append(types.AuditEvent{Event: types.EventNav, Reason: string(rune('a' + i%26))})
	}

	got, err := log.LastEvents(5, types.EventNav)
	if err != nil {
		t.Fatalf("LastEvents: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("LastEvents(5) returned %d, want 5", len(got))
	}
	// The last appended event should be last in the slice.
	want := string(rune('a' + 24%26))
	if got[len(got)-1].Reason != want {
		t.Errorf("LastEvents last element = %q, want %q", got[len(got)-1].Reason, want)
	}
}

func TestAccuracyMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	for i := 0; i < 10; i++ {
		_ = log.Append(types.AuditEvent{Event: types.EventNav})
	}
	for i := 0; i < 2; i++ {
		_ = log.Append(types.AuditEvent{Event: types.EventValidationFail})
	}

	m, err := log.AccuracyMetrics(time.Time{})
	if err != nil {
		t.Fatalf("AccuracyMetrics: %v", err)
	}
	if m.TotalNav != 10 {
		t.Errorf("TotalNav = %d, want 10", m.TotalNav)
	}
	if m.ValidationFailCount != 2 {
		t.Errorf("ValidationFailCount = %d, want 2", m.ValidationFailCount)
	}
	if m.AccuracyPct != 80 {
		t.Errorf("AccuracyPct = %v, want 80", m.AccuracyPct)
	}
}

func TestCorruptLinesSkippedNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = log.Append(types.AuditEvent{Event: types.EventNav, Cost: 1})
	log.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not valid json\n")
	f.Close()

	log2, err := Open(path)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer log2.Close()

	got, err := log2.Query(time.Time{}, "")
	if err != nil {
		t.Fatalf("Query after corruption: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query returned %d events, want 1 (corrupt line skipped)", len(got))
	}
}

func TestRotationAtSizeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	// Pad the file past maxSizeBytes directly, bypassing Append's per-line
	// cost, to exercise rotateIfNeeded without writing ~10MB of JSON events.
	log.mu.Lock()
	if _, err := log.f.Write(make([]byte, maxSizeBytes)); err != nil {
		log.mu.Unlock()
		t.Fatalf("pre-fill: %v", err)
	}
	log.mu.Unlock()

	if err := log.Append(types.AuditEvent{Event: types.EventNav, Cost: 1}); err != nil {
		t.Fatalf("Append after fill: %v", err)
	}

	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	var archive string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jsonl.gz") {
			archive = filepath.Join(dir, e.Name())
		}
	}
	if archive == "" {
		t.Fatal("expected a rotated .jsonl.gz archive after crossing the size threshold")
	}

	gzf, err := os.Open(archive)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer gzf.Close()
	gz, err := gzip.NewReader(gzf)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(data) < maxSizeBytes {
		t.Errorf("archived data is %d bytes, want at least %d", len(data), maxSizeBytes)
	}
}

func TestQuerySkipsEmptyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	got, err := log.Query(time.Time{}, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query on blank-only file returned %d events, want 0", len(got))
	}
}
