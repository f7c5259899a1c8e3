// Package auditlog is Scout's durable, ordered, crash-resistant event
// record — the sole source of truth for accuracy and spend metrics.
package auditlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/scouthq/scout/internal/scoutlog"
	"github.com/scouthq/scout/internal/session"
	"github.com/scouthq/scout/internal/types"
)

const (
	// maxSizeBytes triggers rotation once the file reaches this size.
	maxSizeBytes = 10 * 1024 * 1024

	// defaultSyncLines and defaultSyncInterval set the fsync cadence:
	// fsync after every N lines or every T seconds, whichever first.
	defaultSyncLines    = 10
	defaultSyncInterval = time.Second
)

// DefaultPath returns the conventional audit log location, ~/.scout/audit.jsonl.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scout/audit.jsonl"
	}
	return filepath.Join(home, ".scout", "audit.jsonl")
}

// Log is an append-only JSON-Lines audit log. A Log owns one open file
// handle for its lifetime; concurrent writers within the process are
// serialized by mu, and a cross-process flock guards the same file against
// other processes.
type Log struct {
	path string

	mu             sync.Mutex
	f              *os.File
	linesSinceSync int
	lastSync       time.Time
}

// Open opens (creating if needed) the audit log at path, acquiring an
// exclusive flock for the lifetime of the Log.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("auditlog: creating directory for %s: %w", path, err)
	}

	// O_RDWR rather than O_WRONLY: rotation reads the file back through the
	// same descriptor to gzip it in place.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("auditlog: opening %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("auditlog: locking %s: %w", path, err)
	}

	return &Log{path: path, f: f, lastSync: time.Now()}, nil
}

// Append writes one event, serialized as a single-line JSON object plus a
// newline, in one call. It rotates the file first if it has reached
// maxSizeBytes, then fsyncs per the configured cadence. session_id and
// timestamp are stamped here if the caller left them zero.
func (l *Log) Append(event types.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.SessionID == "" {
		event.SessionID = session.ID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := l.rotateIfNeeded(); err != nil {
		scoutlog.Warnf("auditlog: rotation failed, continuing without rotating: %v", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("auditlog: marshaling event: %w", err)
	}
	line = append(line, '\n')

	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("auditlog: writing event: %w", err)
	}

	l.linesSinceSync++
	if l.linesSinceSync >= defaultSyncLines || time.Since(l.lastSync) >= defaultSyncInterval {
		if err := l.f.Sync(); err != nil {
			return fmt.Errorf("auditlog: fsync: %w", err)
		}
		l.linesSinceSync = 0
		l.lastSync = time.Now()
	}

	return nil
}

// rotateIfNeeded gzips the current file to a timestamped sibling and
// truncates it in place once it reaches maxSizeBytes. Must be called with
// mu held.
func (l *Log) rotateIfNeeded() error {
	info, err := l.f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.Size() < maxSizeBytes {
		return nil
	}

	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("pre-rotation sync: %w", err)
	}

	stem := strings.TrimSuffix(l.path, filepath.Ext(l.path))
	archivePath := fmt.Sprintf("%s_%s.jsonl.gz", stem, time.Now().UTC().Format("20060102_150405"))
	scoutlog.Debugf("auditlog: rotating %s (%d bytes) to %s", l.path, info.Size(), archivePath)

	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking for rotation read: %w", err)
	}

	archive, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", archivePath, err)
	}
	defer archive.Close()

	gz := gzip.NewWriter(archive)
	if _, err := io.Copy(gz, l.f); err != nil {
		gz.Close()
		return fmt.Errorf("compressing to %s: %w", archivePath, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip writer for %s: %w", archivePath, err)
	}

	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", l.path, err)
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking after truncate: %w", err)
	}

	emitEvent := types.AuditEvent{
		Timestamp: time.Now().UTC(),
		SessionID: session.ID(),
		Event:     types.EventRotation,
		Reason:    archivePath,
	}
	line, err := json.Marshal(emitEvent)
	if err == nil {
		l.f.Write(append(line, '\n'))
	}

	l.linesSinceSync = 0
	l.lastSync = time.Now()
	return nil
}

// Close performs a final flush, fsync, unlock and close.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.f.Sync(); err != nil {
		syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
		l.f.Close()
		return fmt.Errorf("auditlog: final sync: %w", err)
	}
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("auditlog: unlocking: %w", err)
	}
	return l.f.Close()
}

// Query returns every event at or after since (zero value matches all)
// whose Event equals eventType (empty string matches all), in write order.
// Reads stream line-by-line; lines that fail to parse are skipped with a
// warning rather than aborting the read.
func (l *Log) Query(since time.Time, eventType string) ([]types.AuditEvent, error) {
	var out []types.AuditEvent
	err := l.scan(func(e types.AuditEvent) {
		if !since.IsZero() && e.Timestamp.Before(since) {
			return
		}
		if eventType != "" && e.Event != eventType {
			return
		}
		out = append(out, e)
	})
	return out, err
}

// HourlySpend sums Cost over events in the last `hours` hours.
func (l *Log) HourlySpend(hours float64) (float64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(hours * float64(time.Hour)))
	var total float64
	err := l.scan(func(e types.AuditEvent) {
		if e.Timestamp.Before(cutoff) {
			return
		}
		total += e.Cost
	})
	return total, err
}

// LastEvents returns the last n events matching eventType (empty matches
// all), using a bounded ring buffer so the whole log is never materialized.
func (l *Log) LastEvents(n int, eventType string) ([]types.AuditEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	ring := make([]types.AuditEvent, 0, n)
	next := 0
	full := false

	err := l.scan(func(e types.AuditEvent) {
		if eventType != "" && e.Event != eventType {
			return
		}
		if len(ring) < n {
			ring = append(ring, e)
		} else {
			ring[next] = e
			full = true
		}
		next = (next + 1) % n
	})
	if err != nil {
		return nil, err
	}

	if !full {
		return ring, nil
	}

	ordered := make([]types.AuditEvent, n)
	for i := 0; i < n; i++ {
		ordered[i] = ring[(next+i)%n]
	}
	return ordered, nil
}

// AccuracyMetrics summarizes nav vs. validation-failure counts since the
// given time.
type AccuracyMetrics struct {
	TotalNav            int     `json:"total_nav"`
	ValidationFailCount int     `json:"validation_fail_count"`
	AccuracyPct         float64 `json:"accuracy_pct"`
}

func (l *Log) AccuracyMetrics(since time.Time) (AccuracyMetrics, error) {
	var m AccuracyMetrics
	err := l.scan(func(e types.AuditEvent) {
		if !since.IsZero() && e.Timestamp.Before(since) {
			return
		}
		switch e.Event {
		case types.EventNav:
			m.TotalNav++
		case types.EventValidationFail:
			m.ValidationFailCount++
		}
	})
	if err != nil {
		return m, err
	}
	if m.TotalNav > 0 {
		m.AccuracyPct = 100 * float64(m.TotalNav-m.ValidationFailCount) / float64(m.TotalNav)
	}
	return m, nil
}

// scan streams every line of the current log file through fn. Malformed
// lines are skipped with a warning, never aborting the scan. Readers open
// their own file handle and never take mu, so they never lock out writers.
func (l *Log) scan(fn func(types.AuditEvent)) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("auditlog: opening %s for read: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e types.AuditEvent
		if err := json.Unmarshal(line, &e); err != nil {
			scoutlog.Warnf("auditlog: skipping malformed line: %v", err)
			continue
		}
		fn(e)
	}
	return scanner.Err()
}
