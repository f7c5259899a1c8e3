package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/scouthq/scout/internal/auditlog"
	"github.com/scouthq/scout/internal/config"
	"github.com/scouthq/scout/internal/types"
)

// Scenario 6: a call that exceeds the default per-event limit is denied, and the
// caller's resulting budget_denied audit event is queryable.
func TestShouldProcessDenialIsAuditable(t *testing.T) {
	cfg := config.Default()

	if cfg.ShouldProcess(0.60, "src/foo.py", 0.0) {
		t.Fatal("expected ShouldProcess(0.60, ...) to be denied under the 0.50 default per-event limit")
	}

	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := auditlog.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	if err := log.Append(types.AuditEvent{
		Timestamp: time.Now().UTC(),
		Event:     types.EventBudgetDenied,
		Files:     []string{"src/foo.py"},
		Cost:      0.60,
		Reason:    "exceeds per-event limit",
	}); err != nil {
		t.Fatal(err)
	}

	events, err := log.Query(time.Time{}, types.EventBudgetDenied)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("Query(budget_denied) = %d events, want 1", len(events))
	}
	if events[0].Cost != 0.60 {
		t.Errorf("Cost = %v, want 0.60", events[0].Cost)
	}
	if len(events[0].Files) != 1 || events[0].Files[0] != "src/foo.py" {
		t.Errorf("Files = %v, want [src/foo.py]", events[0].Files)
	}
}
