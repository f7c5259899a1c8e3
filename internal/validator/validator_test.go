package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scouthq/scout/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scenario 1: happy path.
func TestValidateHappyPath(t *testing.T) {
	root := t.TempDir()
	src := "import os\n\n\ndef foo():\n    pass\n\n\ndef bar(x):\n    return x + 1\n"
	writeFile(t, filepath.Join(root, "src/foo.py"), src)

	result := Validate(types.Suggestion{File: "src/foo.py", Symbol: "bar", Line: 8, Confidence: 90}, root)

	if !result.IsValid {
		t.Fatalf("expected valid, got error_code=%s", result.ErrorCode)
	}
	if result.ErrorCode != types.ErrValid {
		t.Errorf("ErrorCode = %q, want VALID", result.ErrorCode)
	}
	if result.ActualLine != 8 {
		t.Errorf("ActualLine = %d, want 8", result.ActualLine)
	}
	if len(result.Alternatives) != 0 {
		t.Errorf("Alternatives = %v, want empty", result.Alternatives)
	}
	wantFile := filepath.Join(root, "src/foo.py")
	if result.ActualFile != wantFile {
		t.Errorf("ActualFile = %q, want %q", result.ActualFile, wantFile)
	}
}

// Scenario 2: low confidence short-circuit.
func TestValidateLowConfidenceShortCircuit(t *testing.T) {
	root := t.TempDir() // intentionally empty — no file I/O should occur
	result := Validate(types.Suggestion{File: "anything.py", Symbol: "x", Line: 1, Confidence: 50}, root)

	if result.IsValid {
		t.Error("expected invalid result for low confidence")
	}
	if result.ErrorCode != types.ErrLowConfidence {
		t.Errorf("ErrorCode = %q, want LOW_CONFIDENCE", result.ErrorCode)
	}
	if len(result.Alternatives) != 0 {
		t.Errorf("Alternatives = %v, want empty", result.Alternatives)
	}
}

// Scenario 3: file not found, with a near neighbor.
func TestValidateFileNotFoundWithNeighbor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src/validator.py"), "def run():\n    pass\n")

	result := Validate(types.Suggestion{File: "src/validatr.py", Symbol: "run", Line: 1, Confidence: 95}, root)

	if result.IsValid {
		t.Fatal("expected invalid result for missing file")
	}
	if result.ErrorCode != types.ErrFileNotFound {
		t.Errorf("ErrorCode = %q, want FILE_NOT_FOUND", result.ErrorCode)
	}
	found := false
	for _, alt := range result.Alternatives {
		if alt == "src/validator.py" {
			found = true
		}
	}
	if !found {
		t.Errorf("Alternatives = %v, want to contain %q", result.Alternatives, "src/validator.py")
	}
}

// Scenario 4: symbol missing, similar symbol present.
func TestValidateSymbolNotFoundWithSimilar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proc.py"), "def process_file(path):\n    pass\n")

	result := Validate(types.Suggestion{File: "proc.py", Symbol: "proces_file", Line: 1, Confidence: 90}, root)

	if result.IsValid {
		t.Fatal("expected invalid result for missing symbol")
	}
	if result.ErrorCode != types.ErrSymbolNotFound {
		t.Errorf("ErrorCode = %q, want SYMBOL_NOT_FOUND", result.ErrorCode)
	}
	if result.ActualFile == "" {
		t.Error("expected ActualFile to be populated even on symbol miss")
	}
	found := false
	for _, alt := range result.Alternatives {
		if alt == "process_file" {
			found = true
		}
	}
	if !found {
		t.Errorf("Alternatives = %v, want to contain %q", result.Alternatives, "process_file")
	}
}

// Scenario 5: line mismatch.
func TestValidateLineMismatch(t *testing.T) {
	root := t.TempDir()
	src := "x = 1\n" // pad with blank lines to push the def to line 17
	for i := 0; i < 15; i++ {
		src += "\n"
	}
	src += "def target():\n    pass\n"
	writeFile(t, filepath.Join(root, "m.py"), src)

	result := Validate(types.Suggestion{File: "m.py", Symbol: "target", Line: 42, Confidence: 90}, root)

	if result.IsValid {
		t.Fatal("expected invalid result for line mismatch")
	}
	if result.ErrorCode != types.ErrLineMismatch {
		t.Errorf("ErrorCode = %q, want LINE_MISMATCH", result.ErrorCode)
	}
	if result.ActualLine != 17 {
		t.Errorf("ActualLine = %d, want 17", result.ActualLine)
	}
	if len(result.Alternatives) != 1 {
		t.Fatalf("Alternatives = %v, want exactly one corrected suggestion", result.Alternatives)
	}
}

func TestValidateSymlinkLoop(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	if err := os.Symlink(b, a); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(a, b); err != nil {
		t.Fatal(err)
	}

	result := Validate(types.Suggestion{File: "a", Symbol: "x", Confidence: 90}, root)

	if result.ErrorCode != types.ErrSymlinkLoop {
		t.Errorf("ErrorCode = %q, want SYMLINK_LOOP", result.ErrorCode)
	}
	if result.ActualFile != "" {
		t.Errorf("ActualFile = %q, want empty on symlink loop", result.ActualFile)
	}
}

func TestValidateSymlinkChainNoCycleResolves(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.py"), "def handler():\n    pass\n")

	mid := filepath.Join(root, "mid.py")
	entry := filepath.Join(root, "entry.py")
	if err := os.Symlink(filepath.Join(root, "real.py"), mid); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(mid, entry); err != nil {
		t.Fatal(err)
	}

	result := Validate(types.Suggestion{File: "entry.py", Symbol: "handler", Line: 1, Confidence: 90}, root)

	if !result.IsValid {
		t.Errorf("expected a two-hop non-cyclic symlink chain to resolve, got error_code=%s", result.ErrorCode)
	}
}

func TestValidateNoSimilarAlternativesIsEmpty(t *testing.T) {
	root := t.TempDir()
	result := Validate(types.Suggestion{File: "zzz_totally_unrelated_qqq.py", Symbol: "x", Confidence: 95}, root)

	if result.ErrorCode != types.ErrFileNotFound {
		t.Fatalf("ErrorCode = %q, want FILE_NOT_FOUND", result.ErrorCode)
	}
	if len(result.Alternatives) != 0 {
		t.Errorf("Alternatives = %v, want empty when nothing clears the similarity threshold", result.Alternatives)
	}
}

func TestValidateSuccessNeverInflatesConfidence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m.py"), "def thing():\n    pass\n")

	result := Validate(types.Suggestion{File: "m.py", Symbol: "thing", Line: 1, Confidence: 77}, root)

	if result.AdjustedConfidence != 77 {
		t.Errorf("AdjustedConfidence = %d, want unchanged 77", result.AdjustedConfidence)
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1.0},
		{"", "abc", 0.0},
		{"abc", "", 0.0},
		{"", "", 1.0},
	}
	for _, c := range cases {
		if got := similarity(c.a, c.b); got != c.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}

	if got := similarity("validatr", "validator"); got < similarityThreshold {
		t.Errorf("similarity(validatr, validator) = %v, want >= %v", got, similarityThreshold)
	}
}
