// Package symbols enumerates top-level symbols in a source file and
// extracts source snippets for them.
package symbols

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/scouthq/scout/internal/scoutlog"
	"github.com/scouthq/scout/internal/types"
)

// Extractor parses a source file's content and returns its top-level
// symbols, plus methods defined directly in a class body (KindMethod). Other
// nested definitions (a closure inside a function or method) are not
// enumerated separately — they live within their enclosing symbol's line
// range. A syntax error yields an empty list and a
// logged warning, never an error return.
type Extractor interface {
	Extensions() []string
	Extract(ctx context.Context, content []byte, filePath string) []types.Symbol
}

var registry = []Extractor{
	newPythonExtractor(),
	newGoExtractor(),
}

// ForFile returns the Extractor registered for filePath's extension, or the
// regex-based fallback extractor if none is registered for it.
func ForFile(filePath string) Extractor {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, e := range registry {
		for _, want := range e.Extensions() {
			if ext == want {
				return e
			}
		}
	}
	return fallbackExtractor{}
}

// Extract dispatches to the extractor registered for filePath's extension
// and validates the content is well-formed UTF-8 first; invalid bytes are
// treated as a decode failure (an empty result, logged).
func Extract(ctx context.Context, content []byte, filePath string) []types.Symbol {
	if !utf8.Valid(content) {
		scoutlog.Warnf("symbols: %s is not valid UTF-8, returning no symbols", filePath)
		return nil
	}
	return ForFile(filePath).Extract(ctx, content, filePath)
}

// Snippet returns the raw source lines [lineStart, lineEnd] (1-based,
// inclusive, clamped to the file's bounds) joined with newlines.
func Snippet(content []byte, lineStart, lineEnd int) string {
	lines := strings.Split(string(content), "\n")
	// A trailing newline ends the last line; it does not start another one.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if lineStart < 1 {
		lineStart = 1
	}
	if lineEnd > len(lines) {
		lineEnd = len(lines)
	}
	if lineStart > lineEnd || lineStart > len(lines) {
		return ""
	}
	return strings.Join(lines[lineStart-1:lineEnd], "\n")
}
