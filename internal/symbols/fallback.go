package symbols

import (
	"bufio"
	"bytes"
	"context"
	"regexp"

	"github.com/scouthq/scout/internal/types"
)

// fallbackExtractor handles any extension with no tree-sitter grammar
// registered, by grepping for anchored definition forms — the same literal
// def/class patterns the validator's Gate 3 uses, plus a Go-style func form.
type fallbackExtractor struct{}

var (
	fallbackDefRe   = regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`)
	fallbackFuncRe  = regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`)
	fallbackClassRe = regexp.MustCompile(`^\s*class\s+(\w+)\s*[:(]`)
)

func (fallbackExtractor) Extensions() []string { return nil }

// Extract scans line by line for a "def name(", "func name(", or "class name"
// form at the start of a line (leading whitespace allowed, so indented
// definitions are recorded too) and records each as a single-line symbol (line_start ==
// line_end); it has no AST, so it cannot determine where a body ends.
func (fallbackExtractor) Extract(_ context.Context, content []byte, _ string) []types.Symbol {
	var out []types.Symbol
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := fallbackDefRe.FindStringSubmatch(line); m != nil {
			out = append(out, types.Symbol{Name: m[1], Kind: types.KindFunction, LineStart: lineNo, LineEnd: lineNo})
			continue
		}
		if m := fallbackFuncRe.FindStringSubmatch(line); m != nil {
			out = append(out, types.Symbol{Name: m[1], Kind: types.KindFunction, LineStart: lineNo, LineEnd: lineNo})
			continue
		}
		if m := fallbackClassRe.FindStringSubmatch(line); m != nil {
			out = append(out, types.Symbol{Name: m[1], Kind: types.KindClass, LineStart: lineNo, LineEnd: lineNo})
		}
	}
	return out
}
