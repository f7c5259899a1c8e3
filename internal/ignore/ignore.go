// Package ignore resolves whether a path participates in Scout processing,
// using built-in rules plus user patterns with gitignore-style semantics.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/scouthq/scout/internal/scoutlog"
)

// IgnoreFileName is the name of the user pattern file in the repo root.
const IgnoreFileName = ".livingDocIgnore"

// builtinPatterns are always ignored, regardless of user configuration.
// These cover the directories Scout itself writes to (so it never
// recurses into its own bookkeeping) and the usual noise directories.
var builtinPatterns = []string{
	"**/.git/**",
	"**/.git",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/.scout/**",
	"**/*.pyc",
	"**/.venv/**",
	"**/dist/**",
	"**/build/**",
}

// pattern pairs a raw glob with its compiled, anchored regex. Compilation
// happens once at load time; Matches never recompiles.
type pattern struct {
	raw string
	re  *regexp.Regexp
}

// Matcher holds the three compiled pattern lists: built-ins, positive user
// patterns, and negative (negated) user patterns.
type Matcher struct {
	repoRoot string
	builtin  []pattern
	positive []pattern
	negative []pattern
}

// New creates a Matcher rooted at repoRoot and loads .livingDocIgnore from
// it. IO errors reading the ignore file are swallowed; only built-ins apply
// in that case.
func New(repoRoot string) (*Matcher, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		abs = repoRoot
	}

	m := &Matcher{
		repoRoot: abs,
		builtin:  compileAll(builtinPatterns),
	}
	m.Reload(abs)
	return m, nil
}

// Reload re-reads .livingDocIgnore from repoRoot and replaces the compiled
// positive/negative pattern lists, one after the other and without a lock.
// Built-ins are untouched.
func (m *Matcher) Reload(repoRoot string) {
	m.repoRoot = repoRoot
	positive, negative := loadUserPatterns(filepath.Join(repoRoot, IgnoreFileName))
	m.positive = compileAll(positive)
	m.negative = compileAll(negative)
	scoutlog.Debugf("ignore: loaded %d positive, %d negative pattern(s) from %s", len(m.positive), len(m.negative), repoRoot)
}

// loadUserPatterns reads the ignore file, skipping blank lines and comments
// and splitting on leading "!" for negation. Any read error yields two nil
// slices — built-ins-only behavior.
func loadUserPatterns(path string) (positive, negative []string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // read-only, errors non-critical
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			negative = append(negative, strings.TrimPrefix(line, "!"))
			continue
		}
		positive = append(positive, line)
	}
	return positive, negative
}

// compileAll compiles each glob once, skipping any that fail to compile.
func compileAll(globs []string) []pattern {
	compiled := make([]pattern, 0, len(globs))
	for _, g := range globs {
		re, err := globToRegex(g)
		if err != nil {
			continue
		}
		compiled = append(compiled, pattern{raw: g, re: re})
	}
	return compiled
}

// CompileGlob exposes the gitignore-flavored glob compiler for other
// packages that need the same matching semantics against a single pattern
// (e.g. the configuration resolver's trigger patterns).
func CompileGlob(glob string) (*regexp.Regexp, error) {
	return globToRegex(glob)
}

// globToRegex compiles a gitignore-flavored glob to an anchored regex.
// "*" matches any run of characters except "/"; "**" matches zero or more
// path segments; "?" matches exactly one character; everything else is
// matched literally.
func globToRegex(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				i++
				// "**/" means "zero or more whole segments".
				if i+1 < len(runes) && runes[i+1] == '/' {
					b.WriteString("(?:.*/)?")
					i++
				} else {
					b.WriteString(".*")
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Matches decides whether path participates in Scout processing. Matching
// proceeds in three ordered passes: built-ins (immediate true), positive
// user patterns (mark ignored), negative user patterns (negation wins).
// Both the absolute normalized path and the repo-relative path are tested
// against every pattern.
func (m *Matcher) Matches(path string) bool {
	abs, rel := m.normalize(path)

	for _, p := range m.builtin {
		if p.re.MatchString(abs) || p.re.MatchString(rel) {
			return true
		}
	}

	ignored := false
	for _, p := range m.positive {
		if p.re.MatchString(abs) || p.re.MatchString(rel) {
			ignored = true
			break
		}
	}

	if ignored {
		for _, p := range m.negative {
			if p.re.MatchString(abs) || p.re.MatchString(rel) {
				ignored = false
				break
			}
		}
	}

	return ignored
}

// normalize returns the forward-slashed absolute path (resolved against
// repoRoot if relative, with "~" expanded) and its repo-relative form.
func (m *Matcher) normalize(path string) (abs, rel string) {
	p := path
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}

	if !filepath.IsAbs(p) {
		p = filepath.Join(m.repoRoot, p)
	}
	p = filepath.Clean(p)

	r, err := filepath.Rel(m.repoRoot, p)
	if err != nil {
		r = p
	}

	return filepath.ToSlash(p), filepath.ToSlash(r)
}

// Builtins returns the raw patterns compiled into every Matcher, for
// diagnostics (e.g. "scout config --show-all").
func Builtins() []string {
	out := make([]string, len(builtinPatterns))
	copy(out, builtinPatterns)
	return out
}

// ErrNoIgnoreFile is returned by HasIgnoreFile to distinguish "no user
// patterns were found" from a matcher constructed with none on purpose.
// The Matcher itself never returns it — loadUserPatterns swallows the error.
// Callers that want to report the distinction use HasIgnoreFile instead.
var ErrNoIgnoreFile = fmt.Errorf("no %s file found", IgnoreFileName)

// HasIgnoreFile reports whether repoRoot has a user pattern file, returning
// ErrNoIgnoreFile if not (or any other error encountered while checking).
func HasIgnoreFile(repoRoot string) error {
	_, err := os.Stat(filepath.Join(repoRoot, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoIgnoreFile
		}
		return err
	}
	return nil
}
