// Package validator implements Scout's five-gate validation pipeline: given
// a structured suggestion and a repo root, it returns a ValidationResult
// computed entirely from the filesystem, with no LLM calls.
package validator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/scouthq/scout/internal/symbols"
	"github.com/scouthq/scout/internal/types"
)

// confidenceFloor is Gate 1's threshold: below this, the validator refuses
// to spend filesystem cycles on a self-declared guess.
const confidenceFloor = 70

// similarityThreshold is the minimum Levenshtein similarity for a candidate
// (filename or symbol) to be offered as an alternative.
const similarityThreshold = 0.3

const maxAlternatives = 5

var errSymlinkLoop = errors.New("symlink loop")

// Validate runs the five-gate pipeline described by the core's validation
// contract. Every gate is strictly cheaper than the next; the first failed
// gate determines the terminal error code.
func Validate(s types.Suggestion, repoRoot string) types.ValidationResult {
	start := time.Now()
	result := types.ValidationResult{Alternatives: []string{}}

	// Gate 1 — confidence floor. Zero filesystem reads below this point.
	if s.Confidence < confidenceFloor {
		result.IsValid = false
		result.ErrorCode = types.ErrLowConfidence
		result.AdjustedConfidence = s.Confidence
		result.ValidationTimeMs = elapsedMs(start)
		return result
	}

	// Gate 2 — path resolution and existence.
	actualFile, errCode, alternatives := resolveFile(s.File, repoRoot)
	if errCode != types.ErrValid {
		result.IsValid = false
		result.ErrorCode = errCode
		result.AdjustedConfidence = s.Confidence
		if alternatives != nil {
			result.Alternatives = alternatives
		}
		result.ValidationTimeMs = elapsedMs(start)
		return result
	}
	result.ActualFile = actualFile

	content, err := os.ReadFile(actualFile)
	if err != nil {
		result.IsValid = false
		result.ErrorCode = types.ErrIO
		result.AdjustedConfidence = s.Confidence
		result.ValidationTimeMs = elapsedMs(start)
		return result
	}
	content = toValidUTF8(content)

	// Gate 3 — symbol presence.
	symbolName := s.ResolvedSymbol()
	foundLine, found := grepSymbol(content, symbolName)
	if !found {
		result.IsValid = false
		result.ErrorCode = types.ErrSymbolNotFound
		result.AdjustedConfidence = s.Confidence
		result.Alternatives = similarSymbols(content, symbolName)
		result.ValidationTimeMs = elapsedMs(start)
		return result
	}

	// Gate 4 — line agreement. Strict equality; no tolerance window.
	if s.Line != 0 && s.Line != foundLine {
		result.IsValid = false
		result.ErrorCode = types.ErrLineMismatch
		result.AdjustedConfidence = s.Confidence
		result.ActualLine = foundLine
		result.SymbolSnippet = symbols.Snippet(content, foundLine, foundLine+2)
		result.Alternatives = []string{correctedSuggestion(s, foundLine)}
		result.ValidationTimeMs = elapsedMs(start)
		return result
	}

	// Success. adjusted_confidence is unchanged — the validator never
	// inflates confidence on a pass.
	result.IsValid = true
	result.ErrorCode = types.ErrValid
	result.AdjustedConfidence = s.Confidence
	result.ActualLine = foundLine
	result.SymbolSnippet = symbols.Snippet(content, foundLine, foundLine+2)
	result.Alternatives = []string{}
	result.ValidationTimeMs = elapsedMs(start)
	return result
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// resolveFile resolves the claimed file against repoRoot, traverses
// symlinks with loop detection, and returns similarity-based alternatives
// when the target does not exist.
func resolveFile(claimedFile, repoRoot string) (absPath string, errCode types.ErrorCode, alternatives []string) {
	claimed := claimedFile
	if !filepath.IsAbs(claimed) {
		claimed = filepath.Join(repoRoot, claimed)
	}
	claimed = filepath.Clean(claimed)

	resolved, err := resolveSymlinks(claimed)
	if errors.Is(err, errSymlinkLoop) {
		return "", types.ErrSymlinkLoop, nil
	}
	if err != nil {
		if os.IsNotExist(err) {
			return "", types.ErrFileNotFound, similarFilenames(claimed, repoRoot)
		}
		return "", types.ErrIO, nil
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", types.ErrFileNotFound, similarFilenames(claimed, repoRoot)
	}

	return resolved, types.ErrValid, nil
}

const maxSymlinkDepth = 40

// resolveSymlinks follows symlinks from path to its final target,
// maintaining a visited set; a path that reappears is a loop.
func resolveSymlinks(path string) (string, error) {
	visited := map[string]bool{}
	current := path

	for i := 0; i < maxSymlinkDepth; i++ {
		if visited[current] {
			return "", errSymlinkLoop
		}
		visited[current] = true

		info, err := os.Lstat(current)
		if err != nil {
			return current, err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}

		target, err := os.Readlink(current)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = filepath.Clean(target)
	}

	return "", errSymlinkLoop
}

// similarFilenames scans claimedPath's parent directory for entries whose
// name is similar (Levenshtein similarity >= similarityThreshold) to the
// claimed filename, returning up to maxAlternatives repo-relative paths.
func similarFilenames(claimedPath, repoRoot string) []string {
	dir := filepath.Dir(claimedPath)
	base := filepath.Base(claimedPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}

	type candidate struct {
		path  string
		score float64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		score := similarity(base, e.Name())
		if score >= similarityThreshold {
			full := filepath.Join(dir, e.Name())
			rel, err := filepath.Rel(repoRoot, full)
			if err != nil {
				rel = full
			}
			candidates = append(candidates, candidate{path: filepath.ToSlash(rel), score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]string, 0, maxAlternatives)
	for i := 0; i < len(candidates) && i < maxAlternatives; i++ {
		out = append(out, candidates[i].path)
	}
	return out
}

var (
	defPattern   = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`)
	classPattern = regexp.MustCompile(`(?m)^\s*class\s+(\w+)\s*[:(]`)
)

// grepSymbol searches for a definition of name anchored to line start
// (after optional indentation), accepting both "def name(" and
// "class name(" / "class name:" forms. On multiple matches the first wins;
// the validator does not disambiguate beyond the line-number check in
// Gate 4.
func grepSymbol(content []byte, name string) (line int, found bool) {
	lines := strings.Split(string(content), "\n")
	for i, l := range lines {
		if m := defPattern.FindStringSubmatch(l); m != nil && m[1] == name {
			return i + 1, true
		}
		if m := classPattern.FindStringSubmatch(l); m != nil && m[1] == name {
			return i + 1, true
		}
	}
	return 0, false
}

// similarSymbols returns up to maxAlternatives other def/class names in
// content whose similarity to name meets similarityThreshold, most similar
// first, as bare symbol names.
func similarSymbols(content []byte, name string) []string {
	lines := strings.Split(string(content), "\n")

	type candidate struct {
		name  string
		score float64
	}
	var candidates []candidate
	seen := map[string]bool{}
	for _, l := range lines {
		var found string
		if m := defPattern.FindStringSubmatch(l); m != nil {
			found = m[1]
		} else if m := classPattern.FindStringSubmatch(l); m != nil {
			found = m[1]
		}
		if found == "" || found == name || seen[found] {
			continue
		}
		seen[found] = true
		score := similarity(name, found)
		if score >= similarityThreshold {
			candidates = append(candidates, candidate{name: found, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]string, 0, maxAlternatives)
	for i := 0; i < len(candidates) && i < maxAlternatives; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// correctedSuggestion synthesizes a repair string for a line mismatch.
func correctedSuggestion(s types.Suggestion, actualLine int) string {
	return fmt.Sprintf("%s:%s:%d", s.File, s.ResolvedSymbol(), actualLine)
}

// toValidUTF8 replaces invalid bytes instead of failing the read, so a
// file with a stray non-UTF-8 byte still validates.
func toValidUTF8(b []byte) []byte {
	return []byte(strings.ToValidUTF8(string(b), "�"))
}
