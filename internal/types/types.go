// Package types defines the data structures shared across Scout's core:
// the ignore matcher, configuration resolver, audit log, symbol extractor,
// and validator.
package types

import "time"

// Suggestion is a structured claim by an LLM about a code location, to be
// verified against ground truth before it reaches a human or a commit.
// Any field may be absent; absence is meaningful to the validator.
type Suggestion struct {
	// File is the claimed file path, relative or absolute.
	File string `json:"file"`

	// Symbol is the claimed identifier. Function is accepted as an alias
	// for callers that use the older field name.
	Symbol string `json:"symbol,omitempty"`

	// Function is an alias for Symbol, kept for callers that populate it
	// instead. ResolvedSymbol returns whichever was set.
	Function string `json:"function,omitempty"`

	// Line is the claimed 1-based line number. Zero means "not provided".
	Line int `json:"line,omitempty"`

	// Confidence is the LLM's self-reported confidence, 0-100.
	Confidence int `json:"confidence"`
}

// ResolvedSymbol returns Symbol if set, else Function, else "".
func (s Suggestion) ResolvedSymbol() string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return s.Function
}

// ErrorCode enumerates the possible validation outcomes. Exactly one gate
// produces the terminal code for a given ValidationResult.
type ErrorCode string

const (
	ErrValid          ErrorCode = "VALID"
	ErrLowConfidence  ErrorCode = "LOW_CONFIDENCE"
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrSymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	ErrLineMismatch   ErrorCode = "LINE_MISMATCH"
	ErrSymlinkLoop    ErrorCode = "SYMLINK_LOOP"
	ErrIO             ErrorCode = "IO_ERROR"
)

// ValidationResult is the validator's verdict on a Suggestion, computed
// entirely from the filesystem (no LLM calls).
type ValidationResult struct {
	IsValid            bool      `json:"is_valid"`
	AdjustedConfidence int       `json:"adjusted_confidence"`
	ActualFile         string    `json:"actual_file,omitempty"`
	ActualLine         int       `json:"actual_line,omitempty"`
	SymbolSnippet      string    `json:"symbol_snippet,omitempty"`
	Alternatives       []string  `json:"alternatives"`
	ValidationTimeMs   float64   `json:"validation_time_ms"`
	ErrorCode          ErrorCode `json:"error_code"`
}

// SymbolKind classifies a top-level source symbol.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindClass    SymbolKind = "class"
	KindMethod   SymbolKind = "method"
)

// Symbol is a top-level (or class-nested) definition found by the symbol
// extractor, with its 1-based inclusive line range.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	LineStart int        `json:"line_start"`
	LineEnd   int        `json:"line_end"`
}

// TriggerType names a policy for when Scout should act on a file.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerOnSave   TriggerType = "on-save"
	TriggerOnCommit TriggerType = "on-commit"
	TriggerOnPush   TriggerType = "on-push"
	TriggerDisabled TriggerType = "disabled"
)

// TriggerConfig is the resolved trigger policy and cost ceiling for a file.
type TriggerConfig struct {
	Type    TriggerType `json:"type"`
	MaxCost float64     `json:"max_cost"`
}

// AuditEvent is a single append-only audit log record. Events are opaque
// after write — never edited, only appended.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`

	Cost         float64        `json:"cost,omitempty"`
	Model        string         `json:"model,omitempty"`
	InputTokens  int            `json:"input_tokens,omitempty"`
	OutputTokens int            `json:"output_tokens,omitempty"`
	Files        []string       `json:"files,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Confidence   int            `json:"confidence,omitempty"`
	DurationMs   float64        `json:"duration_ms,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
}

// Known event kinds. The set is open — callers may write arbitrary values —
// but these are the ones the core itself emits or queries by name.
const (
	EventNav            = "nav"
	EventBrowse         = "browse"
	EventValidationFail = "validation_fail"
	EventConfigChange   = "config_change"
	EventBudgetDenied   = "budget_denied"
	EventRotation       = "rotation"
)
