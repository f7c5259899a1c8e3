// Package config provides Scout's layered configuration resolver and the
// budget gate built on top of it.
//
// Configuration is loaded from (lowest to highest precedence):
//  1. Hardcoded defaults
//  2. ~/.scout/config.yaml
//  3. <repo>/.scout/config.yaml
//  4. Environment variables (SCOUT_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scouthq/scout/internal/ignore"
	"github.com/scouthq/scout/internal/scoutlog"
	"github.com/scouthq/scout/internal/types"
)

// Hard caps: compile-time constants that no configuration layer, including
// environment variables, may override. The resolver clamps every effective
// value to these.
const (
	HardMaxCostPerEvent = 2.00
	HardMaxHourlyBudget = 20.00
)

// TriggerPattern is one entry in triggers.patterns. Patterns are matched in
// the order they are listed; the first match wins.
type TriggerPattern struct {
	Pattern string  `yaml:"pattern" json:"pattern"`
	Trigger string  `yaml:"trigger" json:"trigger"`
	MaxCost float64 `yaml:"max_cost,omitempty" json:"max_cost,omitempty"`

	// Extra preserves any fields on this pattern that this version of
	// Scout doesn't recognize, so they round-trip through Load/Set/
	// ValidateYAML unchanged rather than being silently dropped.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// TriggersSection is the triggers top-level config section.
type TriggersSection struct {
	Default  string           `yaml:"default" json:"default"`
	Patterns []TriggerPattern `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// Extra preserves unrecognized keys under triggers: for round-tripping.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// LimitsSection is the limits top-level config section. HardSafetyCap is
// informational only — it documents the hard cap inline in the merged
// config but never changes HardMaxCostPerEvent/HardMaxHourlyBudget.
type LimitsSection struct {
	MaxCostPerEvent float64 `yaml:"max_cost_per_event" json:"max_cost_per_event"`
	HourlyBudget    float64 `yaml:"hourly_budget" json:"hourly_budget"`
	HardSafetyCap   float64 `yaml:"hard_safety_cap,omitempty" json:"hard_safety_cap,omitempty"`

	// Extra preserves unrecognized keys under limits: for round-tripping.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// ModelsSection names the LLM identifiers external clients consume.
type ModelsSection struct {
	Primary   string `yaml:"primary,omitempty" json:"primary,omitempty"`
	Validator string `yaml:"validator,omitempty" json:"validator,omitempty"`

	// Extra preserves unrecognized keys under models: for round-tripping.
	Extra map[string]any `yaml:",inline" json:"-"`
}

// Config holds all of Scout's configuration. Extra preserves any top-level
// keys this version of Scout doesn't recognize, so Load/merge/ValidateYAML
// never drop a key written by a newer or differently-configured client.
type Config struct {
	Triggers      TriggersSection `yaml:"triggers" json:"triggers"`
	Limits        LimitsSection   `yaml:"limits" json:"limits"`
	Models        ModelsSection   `yaml:"models" json:"models"`
	Notifications map[string]any  `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	Extra         map[string]any  `yaml:",inline" json:"-"`
}

// Default returns Scout's hardcoded default configuration.
func Default() *Config {
	return &Config{
		Triggers: TriggersSection{
			Default: string(types.TriggerOnCommit),
		},
		Limits: LimitsSection{
			MaxCostPerEvent: 0.50,
			HourlyBudget:    5.00,
			HardSafetyCap:   HardMaxCostPerEvent,
		},
		Models: ModelsSection{
			Primary:   "",
			Validator: "",
		},
	}
}

// Load resolves configuration with full precedence: defaults → home →
// project → environment. repoRoot locates the project config file; pass ""
// to skip it (e.g. when running outside a repo).
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	if home, err := loadFromPath(homeConfigPath()); err == nil && home != nil {
		cfg = merge(cfg, home)
	} else if err != nil && !os.IsNotExist(err) {
		scoutlog.Warnf("config: reading home config: %v", err)
	}

	if repoRoot != "" {
		if project, err := loadFromPath(projectConfigPath(repoRoot)); err == nil && project != nil {
			cfg = merge(cfg, project)
		} else if err != nil && !os.IsNotExist(err) {
			scoutlog.Warnf("config: reading project config: %v", err)
		}
	}

	cfg = applyEnv(cfg)
	cfg = clampHardCaps(cfg)

	return cfg, nil
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scout", "config.yaml")
}

func projectConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".scout", "config.yaml")
}

func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// merge overlays src onto dst. Each section merges field by field (a section
// present in src only overrides the fields it sets); Notifications and the
// Extra maps merge one level deep, so a nested map value in src replaces
// dst's whole value for that key. Other non-mapping values are replaced
// wholesale.
func merge(dst, src *Config) *Config {
	if src.Triggers.Default != "" {
		dst.Triggers.Default = src.Triggers.Default
	}
	if src.Triggers.Patterns != nil {
		dst.Triggers.Patterns = src.Triggers.Patterns
	}
	mergeExtra(&dst.Triggers.Extra, src.Triggers.Extra)
	if src.Limits.MaxCostPerEvent != 0 {
		dst.Limits.MaxCostPerEvent = src.Limits.MaxCostPerEvent
	}
	if src.Limits.HourlyBudget != 0 {
		dst.Limits.HourlyBudget = src.Limits.HourlyBudget
	}
	if src.Limits.HardSafetyCap != 0 {
		dst.Limits.HardSafetyCap = src.Limits.HardSafetyCap
	}
	mergeExtra(&dst.Limits.Extra, src.Limits.Extra)
	if src.Models.Primary != "" {
		dst.Models.Primary = src.Models.Primary
	}
	if src.Models.Validator != "" {
		dst.Models.Validator = src.Models.Validator
	}
	mergeExtra(&dst.Models.Extra, src.Models.Extra)
	if src.Notifications != nil {
		if dst.Notifications == nil {
			dst.Notifications = map[string]any{}
		}
		for k, v := range src.Notifications {
			dst.Notifications[k] = v
		}
	}
	mergeExtra(&dst.Extra, src.Extra)
	return dst
}

// mergeExtra overlays src's unrecognized keys onto *dst, preserving any
// already present that src doesn't override.
func mergeExtra(dst *map[string]any, src map[string]any) {
	if src == nil {
		return
	}
	if *dst == nil {
		*dst = map[string]any{}
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}

// applyEnv applies SCOUT_* environment overrides. Malformed values are
// logged and ignored, never fatal.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("SCOUT_DEFAULT_TRIGGER"); v != "" {
		cfg.Triggers.Default = v
	}
	if v, ok := envFloat("SCOUT_MAX_COST_PER_EVENT"); ok {
		cfg.Limits.MaxCostPerEvent = v
	}
	if v, ok := envFloat("SCOUT_HOURLY_BUDGET"); ok {
		cfg.Limits.HourlyBudget = v
	}
	if v := os.Getenv("SCOUT_PRIMARY_MODEL"); v != "" {
		cfg.Models.Primary = v
	}
	if v := os.Getenv("SCOUT_VALIDATOR_MODEL"); v != "" {
		cfg.Models.Validator = v
	}
	return cfg
}

func envFloat(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		scoutlog.Warnf("config: ignoring malformed %s=%q: %v", key, raw, err)
		return 0, false
	}
	return v, true
}

// clampHardCaps enforces HardMaxCostPerEvent/HardMaxHourlyBudget on the
// merged config. No layer, including environment variables, may exceed
// these.
func clampHardCaps(cfg *Config) *Config {
	if cfg.Limits.MaxCostPerEvent > HardMaxCostPerEvent {
		cfg.Limits.MaxCostPerEvent = HardMaxCostPerEvent
	}
	if cfg.Limits.HourlyBudget > HardMaxHourlyBudget {
		cfg.Limits.HourlyBudget = HardMaxHourlyBudget
	}
	for i := range cfg.Triggers.Patterns {
		if cfg.Triggers.Patterns[i].MaxCost > HardMaxCostPerEvent {
			cfg.Triggers.Patterns[i].MaxCost = HardMaxCostPerEvent
		}
	}
	return cfg
}

// ResolveTrigger returns the effective trigger policy for filePath: the
// first matching pattern wins; absent a match, the configured default
// trigger and global cost limit apply.
func (c *Config) ResolveTrigger(filePath string) types.TriggerConfig {
	for _, p := range c.Triggers.Patterns {
		re, err := ignore.CompileGlob(p.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(filepath.ToSlash(filePath)) {
			maxCost := p.MaxCost
			if maxCost == 0 || (c.Limits.MaxCostPerEvent > 0 && maxCost > c.Limits.MaxCostPerEvent) {
				maxCost = c.Limits.MaxCostPerEvent
			}
			return types.TriggerConfig{
				Type:    types.TriggerType(p.Trigger),
				MaxCost: c.clampCost(maxCost),
			}
		}
	}
	return types.TriggerConfig{
		Type:    types.TriggerType(c.Triggers.Default),
		MaxCost: c.clampCost(c.Limits.MaxCostPerEvent),
	}
}

// EffectiveMaxCost returns the minimum of the matching pattern's max_cost
// (if any), the global max_cost_per_event, and the hard per-event cap.
func (c *Config) EffectiveMaxCost(filePath string) float64 {
	return c.ResolveTrigger(filePath).MaxCost
}

func (c *Config) clampCost(cost float64) float64 {
	if cost <= 0 {
		cost = HardMaxCostPerEvent
	}
	if cost > HardMaxCostPerEvent {
		cost = HardMaxCostPerEvent
	}
	return cost
}

// ShouldProcess implements the budget gate: true iff estimatedCost is within
// the effective per-file cost ceiling, within the hard per-event cap, and
// hourlySpend+estimatedCost stays within min(user hourly budget, hard hourly
// cap).
func (c *Config) ShouldProcess(estimatedCost float64, filePath string, hourlySpend float64) bool {
	if estimatedCost > c.EffectiveMaxCost(filePath) {
		return false
	}
	if estimatedCost > HardMaxCostPerEvent {
		return false
	}
	hourlyCap := c.Limits.HourlyBudget
	if hourlyCap <= 0 || hourlyCap > HardMaxHourlyBudget {
		hourlyCap = HardMaxHourlyBudget
	}
	return hourlySpend+estimatedCost <= hourlyCap
}

// Set writes value at dotPath (e.g. "limits.hourly_budget") to the project
// YAML file if it exists, otherwise to the home YAML file, creating parent
// directories as needed.
func Set(repoRoot, dotPath, value string) error {
	path := projectConfigPath(repoRoot)
	if repoRoot == "" {
		path = ""
	} else if _, err := os.Stat(path); err != nil {
		path = ""
	}
	if path == "" {
		path = homeConfigPath()
	}
	if path == "" {
		return fmt.Errorf("config: no home directory available to write %s", dotPath)
	}

	node, err := loadYAMLNode(path)
	if err != nil {
		return err
	}

	if err := setDotPath(node, strings.Split(dotPath, "."), value); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}

	out, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("config: re-serializing %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func loadYAMLNode(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var node map[string]any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if node == nil {
		node = map[string]any{}
	}
	return node, nil
}

func setDotPath(node map[string]any, keys []string, value string) error {
	if len(keys) == 0 {
		return fmt.Errorf("config: empty dot path")
	}
	key := keys[0]
	if len(keys) == 1 {
		node[key] = coerce(value)
		return nil
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[key] = child
	}
	return setDotPath(child, keys[1:], value)
}

// coerce converts a raw string value to a float64 or bool when it looks
// like one, else leaves it as a string.
func coerce(value string) any {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// ValidateYAML validates syntactic soundness of a named YAML file, or, if
// path is "", re-serializes and re-parses the merged configuration.
func ValidateYAML(path, repoRoot string) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: reading %s: %w", path, err)
		}
		var node map[string]any
		if err := yaml.Unmarshal(data, &node); err != nil {
			return fmt.Errorf("config: invalid YAML in %s: %w", path, err)
		}
		return nil
	}

	cfg, err := Load(repoRoot)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: re-serializing merged config: %w", err)
	}
	var roundTrip Config
	if err := yaml.Unmarshal(out, &roundTrip); err != nil {
		return fmt.Errorf("config: merged config fails to round-trip: %w", err)
	}
	return nil
}
