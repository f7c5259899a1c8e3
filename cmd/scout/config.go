package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scouthq/scout/internal/auditlog"
	"github.com/scouthq/scout/internal/config"
	"github.com/scouthq/scout/internal/ignore"
	"github.com/scouthq/scout/internal/types"
)

var (
	configGet      string
	configSet      []string
	configShowAll  bool
	configValidate bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit Scout's layered configuration",
	Long: `View and manage Scout configuration.

Configuration priority (highest to lowest):
  1. Environment variables (SCOUT_*)
  2. Project config (<repo>/.scout/config.yaml)
  3. Home config (~/.scout/config.yaml)
  4. Defaults

Environment variables:
  SCOUT_DEFAULT_TRIGGER    - Default trigger policy (manual|on-save|on-commit|on-push|disabled)
  SCOUT_MAX_COST_PER_EVENT - Per-event cost ceiling (float)
  SCOUT_HOURLY_BUDGET      - Hourly spend ceiling (float)
  SCOUT_PRIMARY_MODEL      - Primary model identifier
  SCOUT_VALIDATOR_MODEL    - Validator model identifier

Examples:
  scout config --show-all
  scout config --get limits.hourly_budget
  scout config --set limits.hourly_budget 3.5
  scout config --validate`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVar(&configGet, "get", "", "print the resolved value at a dot path, e.g. limits.hourly_budget")
	configCmd.Flags().StringSliceVar(&configSet, "set", nil, "set a dot path to a value: --set key value")
	configCmd.Flags().BoolVar(&configShowAll, "show-all", false, "print the fully resolved configuration")
	configCmd.Flags().BoolVar(&configValidate, "validate", false, "validate the merged configuration round-trips through YAML")
}

func runConfig(cmd *cobra.Command, args []string) error {
	switch {
	case configValidate:
		return runConfigValidate()
	case len(configSet) > 0:
		// "--set key value": the flag takes only key; value arrives as a positional arg.
		configSet = append(configSet, args...)
		return runConfigSet()
	case configGet != "":
		return runConfigGet()
	case configShowAll:
		return runConfigShowAll()
	default:
		return cmd.Help()
	}
}

func runConfigValidate() error {
	if err := config.ValidateYAML("", repoRoot); err != nil {
		color.Red("invalid configuration: %v", err)
		os.Exit(1)
	}
	color.Green("configuration is valid")
	return nil
}

func runConfigSet() error {
	if len(configSet) != 2 {
		return fmt.Errorf("--set requires exactly two values: key and value")
	}
	if err := config.Set(repoRoot, configSet[0], configSet[1]); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	if log, err := auditlog.Open(auditlog.DefaultPath()); err == nil {
		_ = log.Append(types.AuditEvent{
			Event:  types.EventConfigChange,
			Reason: fmt.Sprintf("%s = %s", configSet[0], configSet[1]),
		})
		log.Close()
	}

	color.Green("%s = %s", configSet[0], configSet[1])
	return nil
}

func runConfigGet() error {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		color.Red("loading config: %v", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("re-serializing config: %w", err)
	}
	var node map[string]any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("re-parsing config: %w", err)
	}

	value, ok := lookupDotPath(node, strings.Split(configGet, "."))
	if !ok {
		color.Red("%s: not found", configGet)
		os.Exit(1)
	}
	fmt.Println(value)
	return nil
}

func runConfigShowAll() error {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		color.Red("loading config: %v", err)
		os.Exit(1)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))

	fmt.Println("\nignore:")
	fmt.Println("  builtin_patterns:")
	for _, p := range ignore.Builtins() {
		fmt.Printf("    - %s\n", p)
	}
	if err := ignore.HasIgnoreFile(repoRoot); err != nil {
		fmt.Printf("  user_file: none (%v)\n", err)
	} else {
		fmt.Printf("  user_file: %s\n", ignore.IgnoreFileName)
	}
	return nil
}

func lookupDotPath(node map[string]any, keys []string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	v, ok := node[keys[0]]
	if !ok {
		return nil, false
	}
	if len(keys) == 1 {
		return v, true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookupDotPath(child, keys[1:])
}
