package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scouthq/scout/internal/auditlog"
	"github.com/scouthq/scout/internal/config"
	"github.com/scouthq/scout/internal/ignore"
	"github.com/scouthq/scout/internal/types"
)

var onCommitCmd = &cobra.Command{
	Use:   "on-commit [files...]",
	Short: "Resolve each file's trigger policy through the ignore matcher and config resolver",
	Long: `on-commit is a hook-friendly entrypoint: it reads newline-separated file
paths from stdin when no files are given on the command line, resolves each
one through the ignore matcher and configuration resolver, and prints the
resolved trigger. It always exits 0, regardless of per-file outcomes, so it
never blocks a git hook.`,
	RunE: runOnCommit,
}

func init() {
	rootCmd.AddCommand(onCommitCmd)
}

func runOnCommit(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		files = readLines(os.Stdin)
	}

	matcher, err := ignore.New(repoRoot)
	if err != nil {
		color.Yellow("on-commit: building ignore matcher: %v (continuing with built-ins only)", err)
	}

	cfg, err := config.Load(repoRoot)
	if err != nil {
		color.Yellow("on-commit: loading config: %v (continuing with defaults)", err)
		cfg = config.Default()
	}

	logPath := auditlog.DefaultPath()
	log, err := auditlog.Open(logPath)
	if err != nil {
		color.Yellow("on-commit: opening audit log at %s: %v (continuing without an audit trail)", logPath, err)
	} else {
		defer log.Close()
	}

	var hourlySpend float64
	if log != nil {
		if spend, err := log.HourlySpend(1); err == nil {
			hourlySpend = spend
		}
	}

	for _, f := range files {
		if matcher != nil && matcher.Matches(f) {
			fmt.Printf("%s: ignored\n", f)
			continue
		}

		trigger := cfg.ResolveTrigger(f)
		if trigger.Type == types.TriggerDisabled {
			fmt.Printf("%s: trigger=disabled\n", f)
			continue
		}

		if !cfg.ShouldProcess(trigger.MaxCost, f, hourlySpend) {
			color.Yellow("%s: budget_denied (max_cost=%.2f, hourly_spend=%.2f)", f, trigger.MaxCost, hourlySpend)
			if log != nil {
				_ = log.Append(types.AuditEvent{
					Timestamp: time.Now().UTC(),
					Event:     types.EventBudgetDenied,
					Files:     []string{f},
					Cost:      trigger.MaxCost,
					Reason:    "budget exceeded",
				})
			}
			continue
		}

		fmt.Printf("%s: trigger=%s max_cost=%.2f\n", f, trigger.Type, trigger.MaxCost)
	}

	return nil
}

func readLines(f *os.File) []string {
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
