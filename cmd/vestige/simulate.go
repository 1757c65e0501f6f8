package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vestige-dev/vestige/internal/output"
	"github.com/vestige-dev/vestige/pkg/engine"
	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/simulate"
)

var (
	simDepth  int
	simStrict bool
	simFresh  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <target> [path]",
	Short: "Compute the blast radius of removing a file or function",
	Long: `Simulate answers "what breaks if I delete this?". The target is a
root-relative file path, or path::qualified.name for a single function.
The latest snapshot is used when available; otherwise a fresh scan runs.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSimulateCmd,
}

func init() {
	simulateCmd.Flags().IntVar(&simDepth, "depth", 0, "Reverse-closure depth bound (0 = config default)")
	simulateCmd.Flags().BoolVar(&simStrict, "strict", false, "Fail on an unresolved target")
	simulateCmd.Flags().BoolVar(&simFresh, "fresh", false, "Always rescan instead of using the latest snapshot")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulateCmd(cmd *cobra.Command, args []string) error {
	target := simulate.ParseTarget(args[0])
	root, err := resolveRoot(args[1:])
	if err != nil {
		return err
	}
	cfg := loadConfig()

	opts := simulate.Options{
		MaxDepth: cfg.Simulate.MaxDepth,
		Strict:   cfg.Simulate.Strict,
	}
	if simDepth > 0 {
		opts.MaxDepth = simDepth
	}
	if simStrict {
		opts.Strict = true
	}

	e, err := engine.New(cfg, root)
	if err != nil {
		return err
	}

	report, err := latestReport(e, simFresh)
	if err != nil {
		return err
	}

	result, err := simulate.Simulate(report, target, opts)
	if err != nil {
		return err
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(result)
	}
	return renderSimulation(formatter, result)
}

// latestReport reuses the newest snapshot, falling back to a fresh scan
// when none exists or fresh is forced.
func latestReport(e *engine.Engine, fresh bool) (*models.ScanReport, error) {
	if !fresh && e.Store() != nil {
		metas, err := e.Store().List()
		if err == nil && len(metas) > 0 {
			snap, err := e.Store().Get(metas[len(metas)-1].ID)
			if err == nil {
				return &snap.Report, nil
			}
		}
	}
	return runScan(e, engine.ScanOptions{NoSnapshot: true})
}

func renderSimulation(formatter *output.Formatter, result *models.SimulationReport) error {
	targetStr := result.Target.File
	if result.Target.Function != "" {
		targetStr += "::" + result.Target.Function
	}

	if !result.Resolved {
		formatter.Warning("Target %s not found in the scanned tree", targetStr)
		return nil
	}

	formatter.Info("Removal impact for %s (depth %d)", targetStr, result.MaxDepth)
	fmt.Fprintln(formatter.Writer())

	if len(result.BrokenImports) > 0 {
		var rows [][]string
		for _, imp := range result.BrokenImports {
			rows = append(rows, []string{imp.File, imp.Module})
		}
		table := output.NewTable(
			"Broken Imports",
			[]string{"File", "Imported Module"},
			rows,
			nil,
			result.BrokenImports,
		)
		if err := formatter.Output(table); err != nil {
			return err
		}
	}

	if len(result.Impacted) > 0 {
		var rows [][]string
		for _, imp := range result.Impacted {
			rows = append(rows, []string{
				fmt.Sprintf("%s:%d", imp.File, imp.Line),
				imp.Name,
				fmt.Sprintf("%d", imp.Distance),
			})
		}
		table := output.NewTable(
			"Impacted Functions",
			[]string{"Location", "Function", "Distance"},
			rows,
			nil,
			result.Impacted,
		)
		if err := formatter.Output(table); err != nil {
			return err
		}
	}

	if len(result.BrokenImports) == 0 && len(result.Impacted) == 0 {
		formatter.Success("Nothing in the tree depends on %s", targetStr)
	}
	if result.Truncated {
		formatter.Warning("Impact list truncated at depth %d", result.MaxDepth)
	}
	return nil
}
