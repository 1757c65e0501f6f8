package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vestige-dev/vestige/internal/output"
	"github.com/vestige-dev/vestige/pkg/engine"
	"github.com/vestige-dev/vestige/pkg/models"
)

var (
	scanSeeds      []string
	scanTrace      string
	scanNoCache    bool
	scanNoSnapshot bool
	scanUnusedOnly bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a source tree and report liveness, complexity and duplication",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScanCmd,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanSeeds, "seed", nil, "Extra liveness roots (file::qualified.name)")
	scanCmd.Flags().StringVar(&scanTrace, "trace", "", "Dynamic-trace file (JSON map of function id to call count)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Disable the incremental cache")
	scanCmd.Flags().BoolVar(&scanNoSnapshot, "no-snapshot", false, "Skip snapshot persistence")
	scanCmd.Flags().BoolVar(&scanUnusedOnly, "unused-only", false, "List only unused and ambiguous functions")
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg := loadConfig()

	opts := engine.ScanOptions{
		Seeds:      scanSeeds,
		NoCache:    scanNoCache,
		NoSnapshot: scanNoSnapshot,
	}
	if scanTrace != "" {
		counts, err := engine.LoadTraceCounts(scanTrace)
		if err != nil {
			return err
		}
		opts.TraceCounts = counts
	}

	e, err := engine.New(cfg, root)
	if err != nil {
		return err
	}
	report, err := runScan(e, opts)
	if err != nil {
		return err
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(report)
	}
	return renderReport(formatter, cfg.Quality.ComplexityWarn, report)
}

func renderReport(formatter *output.Formatter, complexityWarn int, report *models.ScanReport) error {
	var rows [][]string
	for _, fn := range report.Functions {
		if scanUnusedOnly && fn.Liveness != models.LivenessUnused && fn.Liveness != models.LivenessAmbiguous {
			continue
		}

		cxStr := fmt.Sprintf("%d", fn.Metrics.Complexity)
		if int(fn.Metrics.Complexity) > complexityWarn {
			cxStr = color.RedString(cxStr)
		}

		reasons := ""
		for i, r := range fn.Reasons {
			if i > 0 {
				reasons += ","
			}
			reasons += string(r)
		}

		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", fn.File, fn.StartLine),
			truncate(fn.Name, 40),
			livenessColor(fn.Liveness),
			cxStr,
			reasons,
		})
	}

	table := output.NewTable(
		"Function Liveness",
		[]string{"Location", "Function", "Liveness", "Complexity", "Reasons"},
		rows,
		[]string{
			fmt.Sprintf("Files: %d", report.Summary.TotalFiles),
			fmt.Sprintf("Functions: %d", report.Summary.Functions),
			fmt.Sprintf("Unused: %d", report.Summary.Unused),
			fmt.Sprintf("Ambiguous: %d", report.Summary.Ambiguous),
			fmt.Sprintf("Avg Cx: %.1f", report.Summary.AvgComplexity),
		},
		report,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if len(report.Clusters) > 0 {
		var dupRows [][]string
		for _, cluster := range report.Clusters {
			for _, inst := range cluster.Instances {
				dupRows = append(dupRows, []string{
					cluster.Hash,
					fmt.Sprintf("%s:%d-%d", inst.File, inst.StartLine, inst.EndLine),
					inst.Function,
				})
			}
		}
		dupTable := output.NewTable(
			"Duplicate Clusters",
			[]string{"Cluster", "Location", "Function"},
			dupRows,
			[]string{fmt.Sprintf("Clusters: %d", len(report.Clusters)), "", ""},
			report.Clusters,
		)
		if err := formatter.Output(dupTable); err != nil {
			return err
		}
	}

	if len(report.Diagnostics) > 0 && verbose {
		formatter.Warning("Diagnostics (%d):", len(report.Diagnostics))
		for _, d := range report.Diagnostics {
			fmt.Fprintf(formatter.Writer(), "  - [%s] %s: %s\n", d.Stage, d.Path, d.Message)
		}
	}
	return nil
}
