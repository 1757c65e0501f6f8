package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vestige-dev/vestige/pkg/engine"
	"github.com/vestige-dev/vestige/pkg/models"
)

var (
	watchNoCache    bool
	watchNoSnapshot bool
	watchSeeds      []string
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan continuously as watched files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatchCmd,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchSeeds, "seed", nil, "Extra liveness roots (file::qualified.name)")
	watchCmd.Flags().BoolVar(&watchNoCache, "no-cache", false, "Disable the incremental cache")
	watchCmd.Flags().BoolVar(&watchNoSnapshot, "no-snapshot", false, "Skip snapshot persistence")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Debounce window (overrides config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg := loadConfig()
	if watchDebounce > 0 {
		cfg.Watch.DebounceMS = int(watchDebounce.Milliseconds())
	}

	e, err := engine.New(cfg, root)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping watch...")
		cancel()
	}()

	color.Cyan("Watching for changes in %s...", root)
	color.Cyan("Press Ctrl+C to stop")
	fmt.Println()

	opts := engine.ScanOptions{
		Seeds:      watchSeeds,
		NoCache:    watchNoCache,
		NoSnapshot: watchNoSnapshot,
	}
	err = e.Watch(ctx, opts, func(report *models.ScanReport, err error) {
		if err != nil {
			color.Red("Scan failed: %v", err)
			return
		}
		printWatchSummary(report)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printWatchSummary(report *models.ScanReport) {
	fmt.Printf("[%s] %d files, %d functions",
		report.CreatedAt.Local().Format("15:04:05"),
		report.Summary.TotalFiles,
		report.Summary.Functions)
	if report.Summary.Unused > 0 {
		fmt.Printf(", %s", color.RedString("%d unused", report.Summary.Unused))
	}
	if report.Summary.Ambiguous > 0 {
		fmt.Printf(", %s", color.YellowString("%d ambiguous", report.Summary.Ambiguous))
	}
	if len(report.Clusters) > 0 {
		fmt.Printf(", %d duplicate clusters", len(report.Clusters))
	}
	fmt.Println()
}
