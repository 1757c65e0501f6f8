package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/vestige-dev/vestige/internal/fileproc"
	"github.com/vestige-dev/vestige/internal/output"
	"github.com/vestige-dev/vestige/internal/progress"
	"github.com/vestige-dev/vestige/pkg/config"
	"github.com/vestige-dev/vestige/pkg/engine"
	"github.com/vestige-dev/vestige/pkg/models"
)

// loadConfig loads the explicit --config file or falls back to the
// standard search locations.
func loadConfig() *config.Config {
	if cfgFile == "" {
		return config.LoadOrDefault()
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		color.Yellow("Config %s: %v (using defaults)", cfgFile, err)
		return config.DefaultConfig()
	}
	return cfg
}

// resolveRoot turns the optional positional path into an absolute root.
func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}
	return abs, nil
}

func newFormatter() (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(formatFlag), outputFlag, true)
}

// runScan executes one scan with a progress bar on stderr.
func runScan(e *engine.Engine, opts engine.ScanOptions) (*models.ScanReport, error) {
	var tracker *progress.Tracker
	opts.Progress = func(total int) fileproc.ProgressFunc {
		tracker = progress.NewTracker("Analyzing files...", total)
		return tracker.Tick
	}

	report, err := e.Scan(context.Background(), opts)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	return report, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func livenessColor(l models.Liveness) string {
	switch l {
	case models.LivenessLive:
		return color.GreenString(string(l))
	case models.LivenessHeuristic:
		return color.CyanString(string(l))
	case models.LivenessAmbiguous:
		return color.YellowString(string(l))
	case models.LivenessUnused:
		return color.RedString(string(l))
	default:
		return string(l)
	}
}
