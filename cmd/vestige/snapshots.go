package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vestige-dev/vestige/internal/output"
	"github.com/vestige-dev/vestige/pkg/config"
	"github.com/vestige-dev/vestige/pkg/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect persisted scan snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List snapshots for a tree",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotsListCmd,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <id> [path]",
	Short: "Print one snapshot's report",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSnapshotsShowCmd,
}

var snapshotsDiffCmd = &cobra.Command{
	Use:   "diff <from> <to> [path]",
	Short: "Compare two snapshots",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runSnapshotsDiffCmd,
}

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsShowCmd, snapshotsDiffCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

// openStore opens the snapshot store for the tree named by the trailing
// positional argument.
func openStore(cfg *config.Config, args []string) (*snapshot.Store, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(filepath.Join(root, cfg.Snapshots.Dir))
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snapshot id %q", arg)
	}
	return id, nil
}

func runSnapshotsListCmd(cmd *cobra.Command, args []string) error {
	store, err := openStore(loadConfig(), args)
	if err != nil {
		return err
	}
	metas, err := store.List()
	if err != nil {
		return err
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(metas)
	}
	if len(metas) == 0 {
		formatter.Info("No snapshots yet")
		return nil
	}

	var rows [][]string
	for _, m := range metas {
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.ID),
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", m.Files),
			fmt.Sprintf("%d", m.Functions),
		})
	}
	table := output.NewTable(
		"Snapshots",
		[]string{"ID", "Created", "Files", "Functions"},
		rows,
		nil,
		metas,
	)
	return formatter.Output(table)
}

func runSnapshotsShowCmd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cfg := loadConfig()
	store, err := openStore(cfg, args[1:])
	if err != nil {
		return err
	}
	snap, err := store.Get(id)
	if err != nil {
		return err
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(snap)
	}

	formatter.Info("Snapshot %d (%s)", snap.ID, snap.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(formatter.Writer())
	return renderReport(formatter, cfg.Quality.ComplexityWarn, &snap.Report)
}

func runSnapshotsDiffCmd(cmd *cobra.Command, args []string) error {
	from, err := parseID(args[0])
	if err != nil {
		return err
	}
	to, err := parseID(args[1])
	if err != nil {
		return err
	}
	store, err := openStore(loadConfig(), args[2:])
	if err != nil {
		return err
	}
	diff, err := store.Diff(from, to)
	if err != nil {
		return err
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(diff)
	}
	if diff.Empty() {
		formatter.Success("Snapshots %d and %d are identical", from, to)
		return nil
	}

	var rows [][]string
	for _, c := range diff.Added {
		rows = append(rows, []string{"added", c.Path, "", truncate(c.NewFingerprint, 12)})
	}
	for _, c := range diff.Removed {
		rows = append(rows, []string{"removed", c.Path, truncate(c.OldFingerprint, 12), ""})
	}
	for _, c := range diff.Changed {
		rows = append(rows, []string{"changed", c.Path, truncate(c.OldFingerprint, 12), truncate(c.NewFingerprint, 12)})
	}

	table := output.NewTable(
		fmt.Sprintf("Snapshot Diff %d -> %d", from, to),
		[]string{"Change", "File", "Old", "New"},
		rows,
		[]string{
			fmt.Sprintf("Functions: %+d", diff.FunctionCountDelta),
			fmt.Sprintf("Clusters: %+d", diff.ClusterCountDelta),
			fmt.Sprintf("Avg Cx: %+.2f", diff.AvgComplexityDelta),
			"",
		},
		diff,
	)
	return formatter.Output(table)
}
