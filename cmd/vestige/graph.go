package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vestige-dev/vestige/internal/output"
	"github.com/vestige-dev/vestige/pkg/depgraph"
	"github.com/vestige-dev/vestige/pkg/engine"
)

var (
	graphDirDepth  int
	graphMinWeight int
	graphMetrics   bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Print the module dependency graph (Mermaid output)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraphCmd,
}

func init() {
	graphCmd.Flags().IntVar(&graphDirDepth, "group-dirs", 0, "Collapse modules into directories at this depth")
	graphCmd.Flags().IntVar(&graphMinWeight, "min-weight", 0, "Hide edges below this weight")
	graphCmd.Flags().BoolVar(&graphMetrics, "metrics", false, "Include component count and PageRank ranking")
	rootCmd.AddCommand(graphCmd)
}

func runGraphCmd(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg := loadConfig()
	if graphDirDepth == 0 {
		graphDirDepth = cfg.Graph.DirectoryDepth
	}
	if graphMinWeight == 0 {
		graphMinWeight = cfg.Graph.MinWeight
	}

	e, err := engine.New(cfg, root)
	if err != nil {
		return err
	}
	report, err := runScan(e, engine.ScanOptions{NoSnapshot: true})
	if err != nil {
		return err
	}

	g := report.Graph
	if graphDirDepth > 0 {
		g = depgraph.AggregateByDirectory(g, graphDirDepth)
	}
	if graphMinWeight > 1 {
		g = depgraph.FilterByWeight(g, graphMinWeight)
	}

	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		if graphMetrics {
			summary := depgraph.Summarize(g)
			return formatter.Output(map[string]any{
				"graph":   g,
				"summary": summary,
			})
		}
		return formatter.Output(g)
	}

	w := formatter.Writer()
	fmt.Fprintln(w, "```mermaid")
	fmt.Fprint(w, g.ToMermaid())
	fmt.Fprintln(w, "```")

	if graphMetrics {
		summary := depgraph.Summarize(g)
		fmt.Fprintln(w)
		formatter.Info("Graph Metrics:")
		fmt.Fprintf(w, "  Nodes: %d\n", summary.TotalNodes)
		fmt.Fprintf(w, "  Edges: %d\n", summary.TotalEdges)
		fmt.Fprintf(w, "  Components: %d\n", summary.Components)
		if len(summary.TopNodes) > 0 {
			fmt.Fprintln(w)
			formatter.Info("Top Nodes by PageRank:")
			for _, n := range summary.TopNodes {
				fmt.Fprintf(w, "  %s: %.4f\n", n.ID, n.Rank)
			}
		}
	}
	return nil
}
