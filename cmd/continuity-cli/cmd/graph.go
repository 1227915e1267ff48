package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsOnly bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the knowledge graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadNovel(context.Background()); err != nil {
			return err
		}

		if statsOnly {
			stats := engine.GraphStats()
			if asJSON {
				return printJSON(stats)
			}
			fmt.Printf("Nodes:     %d\n", stats.Nodes)
			for t, n := range stats.NodesByType {
				fmt.Printf("  %-12s %d\n", t, n)
			}
			fmt.Printf("Edges:     %d\n", stats.Edges)
			for t, n := range stats.EdgesByType {
				fmt.Printf("  %-12s %d\n", t, n)
			}
			fmt.Printf("Timelines: %d (%d events)\n", stats.Timelines, stats.Events)
			return nil
		}

		snap := engine.GraphSnapshot()
		if asJSON {
			return printJSON(snap)
		}
		sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
		for _, n := range snap.Nodes {
			fmt.Printf("%-32s %s\n", n.ID, n.Label)
		}
		for _, e := range snap.Edges {
			fmt.Printf("%s -[%s]-> %s\n", e.Source, e.Type, e.Target)
		}
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <character-id>",
	Short: "Show the power progression of a character",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadNovel(context.Background()); err != nil {
			return err
		}
		tl, err := engine.PowerTimeline(args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(tl)
		}
		fmt.Printf("ch %-4d %s  (baseline)\n", tl.BaselineChapter, tl.Baseline)
		for _, ev := range tl.Events {
			fmt.Printf("ch %-4d %s  %s", ev.ChapterNumber, ev.PowerLevel, ev.Type)
			if ev.Justification != "" {
				fmt.Printf("  %s", ev.Justification)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().BoolVar(&statsOnly, "stats", false, "print counts only")
	graphCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(graphCmd)
}
