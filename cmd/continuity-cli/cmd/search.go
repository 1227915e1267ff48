package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"continuity/internal/application/commands"
)

var (
	searchType  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search entities in the knowledge graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if _, err := loadNovel(ctx); err != nil {
			return err
		}

		results, err := commands.NewSearchCommand(engine, strings.Join(args, " "), searchType).Execute(ctx)
		if err != nil {
			return err
		}
		if searchLimit > 0 && len(results) > searchLimit {
			results = results[:searchLimit]
		}
		if asJSON {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%-12s %-32s %s\n", r.Node.Type, r.Node.ID, r.Node.Label)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "restrict to one entity type")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "maximum results (0 for all)")
	rootCmd.AddCommand(searchCmd)
}
