package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"continuity/internal/application/commands"
)

var (
	checkChapters int
	checkEvent    bool
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Inspect power levels",
}

var levelsParseCmd = &cobra.Command{
	Use:   "parse <level>",
	Short: "Normalize a power level and locate it in its hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewParseLevelCommand(engine.Levels(), args[0], cfg.Category).Execute(context.Background())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}
		if !result.Known {
			fmt.Printf("%q is not a known %s level\n", result.Input, result.Category)
			return nil
		}
		fmt.Printf("Level:    %s\n", result.Normalized)
		fmt.Printf("Stage:    %s (%d)\n", result.Stage, result.Order)
		if result.SubStage != "" {
			fmt.Printf("Substage: %s\n", result.SubStage)
		}
		if result.NextStage != "" {
			fmt.Printf("Next:     %s\n", result.NextStage)
		}
		return nil
	},
}

var levelsCompareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Order two power levels",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewCompareLevelsCommand(engine.Levels(), args[0], args[1], cfg.Category).Execute(context.Background())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}
		fmt.Println(result.Message)
		return nil
	},
}

var levelsCheckCmd = &cobra.Command{
	Use:   "check <previous> <current>",
	Short: "Validate a power progression between two levels",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := commands.NewCheckProgressionCommand(engine.Levels(), args[0], args[1],
			checkChapters, checkEvent, cfg.Category).Execute(context.Background())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}
		for _, f := range result.Issues {
			fmt.Printf("issue    %-20s %s\n", f.Kind, f.Message)
		}
		for _, f := range result.Warnings {
			fmt.Printf("warning  %-20s %s\n", f.Kind, f.Message)
		}
		if result.Valid {
			fmt.Printf("Valid progression (%+d stages)\n", result.Delta)
			return nil
		}
		return errInvalid
	},
}

func init() {
	levelsCheckCmd.Flags().IntVarP(&checkChapters, "chapters", "c", 0, "chapters elapsed between the two levels")
	levelsCheckCmd.Flags().BoolVarP(&checkEvent, "event", "e", false, "a breakthrough event justifies the change")

	levelsCmd.AddCommand(levelsParseCmd)
	levelsCmd.AddCommand(levelsCompareCmd)
	levelsCmd.AddCommand(levelsCheckCmd)
	rootCmd.AddCommand(levelsCmd)
}
