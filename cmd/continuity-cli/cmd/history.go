package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"continuity/internal/application"
	"continuity/internal/application/commands"
)

var (
	historyChapter int
	rollbackSave   bool
)

var historyCmd = &cobra.Command{
	Use:   "history <type> <id>",
	Short: "Show the recorded states of an entity",
	Long: `Show every snapshot recorded for an entity, oldest first.
With --chapter the state as of that chapter is printed instead.

Types: character, item, location, technique, world-rule, faction, realm`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if _, err := loadNovel(ctx); err != nil {
			return err
		}
		result, err := commands.NewHistoryCommand(engine, args[0], args[1], historyChapter).Execute(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}

		if result.Chapter > 0 {
			fmt.Printf("%s %s as of chapter %d\n", result.EntityType, result.EntityID, result.Chapter)
			printState(result.StateAt)
			return nil
		}
		if len(result.Snapshots) == 0 {
			fmt.Println("No snapshots recorded")
			return nil
		}
		for _, s := range result.Snapshots {
			fmt.Printf("ch %-4d %s  %d change(s)\n", s.ChapterNumber, s.ChapterID, len(s.Changes))
			for _, c := range s.Changes {
				fmt.Printf("        %s: %v -> %v\n", c.Field, c.OldValue, c.NewValue)
			}
		}
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <type> <id> <chapter>",
	Short: "Restore an entity to its state as of a chapter",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapter, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid chapter %q: %w", args[2], err)
		}

		ctx := context.Background()
		if _, err := loadNovel(ctx); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}

		result, err := commands.NewRollbackCommand(engine, st, args[0], args[1], chapter, rollbackSave).Execute(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(result)
		}
		fmt.Println(result.Message)
		printState(result.State)
		if result.Saved {
			fmt.Println("Session saved")
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyChapter, "chapter", "c", 0, "show the state as of this chapter")
	rollbackCmd.Flags().BoolVar(&rollbackSave, "save", false, "save the session after rolling back")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func printState(state application.EntityState) {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-22s %v\n", k, state[k])
	}
}
