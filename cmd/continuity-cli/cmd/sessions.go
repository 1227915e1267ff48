package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		infos, err := st.List(context.Background())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(infos)
		}
		if len(infos) == 0 {
			fmt.Printf("No sessions in %s\n", st.Path())
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-24s %s  %d nodes  %d edges  %d snapshots\n",
				info.NovelID, info.SavedAt.Local().Format("2006-01-02 15:04"),
				info.Nodes, info.Edges, info.Snapshots)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <novel-id>",
	Short: "Delete the saved session of a novel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
