package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"continuity/internal/adapters/tui/views"
	"continuity/internal/application"
	"continuity/internal/application/commands"
	"continuity/internal/ports"
)

var (
	postDryRun bool
	postSave   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a novel before or after generating a chapter",
}

var validatePreCmd = &cobra.Command{
	Use:   "pre",
	Short: "Validate the context for the next chapter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if _, err := loadNovel(ctx); err != nil {
			return err
		}
		report, err := commands.NewPreValidateCommand(engine).Execute(ctx)
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var validatePostCmd = &cobra.Command{
	Use:   "post <chapter-file>",
	Short: "Check a generated chapter and apply its extracted changes",
	Long: `Check a generated chapter against the knowledge graph, then apply the
extracted changes. With --dry-run nothing is applied; with --save the updated
session is written to the session database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if _, err := loadNovel(ctx); err != nil {
			return err
		}

		var st ports.SnapshotStore
		if postSave {
			s, err := openStore()
			if err != nil {
				return err
			}
			st = s
		}
		post := commands.NewPostValidateCommand(engine, source, st, args[0])
		post.DryRun = postDryRun
		post.Save = postSave

		result, err := post.Execute(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			if err := printJSON(result); err != nil {
				return err
			}
		} else {
			fmt.Println(views.RenderReport(result.Report))
			fmt.Println(result.Message)
			if result.Saved {
				fmt.Println("Session saved")
			}
		}
		if !result.Report.Valid {
			return errInvalid
		}
		return nil
	},
}

func init() {
	validatePostCmd.Flags().BoolVarP(&postDryRun, "dry-run", "n", false, "check only, do not apply changes")
	validatePostCmd.Flags().BoolVar(&postSave, "save", false, "save the updated session")

	validateCmd.AddCommand(validatePreCmd)
	validateCmd.AddCommand(validatePostCmd)
	rootCmd.AddCommand(validateCmd)
}

// printReport writes the report and reports errInvalid when it has
// critical issues, so scripts can gate on the exit status
func printReport(r *application.Report) error {
	if asJSON {
		if err := printJSON(r); err != nil {
			return err
		}
	} else {
		fmt.Println(views.RenderReport(r))
	}
	if !r.Valid {
		return errInvalid
	}
	return nil
}
