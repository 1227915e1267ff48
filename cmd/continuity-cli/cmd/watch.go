package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"continuity/internal/adapters/tui/views"
	"continuity/internal/adapters/watcher"
	"continuity/internal/application/commands"
)

var watchChapter string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run checks whenever the state or chapter file changes",
	Long: `Watch the novel state file and re-run pre-generation validation each time
it is saved. With --chapter the generated chapter file is watched too and
checked in dry-run mode after every save.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths := []string{cfg.StatePath}
		if watchChapter != "" {
			paths = append(paths, watchChapter)
		}

		runChecks(ctx)
		fmt.Printf("Watching %v (ctrl+c to stop)\n", paths)

		w := watcher.New(
			watcher.WithDebounce(cfg.WatchDebounce),
			watcher.WithLogger(logger.Named("watcher")),
		)
		err := w.Watch(ctx, paths, func(path string) {
			logger.Debug("file changed", zap.String("path", path))
			runChecks(ctx)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchChapter, "chapter", "c", "", "generated chapter file to check on change")
	rootCmd.AddCommand(watchCmd)
}

// runChecks reloads the novel and prints fresh reports. Failures are
// printed rather than returned so the watch keeps going.
func runChecks(ctx context.Context) {
	fmt.Printf("\n%s\n", time.Now().Format("15:04:05"))

	if _, err := loadNovel(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	if watchChapter == "" {
		report, err := commands.NewPreValidateCommand(engine).Execute(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Println(views.RenderReport(report))
		return
	}

	post := commands.NewPostValidateCommand(engine, source, nil, watchChapter)
	post.DryRun = true
	result, err := post.Execute(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(views.RenderReport(result.Report))
}
