package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"continuity/internal/adapters/filesystem"
	"continuity/internal/adapters/sqlite"
	"continuity/internal/application"
	"continuity/internal/application/commands"
	"continuity/internal/config"
	"continuity/internal/logging"
	"continuity/internal/ports"
)

var (
	cfg    config.Config
	logger *zap.Logger
	engine *application.Engine
	source ports.NovelSource
	store  *sqlite.Store

	fresh   bool
	asJSON  bool
	flagCfg = struct {
		state, db, category, hierarchies, logLevel string
		stale                                     int
	}{}
)

// errInvalid marks a run that completed but found critical issues
var errInvalid = errors.New("critical issues found")

var rootCmd = &cobra.Command{
	Use:   "continuity-cli",
	Short: "Consistency checks for long-form serialized fiction",
	Long: `continuity-cli keeps a knowledge graph of a novel's characters, items,
techniques and world rules, and checks generated chapters against it.

It validates context before a chapter is generated, checks the generated
chapter and its extracted changes afterwards, and keeps a per-entity state
history that can be inspected or rolled back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			if err := store.Close(); err != nil {
				return err
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&flagCfg.state, "state", "s", config.StatePath(), "novel state file (YAML or JSON)")
	f.StringVar(&flagCfg.db, "db", "", "session database (default under $XDG_DATA_HOME/continuity)")
	f.StringVar(&flagCfg.category, "category", "", "default power category")
	f.StringVar(&flagCfg.hierarchies, "hierarchies", "", "YAML file overriding power hierarchies")
	f.StringVar(&flagCfg.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.IntVar(&flagCfg.stale, "stale-threshold", 0, "chapters before a character counts as stale")
	f.BoolVar(&fresh, "fresh", false, "ignore the saved session for this novel")
	f.BoolVar(&asJSON, "json", false, "print results as JSON")
}

// setup loads configuration, applies flag overrides and wires the engine
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("state") {
		cfg.StatePath = flagCfg.state
	}
	if flags.Changed("db") {
		cfg.DBPath = flagCfg.db
	}
	if flags.Changed("category") {
		cfg.Category = flagCfg.category
	}
	if flags.Changed("hierarchies") {
		cfg.HierarchyFile = flagCfg.hierarchies
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagCfg.logLevel
	}
	if flags.Changed("stale-threshold") {
		cfg.StaleThreshold = flagCfg.stale
	}

	logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	levels, err := cfg.Levels(logger.Named("powerlevel"))
	if err != nil {
		return err
	}

	engine = application.NewEngine(
		application.WithLogger(logger),
		application.WithLevels(levels),
		application.WithStaleThreshold(cfg.StaleThreshold),
	)
	source = filesystem.NewSource("")
	return nil
}

// openStore opens the session database on first use
func openStore() (*sqlite.Store, error) {
	if store != nil {
		return store, nil
	}
	s := sqlite.NewStore(sqlite.WithLogger(logger.Named("sqlite")))
	if err := s.Open(cfg.DBPath); err != nil {
		return nil, err
	}
	store = s
	return store, nil
}

// loadNovel reads the state file into the engine, resuming the saved
// session unless --fresh is set
func loadNovel(ctx context.Context) (*commands.LoadResult, error) {
	var st ports.SnapshotStore
	if !fresh {
		s, err := openStore()
		if err != nil {
			return nil, err
		}
		st = s
	}
	result, err := commands.NewLoadCommand(engine, source, st, cfg.StatePath, !fresh).Execute(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info(result.Message)
	return result, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
