package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/baiirun/tasks/internal/config"
	"github.com/baiirun/tasks/internal/db"
	"github.com/baiirun/tasks/internal/logging"
	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/tracker"
)

// Persistent flags
var (
	flagConfig string
	flagDB     string
	flagJSON   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasks",
		Short:         "Schedule tasks, epics and subtasks without overlaps",
		Long:          `A tracker for tasks, epics and their subtasks. Time-boxed items are kept on a single non-overlapping schedule; epic status and span are derived from their subtasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.tasks/config.yaml)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default ~/.tasks/tasks.db)")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON")

	root.AddCommand(
		newAddCmd(),
		newUpdateCmd(),
		newShowCmd(),
		newListCmd(),
		newSubtasksCmd(),
		newRmCmd(),
		newClearCmd(),
		newPrioritizedCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newTUICmd(),
		newConfigCmd(),
	)
	return root
}

// env is everything a command needs once configuration is resolved.
type env struct {
	cfg config.Config
	log zerolog.Logger
	db  *db.DB
	tr  *tracker.Tracker
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

// setup loads configuration, opens the database and restores the tracker.
func setup() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log, os.Stderr)

	path := flagDB
	if path == "" {
		path = cfg.DB
	}
	if path == "" {
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Init(); err != nil {
		_ = database.Close()
		return nil, err
	}

	tr, err := tracker.Open(database, log, manager.WithHistoryLimit(cfg.HistoryLimit))
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	log.Debug().Str("db", path).Msg("tracker opened")
	return &env{cfg: cfg, log: log, db: database, tr: tr}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
