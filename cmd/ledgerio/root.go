package main

import (
	"database/sql"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/config"
	"github.com/ccxiaoji/ledgerio/internal/database"
	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/logger"
)

const appVersion = "2.0.0"

// app holds the wired dependencies shared by all commands. It is populated in
// the root PersistentPreRunE so subcommands only see a ready store.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	db    *sql.DB
	store *repository.Store
}

func (a *app) init(logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	a.log = logger.New(logLevel)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return err
	}
	a.db = db
	a.store = repository.NewStore(db)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "ledgerio",
		Short:         "Personal ledger import, export and backup",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newImportCmd(a),
		newPreviewCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
		newQianjiCmd(a),
		newSeedCmd(a),
	)
	return root
}
