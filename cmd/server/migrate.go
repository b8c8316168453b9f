package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/party-queue/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		pg, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, pg.Close()) }()

		if err := pg.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
