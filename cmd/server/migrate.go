package main

import (
	"errors"
	"fmt"

	"airline/pkg/config"
	"airline/pkg/database"

	"github.com/spf13/cobra"
)

var rollback bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage != config.StorageSQL {
			return errors.New("migrate requires sql storage")
		}

		db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if rollback {
			err = database.Rollback(db, cfg.DBDriver, log)
		} else {
			err = database.Migrate(db, cfg.DBDriver, log)
		}
		if err != nil {
			return err
		}

		v, err := database.Version(db, cfg.DBDriver, log)
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d\n", v)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&rollback, "down", false, "roll back the most recent migration")
}
