package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/trznica/internal/db"
)

func newInitCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new database with the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if err := initDatabase(cfg.DBPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database created: %s\nSchema initialized.\n", cfg.DBPath)
			return nil
		},
	}
}

// initDatabase creates the database file and its schema. An existing file is
// left untouched.
func initDatabase(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("database file %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking database file: %w", err)
	}

	database, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		os.Remove(path)
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
