package main

import (
	"github.com/spf13/cobra"

	"github.com/erazemk/trznica/internal/config"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	dbPath     string
	logPath    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "trznica",
		Short:         "trznica - second-hand marketplace server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TRZNICA_* variables")
	cmd.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "SQLite database path (default trznica.sqlite3)")
	cmd.PersistentFlags().StringVarP(&opts.logPath, "log", "l", "", "log file path (default: stdout/stderr only)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInitCommand(opts))

	return cmd
}

// load reads the configuration and applies the flags the user set.
func (o *rootOptions) load(cmd *cobra.Command) (config.Options, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = o.dbPath
	}
	if flags.Changed("log") {
		cfg.LogPath = o.logPath
	}
	return cfg, cfg.Validate()
}
