package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/notes/internal/config"
	"github.com/dukerupert/notes/internal/logging"
)

var (
	envFile  string
	addr     string
	dbPath   string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "A small web application for private notes",
	Long: `Notes lets users sign up, log in and keep short private notes.
Each note has a unique slug, derived from its title when none is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			c.Addr = addr
		}
		if cmd.Flags().Changed("db") {
			c.DBPath = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			c.LogLevel = logLevel
		}
		if err := c.Validate(); err != nil {
			return err
		}

		cfg = c
		logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "Listen address (overrides NOTES_ADDR)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides NOTES_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides NOTES_LOG_LEVEL)")
}
