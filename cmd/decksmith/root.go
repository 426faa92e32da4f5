package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conorfennell/decksmith/internal/config"
)

// flagConfig is set by the --config flag.
var flagConfig string

// cfg is loaded by PersistentPreRunE so every subcommand sees the merged
// defaults, file, environment and flags.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "decksmith",
	Short: "Build and read Anki .apkg flashcard packages",
	Long: `decksmith converts flashcards to Anki packages (.apkg) and back.
Cards can come from a JSON file, a directory of markdown files or a git
repository, and the same codec is served over HTTP by "decksmith serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		loaded, err := config.Load(flagConfig, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(cfg.Log.NewLogger(os.Stderr))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	config.RegisterFlags(rootCmd.PersistentFlags(), "log-level", "log-format")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}
