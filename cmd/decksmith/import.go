package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/decksmith/internal/apkg"
	"github.com/conorfennell/decksmith/internal/config"
)

var flagJSON bool

var importCmd = &cobra.Command{
	Use:   "import <deck.apkg>",
	Short: "Print the flashcards of an .apkg package",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	config.RegisterFlags(importCmd.Flags(), "policy")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	policy, err := apkg.ParseNotePolicy(cfg.Import.Policy)
	if err != nil {
		return err
	}
	deck, err := apkg.Decoder{Policy: policy}.Decode(cmd.Context(), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	}

	fmt.Fprintf(out, "%s (%d cards)\n", deck.Name, len(deck.Cards))
	for _, c := range deck.Cards {
		fmt.Fprintf(out, "\nQ: %s\nA: %s\n", c.Front, c.Back)
	}
	return nil
}
