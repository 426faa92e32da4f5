package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/conorfennell/decksmith/internal/apkg"
	"github.com/conorfennell/decksmith/internal/collect"
	"github.com/conorfennell/decksmith/internal/config"
	"github.com/conorfennell/decksmith/internal/domain"
)

var (
	flagInput    string
	flagDir      string
	flagGit      string
	flagReposDir string
	flagOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write flashcards to an .apkg package",
	Long: `Write flashcards to an .apkg package.

Exactly one source is read: --input (a JSON array of cards or a deck object
with a "cards" field), --dir (markdown files with Q:/A: blocks) or --git
(a repository of such files, cloned under --repos-dir).`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&flagInput, "input", "", "JSON file of cards")
	f.StringVar(&flagDir, "dir", "", "directory of markdown card files")
	f.StringVar(&flagGit, "git", "", "git repository of markdown card files")
	f.StringVar(&flagReposDir, "repos-dir", filepath.Join(os.TempDir(), "decksmith-repos"), "where --git repositories are cloned")
	f.StringVarP(&flagOut, "out", "o", "deck.apkg", "package file to write")
	config.RegisterFlags(f, "deck-name", "description")
	exportCmd.MarkFlagsMutuallyExclusive("input", "dir", "git")
	exportCmd.MarkFlagsOneRequired("input", "dir", "git")
	exportCmd.MarkFlagFilename("input", "json")
	exportCmd.MarkFlagFilename("out", "apkg")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		cards []domain.Flashcard
		err   error
	)
	switch {
	case flagInput != "":
		cards, err = readCardsJSON(flagInput)
	case flagDir != "":
		cards, err = collected(collect.Dir(flagDir))
	case flagGit != "":
		cards, err = collected(collect.Git(ctx, flagGit, flagReposDir))
	}
	if err != nil {
		return err
	}

	valid := validCards(cards)
	if len(valid) == 0 {
		return errors.New("no valid cards to export")
	}
	if skipped := len(cards) - len(valid); skipped > 0 {
		slog.Warn("Skipping cards without a front or back", "count", skipped)
	}

	data, err := apkg.Export(ctx, cfg.Deck.Name, cfg.Deck.Description, valid)
	if err != nil {
		return fmt.Errorf("failed to export deck: %w", err)
	}
	if err := os.WriteFile(flagOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", flagOut, err)
	}

	slog.Info("Deck exported", "deck", cfg.Deck.Name, "cards", len(valid), "path", flagOut, "bytes", len(data))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cards to %s\n", len(valid), flagOut)
	return nil
}

// readCardsJSON accepts either a bare array of cards or a deck object.
func readCardsJSON(path string) ([]domain.Flashcard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cards []domain.Flashcard
	if err := json.Unmarshal(data, &cards); err == nil {
		return cards, nil
	}
	var deck domain.Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return deck.Cards, nil
}

// collected logs per-file parse failures and returns the cards found.
func collected(res *collect.Result, err error) ([]domain.Flashcard, error) {
	if err != nil {
		return nil, err
	}
	for _, e := range res.Errors {
		slog.Warn("Skipping file", "error", e)
	}
	return res.Cards, nil
}

var cardValidator = validator.New(validator.WithRequiredStructEnabled())

func validCards(cards []domain.Flashcard) []domain.Flashcard {
	valid := make([]domain.Flashcard, 0, len(cards))
	for _, c := range cards {
		if cardValidator.Struct(c) == nil {
			valid = append(valid, c)
		}
	}
	return valid
}
