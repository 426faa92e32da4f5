package apkg

import "errors"

// Sentinel errors for the apkg package.
// Use errors.Is to check: errors.Is(err, apkg.ErrNoCardsFound)
var (
	ErrEmptyInput       = errors.New("apkg: no cards to export")
	ErrInvalidPackage   = errors.New("apkg: invalid package: no collection database found")
	ErrNoCollectionData = errors.New("apkg: failed to read cards from collection")
	ErrNoCardsFound     = errors.New("apkg: no cards found in package")
)
