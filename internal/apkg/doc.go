// Package apkg reads and writes Anki deck packages.
//
// A package is a zip archive holding an SQLite collection database and a
// media manifest. Export writes one deck of basic front/back notes; Import
// reads the notes of any package, legacy or current layout, back into
// flashcards.
//
//	data, err := apkg.Export(ctx, "Spanish", "", cards)
//	name, cards, err := apkg.Import(ctx, data)
package apkg
