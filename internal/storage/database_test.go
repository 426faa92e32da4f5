package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/decksmith/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateTables(context.Background()))
	return db
}

func TestInsertAndRead(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	col := Collection{ID: 1, Crt: 10, Mod: 10, Scm: 10, Ver: 11, Conf: "{}", Models: "{}", Decks: `{"1":{"name":"Default"}}`, DConf: "{}", Tags: "{}"}
	require.NoError(t, db.InsertCollection(ctx, col))

	notes := []domain.Note{
		{ID: 100, GUID: "card_100", ModelID: 7, Mod: 10, USN: -1, Fields: []string{"uno", "one"}, SortField: "uno", Checksum: 42},
		{ID: 101, GUID: "card_101", ModelID: 7, Mod: 10, USN: -1, Fields: []string{"dos", "two"}, SortField: "dos", Checksum: 43},
	}
	cards := []domain.CardRecord{
		{ID: 102, NoteID: 100, DeckID: 5, Mod: 10, USN: -1, Due: 1},
		{ID: 103, NoteID: 101, DeckID: 5, Mod: 10, USN: -1, Due: 2},
	}
	require.NoError(t, db.InsertNotes(ctx, notes, cards))

	gotCol, err := db.GetCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, col, *gotCol)

	gotNotes, err := db.GetNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, notes, gotNotes)

	gotCards, err := db.GetCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, cards, gotCards)

	fields, err := db.NoteFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"uno\x1fone", "dos\x1ftwo"}, fields)

	decks, err := db.CollectionDecks(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"1":{"name":"Default"}}`, decks)
}

func TestSerializeAndLoad(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.InsertCollection(ctx, Collection{ID: 1, Ver: 11, Conf: "{}", Models: "{}", Decks: "{}", DConf: "{}", Tags: "{}"}))
	require.NoError(t, db.InsertNotes(ctx, []domain.Note{{ID: 1, GUID: "g", Fields: []string{"a", "b"}, SortField: "a"}}, nil))

	data, err := db.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))

	loaded, err := Load(ctx, data)
	require.NoError(t, err)
	fields, err := loaded.NoteFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a\x1fb"}, fields)

	require.NotEmpty(t, loaded.path)
	assert.FileExists(t, loaded.path)
	require.NoError(t, loaded.Close())
	assert.NoFileExists(t, loaded.path)
}

func TestLoadIsReadOnly(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	data, err := db.Serialize()
	require.NoError(t, err)

	loaded, err := Load(ctx, data)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Error(t, loaded.Exec(ctx, `INSERT INTO graves (usn, oid, type) VALUES (0, 1, 0)`))
}

func TestLoadUnreadableCollection(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
	}{
		{name: "empty file", input: []byte{}},
		{name: "truncated header", input: []byte("SQLite format 3\x00\x10\x00")},
		{name: "not sqlite", input: []byte("definitely not a database file, just text")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			loaded, err := Load(ctx, tc.input)
			if err != nil {
				return
			}
			_, err = loaded.NoteFields(ctx)
			assert.Error(t, err)

			path := loaded.path
			require.NoError(t, loaded.Close())
			assert.NoFileExists(t, path)
		})
	}
}

func TestInsertNotesRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	notes := []domain.Note{
		{ID: 1, GUID: "a", Fields: []string{"a", "b"}},
		{ID: 1, GUID: "dup", Fields: []string{"c", "d"}},
	}
	require.Error(t, db.InsertNotes(ctx, notes, nil))

	got, err := db.GetNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNoteFieldsSkipsEmpty(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Exec(ctx, `INSERT INTO notes VALUES (1, 'g1', 1, 0, 0, '', '', '', 0, 0, '')`))
	require.NoError(t, db.Exec(ctx, `INSERT INTO notes VALUES (2, 'g2', 1, 0, 0, '', 'x', 'x', 0, 0, '')`))

	fields, err := db.NoteFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, fields)
}

func TestDeckTableNames(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.DeckTableNames(ctx)
	assert.Error(t, err, "legacy layout has no decks table")

	require.NoError(t, db.Exec(ctx, `CREATE TABLE decks (id integer primary key, name text not null)`))
	require.NoError(t, db.Exec(ctx, `INSERT INTO decks VALUES (2, 'French'), (1, 'Default')`))

	names, err := db.DeckTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "French"}, names)
}

func TestLoadGarbage(t *testing.T) {
	ctx := context.Background()
	db, err := Load(ctx, []byte("this is not a database file at all"))
	if err != nil {
		return
	}
	defer db.Close()

	_, err = db.NoteFields(ctx)
	assert.Error(t, err)
}

func TestCollectionDecksMissingRow(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CollectionDecks(context.Background())
	assert.Error(t, err)
}
