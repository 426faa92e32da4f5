package apkg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conorfennell/decksmith/internal/domain"
	"github.com/conorfennell/decksmith/internal/schema"
	"github.com/conorfennell/decksmith/internal/storage"
)

var fixedTime = time.UnixMilli(1700000000123)

func fixedClock() time.Time { return fixedTime }

func newTestEncoder() *Encoder {
	return &Encoder{IDs: NewClockIDs(fixedClock), Clock: fixedClock}
}

// collectionSpec describes a hand-built collection in a layout the encoder
// does not produce itself.
type collectionSpec struct {
	decksBlob  string
	deckTable  []string
	noteFields []string
}

func buildCollection(t *testing.T, spec collectionSpec) []byte {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateTables(ctx))
	require.NoError(t, db.InsertCollection(ctx, storage.Collection{
		ID: 1, Ver: schema.Version, Conf: "{}", Models: "{}", Decks: spec.decksBlob, DConf: "{}", Tags: "{}",
	}))
	if spec.deckTable != nil {
		require.NoError(t, db.Exec(ctx, `CREATE TABLE decks (id integer primary key, name text not null)`))
		for i, name := range spec.deckTable {
			require.NoError(t, db.Exec(ctx, `INSERT INTO decks (id, name) VALUES (?, ?)`, i+1, name))
		}
	}
	for i, flds := range spec.noteFields {
		require.NoError(t, db.Exec(ctx,
			`INSERT INTO notes VALUES (?, ?, 1, 0, -1, '', ?, '', 0, 0, '')`,
			i+1, "guid", flds))
	}

	data, err := db.Serialize()
	require.NoError(t, err)
	return data
}

func buildPackage(t *testing.T, collectionName string, spec collectionSpec) []byte {
	t.Helper()
	data, err := writeContainer(fixedTime,
		entry{name: collectionName, data: buildCollection(t, spec)},
		entry{name: MediaName, data: []byte("{}")},
	)
	require.NoError(t, err)
	return data
}

func openPackage(t *testing.T, data []byte) *storage.DB {
	t.Helper()
	collection, err := readCollection(data)
	require.NoError(t, err)
	db, err := storage.Load(context.Background(), collection)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCards() []domain.Flashcard {
	return []domain.Flashcard{
		{Front: "hola", Back: "hello"},
		{Front: "gato", Back: "cat", Example: "El gato duerme.", ExampleTranslation: "The cat sleeps."},
		{Front: "a & b", Back: "<c>\n\"d\" 'e'"},
	}
}
