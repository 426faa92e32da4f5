package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/conorfennell/decksmith/internal/domain"
	"github.com/conorfennell/decksmith/internal/fieldtext"
	"github.com/conorfennell/decksmith/internal/schema"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB is a private collection database. Every statement runs on a single
// pinned connection, since each connection to ":memory:" would otherwise see
// its own empty database.
type DB struct {
	pool *sql.DB
	conn *sql.Conn
	// path is the temporary file behind a loaded database, removed on Close.
	path string
}

// serializer is implemented by the sqlite driver's connection.
type serializer interface {
	Serialize() ([]byte, error)
}

// Open creates an empty in-memory collection database.
func Open(ctx context.Context) (*DB, error) {
	return open(ctx, ":memory:")
}

func open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(1)

	conn, err := pool.Conn(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{pool: pool, conn: conn}, nil
}

// Load opens a read-only copy of a serialized collection file. The bytes are
// written to a temporary file that Close removes.
func Load(ctx context.Context, data []byte) (*DB, error) {
	f, err := os.CreateTemp("", "decksmith-*.anki2")
	if err != nil {
		return nil, fmt.Errorf("failed to create collection file: %w", err)
	}
	path := f.Name()
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write collection file: %w", err)
	}

	db, err := open(ctx, "file:"+path+"?mode=ro")
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	db.path = path
	return db, nil
}

// Close releases the connection and the database behind it.
func (db *DB) Close() error {
	connErr := db.conn.Close()
	poolErr := db.pool.Close()
	var removeErr error
	if db.path != "" {
		removeErr = os.Remove(db.path)
	}
	return errors.Join(connErr, poolErr, removeErr)
}

// Serialize returns the database in its on-disk file format.
func (db *DB) Serialize() ([]byte, error) {
	var data []byte
	err := db.conn.Raw(func(driverConn any) error {
		s, ok := driverConn.(serializer)
		if !ok {
			return errors.New("sqlite driver does not support serialization")
		}
		var err error
		data, err = s.Serialize()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize database: %w", err)
	}
	return data, nil
}

// CreateTables applies the collection schema.
func (db *DB) CreateTables(ctx context.Context) error {
	for _, ddl := range schema.Tables {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Collection is the single row of the col table.
type Collection struct {
	ID     int64
	Crt    int64
	Mod    int64
	Scm    int64
	Ver    int
	Dty    int
	USN    int
	Ls     int64
	Conf   string
	Models string
	Decks  string
	DConf  string
	Tags   string
}

// InsertCollection writes the col row.
func (db *DB) InsertCollection(ctx context.Context, c Collection) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.Crt, c.Mod, c.Scm, c.Ver, c.Dty, c.USN, c.Ls,
		c.Conf, c.Models, c.Decks, c.DConf, c.Tags,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

// InsertNotes writes notes and their cards in one transaction.
func (db *DB) InsertNotes(ctx context.Context, notes []domain.Note, cards []domain.CardRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	noteStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	cardStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer cardStmt.Close()

	for _, n := range notes {
		_, err := noteStmt.ExecContext(ctx,
			n.ID,
			n.GUID,
			n.ModelID,
			n.Mod,
			n.USN,
			n.Tags,
			fieldtext.JoinFields(n.Fields...),
			n.SortField,
			int64(n.Checksum),
		)
		if err != nil {
			return fmt.Errorf("failed to insert note %d: %w", n.ID, err)
		}
	}

	for _, c := range cards {
		_, err := cardStmt.ExecContext(ctx,
			c.ID, c.NoteID, c.DeckID, c.Ord, c.Mod, c.USN,
			c.Type, c.Queue, c.Due, c.Ivl, c.Factor, c.Reps, c.Lapses,
			c.Left, c.ODue, c.ODid, c.Flags, c.Data,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notes: %w", err)
	}
	return nil
}

// NoteFields returns the raw flds value of every note, ordered by id.
// Notes with a NULL or empty flds are left out.
func (db *DB) NoteFields(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT flds FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var flds sql.NullString
		if err := rows.Scan(&flds); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		if flds.Valid && flds.String != "" {
			fields = append(fields, flds.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return fields, nil
}

// DeckTableNames returns the names in a first-class decks table, ordered by id.
// Collections using the legacy layout have no such table and get an error.
func (db *DB) DeckTableNames(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM decks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query decks: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}
	return names, nil
}

// CollectionDecks returns the col.decks JSON blob.
func (db *DB) CollectionDecks(ctx context.Context) (string, error) {
	var decks sql.NullString
	err := db.conn.QueryRowContext(ctx, `SELECT decks FROM col LIMIT 1`).Scan(&decks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("collection row not found: %w", err)
		}
		return "", fmt.Errorf("failed to query collection decks: %w", err)
	}
	return decks.String, nil
}

// GetCollection reads the col row.
func (db *DB) GetCollection(ctx context.Context) (*Collection, error) {
	var c Collection
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags
		FROM col LIMIT 1
	`).Scan(
		&c.ID, &c.Crt, &c.Mod, &c.Scm, &c.Ver, &c.Dty, &c.USN, &c.Ls,
		&c.Conf, &c.Models, &c.Decks, &c.DConf, &c.Tags,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	return &c, nil
}

// GetNotes reads every note row, ordered by id.
func (db *DB) GetNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, guid, mid, mod, usn, tags, flds, sfld, csum
		FROM notes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		var flds string
		var csum int64
		if err := rows.Scan(&n.ID, &n.GUID, &n.ModelID, &n.Mod, &n.USN, &n.Tags, &flds, &n.SortField, &csum); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		n.Fields = fieldtext.SplitFields(flds)
		n.Checksum = uint32(csum)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return notes, nil
}

// GetCards reads every card row, ordered by id.
func (db *DB) GetCards(ctx context.Context) ([]domain.CardRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data
		FROM cards ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.CardRecord
	for rows.Next() {
		var c domain.CardRecord
		if err := rows.Scan(
			&c.ID, &c.NoteID, &c.DeckID, &c.Ord, &c.Mod, &c.USN,
			&c.Type, &c.Queue, &c.Due, &c.Ivl, &c.Factor, &c.Reps, &c.Lapses,
			&c.Left, &c.ODue, &c.ODid, &c.Flags, &c.Data,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards, nil
}

// Exec runs a statement against the database. Tests use it to build
// collections in layouts this package does not write itself.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}
