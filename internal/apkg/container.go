package apkg

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// Entry names inside a package.
const (
	LegacyCollectionName  = "collection.anki2"
	CurrentCollectionName = "collection.anki21"
	MediaName             = "media"
)

// collectionNames is probed in order; packages written by current clients
// carry a placeholder legacy collection next to the real one.
var collectionNames = []string{CurrentCollectionName, LegacyCollectionName}

type entry struct {
	name string
	data []byte
}

// writeContainer deflates the entries into a zip archive. Every entry gets
// the same modification time so the output only depends on its inputs.
func writeContainer(modified time.Time, entries ...entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// readCollection returns the collection database stored in a package.
func readCollection(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	for _, name := range collectionNames {
		f := findEntry(zr, name)
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open %s: %v", ErrInvalidPackage, name, err)
		}
		db, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidPackage, name, err)
		}
		return db, nil
	}
	return nil, ErrInvalidPackage
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
