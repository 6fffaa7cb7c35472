package repository

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileBackend stores the document as one JSON file
type FileBackend struct {
	path string
}

// NewFileBackend opens the JSON file, creating an empty document if missing
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	b := &FileBackend{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("database file not found, creating", "path", path)
		if err := b.Save(context.Background(), emptyDocument()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	return b, nil
}

func (b *FileBackend) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", b.path)
	}
	return decodeDocument(data)
}

func (b *FileBackend) Save(ctx context.Context, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data)
}

func (b *FileBackend) Close() error {
	return nil
}

// writeFileAtomic writes to a temp file in the same directory then renames it
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}
