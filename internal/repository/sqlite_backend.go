package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const mainDocument = "main"

// SQLiteBackend keeps the document as a single row of a SQLite table
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database file
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	createDocuments := `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createDocuments); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create documents table")
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (*Document, error) {
	var body string
	err := b.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, mainDocument).Scan(&body)
	if err == sql.ErrNoRows {
		return emptyDocument(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}
	return decodeDocument([]byte(body))
}

func (b *SQLiteBackend) Save(ctx context.Context, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		mainDocument, string(data), time.Now().UTC())
	return errors.Wrap(err, "save document")
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
