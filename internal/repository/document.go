package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"eduplatform/internal/model"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// Document is the whole persisted data set. Backends only ever load or
// replace it as a unit.
type Document struct {
	Users    []model.User    `json:"users"`
	Meetings []model.Meeting `json:"meetings"`
	Invites  []model.Invite  `json:"invites"`
	Tests    []model.Test    `json:"tests"`
	Attempts []model.Attempt `json:"attempts"`
}

func emptyDocument() *Document {
	doc := &Document{}
	doc.normalize()
	return doc
}

func (d *Document) normalize() {
	if d.Users == nil {
		d.Users = []model.User{}
	}
	if d.Meetings == nil {
		d.Meetings = []model.Meeting{}
	}
	if d.Invites == nil {
		d.Invites = []model.Invite{}
	}
	if d.Tests == nil {
		d.Tests = []model.Test{}
	}
	if d.Attempts == nil {
		d.Attempts = []model.Attempt{}
	}
}

func decodeDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, errors.Wrap(err, "decode document")
		}
	}
	doc.normalize()
	return doc, nil
}

func encodeDocument(doc *Document) ([]byte, error) {
	doc.normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return data, nil
}

// Backend loads and replaces the entire document
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

// DocStore serializes load-modify-save cycles over a Backend
type DocStore struct {
	mu      sync.Mutex
	backend Backend
}

// NewDocStore wraps a backend
func NewDocStore(backend Backend) *DocStore {
	return &DocStore{backend: backend}
}

// View runs fn against a freshly loaded document
func (s *DocStore) View(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update runs fn and persists the document when fn succeeds
func (s *DocStore) Update(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.backend.Save(ctx, doc)
}

// Close releases the backend
func (s *DocStore) Close() error {
	return s.backend.Close()
}

// MemoryBackend keeps the encoded document in memory
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(ctx context.Context) (*Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return decodeDocument(b.data)
}

func (b *MemoryBackend) Save(ctx context.Context, doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
