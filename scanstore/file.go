package scanstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/purescan/purescan/models"
)

// FileStore persists the whole collection as a single JSON document on local
// disk, so scan history survives process restarts. Every mutating call
// rewrites the file and commits it with an atomic rename before returning; a
// crash immediately after a successful call therefore never loses that update.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string]models.ScanRecord
}

// OpenFileStore loads the collection at path, creating parent directories as
// needed. A missing file is a valid empty store. If the persisted data cannot
// be parsed, the returned store is usable but empty and the error wraps
// ErrCorrupt so the caller can surface the condition; the corrupt file is
// left in place until the next successful write.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("scanstore: file path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:    path,
		records: make(map[string]models.ScanRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file %s: %w", path, err)
	}

	var recs []models.ScanRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		slog.Warn("Scan history file is unreadable, starting empty.", "path", path, "error", err)
		return s, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	for _, rec := range recs {
		s.records[rec.ID] = rec
	}
	return s, nil
}

// Create implements Store.
func (s *FileStore) Create(ctx context.Context, rec models.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	s.records[rec.ID] = rec
	if err := s.persistLocked(); err != nil {
		delete(s.records, rec.ID)
		return err
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (models.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return models.ScanRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List implements Store. Records are ordered newest first; the order is
// derived at read time, not stored.
func (s *FileStore) List(ctx context.Context) ([]models.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]models.ScanRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sortNewestFirst(recs)
	return recs, nil
}

// Update implements Store. The mutation runs under the store lock, so
// interleaved writers on the same id cannot lose updates.
func (s *FileStore) Update(ctx context.Context, id string, mutate func(*models.ScanRecord) error) (models.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[id]
	if !ok {
		return models.ScanRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec := prev
	if err := mutate(&rec); err != nil {
		return models.ScanRecord{}, err
	}
	rec.ID = prev.ID
	rec.CreatedAt = prev.CreatedAt

	s.records[id] = rec
	if err := s.persistLocked(); err != nil {
		s.records[id] = prev
		return models.ScanRecord{}, err
	}
	return rec, nil
}

// persistLocked writes the full collection to a temp file and renames it over
// the store path. Callers must hold s.mu.
func (s *FileStore) persistLocked() error {
	recs := make([]models.ScanRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	sortNewestFirst(recs)

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scan history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".scanhistory-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write scan history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to finalize scan history write: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit scan history: %w", err)
	}
	return nil
}

func sortNewestFirst(recs []models.ScanRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
