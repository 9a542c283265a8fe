package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// ArchiveStore keeps accepted listing rows in a JSON array on disk, newest
// first, and derives the dedup key set from it.
type ArchiveStore struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	rows []domain.ListingRow
	keys map[string]struct{}
}

var (
	_ ports.DedupStore     = (*ArchiveStore)(nil)
	_ ports.ListingArchive = (*ArchiveStore)(nil)
)

// OpenArchive loads the archive at path. A missing file starts empty; an
// unreadable one is logged as malformed and also starts empty.
func OpenArchive(path string, logger *slog.Logger) (*ArchiveStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ArchiveStore{
		path:   path,
		logger: logger.With("component", "listing_archive"),
		keys:   make(map[string]struct{}),
	}

	rows, err := readRows(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		rows = nil
	case errors.Is(err, domain.ErrMalformedState):
		s.logger.Warn("archive unreadable, starting empty", "path", path, "error", err)
		rows = nil
	default:
		return nil, err
	}

	s.rows = rows
	for _, row := range rows {
		s.keys[row.DedupKey()] = struct{}{}
	}
	return s, nil
}

func readRows(path string) ([]domain.ListingRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []domain.ListingRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedState, path, err)
	}
	return rows, nil
}

// Seen reports whether key was accepted before.
func (s *ArchiveStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// MarkSeen records key without adding a row.
func (s *ArchiveStore) MarkSeen(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
	return nil
}

// MarkIfNew inserts key and reports whether it was absent.
func (s *ArchiveStore) MarkIfNew(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

// Unmark drops key unless an archived row still carries it.
func (s *ArchiveStore) Unmark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.DedupKey() == key {
			return nil
		}
	}
	delete(s.keys, key)
	return nil
}

// Prepend puts rows at the head of the archive and rewrites the file.
func (s *ArchiveStore) Prepend(_ context.Context, rows []domain.ListingRow) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]domain.ListingRow, 0, len(rows)+len(s.rows))
	merged = append(merged, rows...)
	merged = append(merged, s.rows...)

	if err := writeRows(s.path, merged); err != nil {
		return err
	}
	s.rows = merged
	for _, row := range rows {
		s.keys[row.DedupKey()] = struct{}{}
	}
	return nil
}

// Rows returns a copy of the archived rows, newest first.
func (s *ArchiveStore) Rows() []domain.ListingRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ListingRow(nil), s.rows...)
}

func writeRows(path string, rows []domain.ListingRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}
