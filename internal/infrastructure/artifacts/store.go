package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Store writes full-fetched bodies under dir/<source>/<sha256><ext>.
type Store struct {
	dir string
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore roots the store at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save persists res.Body and returns its path. Identical content maps to the
// same file and is written once.
func (s *Store) Save(_ context.Context, c domain.Candidate, res domain.FetchResult) (string, error) {
	if res.Body == nil {
		return "", fmt.Errorf("artifact %s/%s: empty body", c.Source, c.ID)
	}

	hash := res.ContentHash
	if hash == "" {
		sum := sha256.Sum256(res.Body)
		hash = hex.EncodeToString(sum[:])
	}
	ext := strings.ToLower(c.Ext)
	if !safeExt.MatchString(ext) {
		ext = ".bin"
	}

	dir := filepath.Join(s.dir, string(c.Source))
	path := filepath.Join(dir, hash+ext)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(res.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move artifact: %w", err)
	}
	return path, nil
}
