// Package blob stores source files content-addressed by their SHA-256 and
// hands back stable public URLs. The hash-named layout keeps uploads
// idempotent and sidesteps filename encoding issues.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes source bytes under dir/<sha>/<sha>.<ext> and serves them at
// baseURL/<sha>/<sha>.<ext>.
type Store struct {
	dir     string
	baseURL string
}

// New creates a blob store rooted at dir.
func New(dir, baseURL string) *Store {
	return &Store{dir: dir, baseURL: baseURL}
}

// Dir returns the storage root, for mounting a file server.
func (s *Store) Dir() string { return s.dir }

// Put stores data and returns its content hash and public URL. Re-putting
// identical bytes is a no-op returning the same address.
func (s *Store) Put(data []byte, ext string) (sha, url string, err error) {
	h := sha256.Sum256(data)
	sha = hex.EncodeToString(h[:])

	name := sha
	if ext != "" {
		name = sha + "." + ext
	}
	dir := filepath.Join(s.dir, sha)
	path := filepath.Join(dir, name)

	if _, statErr := os.Stat(path); statErr == nil {
		return sha, s.url(sha, name), nil
	}

	if err = os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create blob dir: %w", err)
	}
	if err = os.WriteFile(path, data, 0o640); err != nil {
		return "", "", fmt.Errorf("write blob %s: %w", sha, err)
	}
	return sha, s.url(sha, name), nil
}

func (s *Store) url(sha, name string) string {
	if s.baseURL == "" {
		return "/files/" + sha + "/" + name
	}
	return s.baseURL + "/" + sha + "/" + name
}
