// Package resume persists resume metadata records as Redis hashes.
package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/krippilippa/matchagig-fast/internal/db"
	"github.com/krippilippa/matchagig-fast/internal/domain"
)

const (
	keyPrefix    = domain.KeyPrefix + "resume:"
	shaKeyPrefix = domain.KeyPrefix + "resume_sha:"
)

// store is the consumer interface for resume records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements resume metadata reads and writes.
type Repo struct {
	store store
}

// New creates a resume repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a resume record and indexes its content hash for dedupe.
func (r *Repo) Create(ctx context.Context, res domain.Resume) error {
	fields := map[string]string{
		"name":    res.Name,
		"pdf_url": res.PDFURL,
		"sha256":  res.SHA256,
	}
	if err := r.store.HSet(ctx, keyPrefix+res.ID, fields); err != nil {
		return fmt.Errorf("store resume %s: %w", res.ID, err)
	}
	if res.SHA256 != "" {
		if err := r.store.Set(ctx, shaKeyPrefix+res.SHA256, []byte(res.ID)); err != nil {
			return fmt.Errorf("index resume sha %s: %w", res.SHA256, err)
		}
	}
	return nil
}

// FindBySHA returns the id of an already ingested resume with the given
// content hash, if any.
func (r *Repo) FindBySHA(ctx context.Context, sha string) (string, bool, error) {
	data, err := r.store.Get(ctx, shaKeyPrefix+sha)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup resume sha %s: %w", sha, err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// GetMulti bulk-reads resume records by id. Ids absent from the store are
// simply missing from the returned map.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]domain.Resume, error) {
	if len(ids) == 0 {
		return map[string]domain.Resume{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("bulk read resumes: %w", err)
	}

	out := make(map[string]domain.Resume, len(ids))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		out[ids[i]] = domain.Resume{
			ID:     ids[i],
			Name:   fields["name"],
			PDFURL: fields["pdf_url"],
			SHA256: fields["sha256"],
		}
	}
	return out, nil
}
