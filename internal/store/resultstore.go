// Package store implements filesystem-backed persistence for campaign
// outcomes: the entity result store, the timeout failure ledger, and the
// invalid-entity mirror tree.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// FSResultStore keeps one JSON document per entity under
// <root>/<partition>/<slug>.json. Saving the same slug twice is legal and
// expected across campaign attempts; the last write wins.
type FSResultStore struct {
	root   string
	logger *zap.Logger
}

// NewFSResultStore returns a store rooted at dir.
func NewFSResultStore(root string, logger *zap.Logger) (*FSResultStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create result dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSResultStore{root: root, logger: logger}, nil
}

// Save persists the entity at (partition, slug(url)), overwriting any prior
// content for the same key.
func (s *FSResultStore) Save(ctx context.Context, partition, url string, entity *harvest.Entity) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if entity == nil {
		return fmt.Errorf("nil entity for %s", url)
	}

	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create partition dir %s: %w", dir, err)
	}

	payload, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	target := filepath.Join(dir, harvest.Slug(url)+".json")
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write entity %s: %w", target, err)
	}
	s.logger.Debug("entity saved",
		zap.String("partition", partition),
		zap.String("path", target),
	)
	return nil
}

// ListSlugs returns the set of slugs already persisted for a partition. A
// missing partition directory degrades to an empty set.
func (s *FSResultStore) ListSlugs(partition string) (map[string]struct{}, error) {
	slugs := make(map[string]struct{})
	entries, err := os.ReadDir(filepath.Join(s.root, partition))
	if err != nil {
		if os.IsNotExist(err) {
			return slugs, nil
		}
		return nil, fmt.Errorf("list partition %s: %w", partition, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slugs[strings.TrimSuffix(name, ".json")] = struct{}{}
	}
	return slugs, nil
}

// Load reads one persisted entity back.
func (s *FSResultStore) Load(partition, slug string) (*harvest.Entity, error) {
	target := filepath.Join(s.root, partition, slug+".json")
	payload, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read entity %s: %w", target, err)
	}
	var entity harvest.Entity
	if err := json.Unmarshal(payload, &entity); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", target, err)
	}
	return &entity, nil
}

// ListPartitions returns the partition names with any persisted results,
// sorted. A missing root degrades to an empty list.
func (s *FSResultStore) ListPartitions() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list result partitions: %w", err)
	}
	var partitions []string
	for _, entry := range entries {
		if entry.IsDir() {
			partitions = append(partitions, entry.Name())
		}
	}
	sort.Strings(partitions)
	return partitions, nil
}

// EntityPath exposes the on-disk location of a persisted entity so the
// validate pass can mirror raw files without re-encoding them.
func (s *FSResultStore) EntityPath(partition, slug string) string {
	return filepath.Join(s.root, partition, slug+".json")
}
