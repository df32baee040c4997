package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/types"
)

var bucketTemplates = []byte("templates")

// Cache tracks metadata about packaged templates for reuse and pruning.
// Entries are keyed by template name and stored in a local bbolt database.
type Cache struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// Open opens (or creates) the template cache database at path
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open template cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTemplates)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize template cache: %w", err)
	}

	return &Cache{
		db:     db,
		logger: log.WithComponent("template-cache"),
	}, nil
}

// Close closes the underlying database
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put inserts or replaces the metadata for a template
func (c *Cache) Put(info *types.TemplateInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode template info: %w", err)
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTemplates).Put([]byte(info.Name), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store template %s: %w", info.Name, err)
	}

	c.updateGauges()
	return nil
}

// Get returns the metadata for a template name
func (c *Cache) Get(name string) (*types.TemplateInfo, error) {
	var info *types.TemplateInfo

	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTemplates).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("template %s: %w", name, errdefs.ErrNotFound)
		}
		info = &types.TemplateInfo{}
		return json.Unmarshal(data, info)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// List returns metadata for every cached template
func (c *Cache) List() ([]*types.TemplateInfo, error) {
	var infos []*types.TemplateInfo

	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTemplates).ForEach(func(k, v []byte) error {
			info := &types.TemplateInfo{}
			if err := json.Unmarshal(v, info); err != nil {
				return fmt.Errorf("corrupt cache entry %s: %w", k, err)
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Touch updates the last-accessed time of a template
func (c *Cache) Touch(name string) error {
	info, err := c.Get(name)
	if err != nil {
		return err
	}
	info.LastAccessed = time.Now()
	return c.Put(info)
}

// Remove drops a template from the cache. Removing an unknown template is
// not an error.
func (c *Cache) Remove(name string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTemplates).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("failed to remove template %s: %w", name, err)
	}
	c.updateGauges()
	return nil
}

// PruneOlderThan removes entries not accessed within maxAge and returns
// the names removed. The archives themselves are left to the caller.
func (c *Cache) PruneOlderThan(maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)

	infos, err := c.List()
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, info := range infos {
		last := info.LastAccessed
		if last.IsZero() {
			last = info.CreatedAt
		}
		if last.Before(cutoff) {
			if err := c.Remove(info.Name); err != nil {
				return pruned, err
			}
			pruned = append(pruned, info.Name)
			c.logger.Info().Str("template", info.Name).Msg("pruned stale template")
		}
	}

	return pruned, nil
}

// updateGauges refreshes the template metrics from the cache contents
func (c *Cache) updateGauges() {
	infos, err := c.List()
	if err != nil {
		return
	}
	var bytes int64
	for _, info := range infos {
		bytes += info.Size
	}
	metrics.TemplatesCached.Set(float64(len(infos)))
	metrics.TemplateBytes.Set(float64(bytes))
}
