package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/lockfile"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
)

const (
	// VMIDMin and VMIDMax bound the assignable VMID range. Proxmox
	// reserves ids below 100.
	VMIDMin uint32 = 100
	VMIDMax uint32 = 999999

	// MaxProbes bounds the linear probe on collision
	MaxProbes = 1000
)

// Inventory reports the VMIDs currently known to the external container
// tool. Assignment probes against it so a generated id never collides
// with a container hutch did not create.
type Inventory interface {
	ListVMIDs(ctx context.Context) ([]uint32, error)
}

// Store assigns and persists the container_id -> VMID mapping. The
// persisted map is an injective partial function: no two container ids
// ever share a VMID.
type Store struct {
	path      string
	inventory Inventory
	logger    zerolog.Logger
}

// NewStore creates an identity store backed by the mapping file at path.
// inventory may be nil, in which case only the persisted map is probed.
func NewStore(path string, inventory Inventory) *Store {
	return &Store{
		path:      path,
		inventory: inventory,
		logger:    log.WithComponent("identity"),
	}
}

// Assign returns the VMID for containerID, generating and persisting one
// on first use. Re-assigning an already-known container id returns the
// existing VMID unchanged.
func (s *Store) Assign(ctx context.Context, containerID, bundlePath string) (uint32, error) {
	var vmid uint32

	err := lockfile.WithLock(s.lockPath(), func() error {
		mapping, err := s.load()
		if err != nil {
			return err
		}

		if entry, ok := mapping[containerID]; ok {
			vmid = entry.VMID
			return nil
		}

		live, err := s.liveVMIDs(ctx)
		if err != nil {
			return err
		}

		candidate, err := s.probe(containerID, mapping, live)
		if err != nil {
			return err
		}

		mapping[containerID] = types.MappingEntry{
			VMID:       candidate,
			CreatedAt:  time.Now().Unix(),
			BundlePath: bundlePath,
		}
		if err := s.save(mapping); err != nil {
			return err
		}

		s.logger.Info().
			Str("container_id", containerID).
			Uint32("vmid", candidate).
			Msg("assigned vmid")

		vmid = candidate
		return nil
	})
	if err != nil {
		return 0, err
	}
	return vmid, nil
}

// Lookup returns the VMID for containerID, or ErrNotFound
func (s *Store) Lookup(containerID string) (uint32, error) {
	var vmid uint32

	err := lockfile.WithLock(s.lockPath(), func() error {
		mapping, err := s.load()
		if err != nil {
			return err
		}
		entry, ok := mapping[containerID]
		if !ok {
			return fmt.Errorf("container %s: %w", containerID, errdefs.ErrNotFound)
		}
		vmid = entry.VMID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return vmid, nil
}

// Remove deletes the mapping entry for containerID. Removing an unknown
// id is not an error.
func (s *Store) Remove(containerID string) error {
	return lockfile.WithLock(s.lockPath(), func() error {
		mapping, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := mapping[containerID]; !ok {
			return nil
		}
		delete(mapping, containerID)
		return s.save(mapping)
	})
}

// Entries returns a copy of the persisted mapping
func (s *Store) Entries() (map[string]types.MappingEntry, error) {
	var out map[string]types.MappingEntry
	err := lockfile.WithLock(s.lockPath(), func() error {
		mapping, err := s.load()
		if err != nil {
			return err
		}
		out = mapping
		return nil
	})
	return out, err
}

// probe finds a free VMID starting from the hash seed of containerID,
// walking forward and wrapping at the top of the range.
func (s *Store) probe(containerID string, mapping map[string]types.MappingEntry, live map[uint32]bool) (uint32, error) {
	taken := make(map[uint32]bool, len(mapping))
	for _, entry := range mapping {
		taken[entry.VMID] = true
	}

	candidate := seedVMID(containerID)
	for i := 0; i < MaxProbes; i++ {
		if !taken[candidate] && !live[candidate] {
			return candidate, nil
		}
		candidate++
		if candidate > VMIDMax {
			candidate = VMIDMin
		}
	}

	return 0, fmt.Errorf("no free vmid after %d probes: %w", MaxProbes, errdefs.ErrIdentityExhausted)
}

// seedVMID maps a container id deterministically into the VMID range
func seedVMID(containerID string) uint32 {
	span := uint64(VMIDMax-VMIDMin) + 1
	return VMIDMin + uint32(xxhash.Sum64String(containerID)%span)
}

// liveVMIDs queries the external tool inventory into a set
func (s *Store) liveVMIDs(ctx context.Context) (map[uint32]bool, error) {
	if s.inventory == nil {
		return nil, nil
	}
	ids, err := s.inventory.ListVMIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live containers: %w", err)
	}
	set := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// load reads the mapping file. A missing file is an empty mapping.
func (s *Store) load() (map[string]types.MappingEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]types.MappingEntry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", s.path, err)
	}

	mapping := make(map[string]types.MappingEntry)
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse mapping %s: %w", s.path, err)
	}
	return mapping, nil
}

// save writes the mapping atomically via a temp file rename
func (s *Store) save(mapping map[string]types.MappingEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}

	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mapping: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace mapping: %w", err)
	}
	return nil
}
