package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/lockfile"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
)

// StateFile is the per-container state record name
const StateFile = "state.json"

// Store persists OCI-shaped state records, one directory per container
// under the store root.
type Store struct {
	root   string
	logger zerolog.Logger
}

// NewStore creates a state store rooted at dir
func NewStore(dir string) *Store {
	return &Store{
		root:   dir,
		logger: log.WithComponent("state"),
	}
}

// Create writes the initial record for a container: status created, pid 0
func (s *Store) Create(containerID string, vmid uint32, bundlePath string) error {
	record := &types.ContainerState{
		OCIVersion: types.OCIVersion,
		ID:         containerID,
		Status:     types.StatusCreated,
		Pid:        0,
		Bundle:     bundlePath,
		VMID:       vmid,
		CreatedAt:  time.Now().Unix(),
	}

	return lockfile.WithLock(s.lockPath(containerID), func() error {
		return s.write(containerID, record)
	})
}

// Update loads the record, overwrites status and pid, and rewrites the
// whole record. Callers supply the complete desired status/pid pair.
func (s *Store) Update(containerID string, status types.ContainerStatus, pid int) error {
	return lockfile.WithLock(s.lockPath(containerID), func() error {
		record, err := s.read(containerID)
		if err != nil {
			return err
		}
		record.Status = status
		record.Pid = pid
		return s.write(containerID, record)
	})
}

// Load returns the state record for containerID. A missing record is
// ErrStateMissing.
func (s *Store) Load(containerID string) (*types.ContainerState, error) {
	var record *types.ContainerState
	err := lockfile.WithLock(s.lockPath(containerID), func() error {
		var err error
		record, err = s.read(containerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Exists is the non-throwing probe for a state record
func (s *Store) Exists(containerID string) bool {
	_, err := os.Stat(s.statePath(containerID))
	return err == nil
}

// Delete removes the state record. Deleting a missing record logs a
// warning and succeeds.
func (s *Store) Delete(containerID string) error {
	return lockfile.WithLock(s.lockPath(containerID), func() error {
		path := s.statePath(containerID)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			s.logger.Warn().
				Str("container_id", containerID).
				Msg("state record already gone")
			return nil
		}
		if err := os.RemoveAll(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to delete state for %s: %w", containerID, err)
		}
		return nil
	})
}

func (s *Store) statePath(containerID string) string {
	return filepath.Join(s.root, containerID, StateFile)
}

func (s *Store) lockPath(containerID string) string {
	return filepath.Join(s.root, containerID+".lock")
}

func (s *Store) read(containerID string) (*types.ContainerState, error) {
	path := s.statePath(containerID)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("container %s: %w", containerID, errdefs.ErrStateMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", path, err)
	}

	var record types.ContainerState
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, errdefs.ErrInvalidStateFormat)
	}
	return &record, nil
}

// write replaces the record atomically via a temp file rename
func (s *Store) write(containerID string, record *types.ContainerState) error {
	path := s.statePath(containerID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}
