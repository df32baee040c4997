package zfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/log"
)

// Manager drives the zfs and zpool CLI tools for dataset provisioning
type Manager struct {
	exec     executor.Executor
	zfsBin   string
	zpoolBin string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewManager creates a storage manager. Binary names default to "zfs"
// and "zpool".
func NewManager(execr executor.Executor, zfsBin, zpoolBin string, timeout time.Duration) *Manager {
	if zfsBin == "" {
		zfsBin = "zfs"
	}
	if zpoolBin == "" {
		zpoolBin = "zpool"
	}
	return &Manager{
		exec:     execr,
		zfsBin:   zfsBin,
		zpoolBin: zpoolBin,
		timeout:  timeout,
		logger:   log.WithComponent("zfs"),
	}
}

// PoolExists reports whether the named pool is imported
func (m *Manager) PoolExists(ctx context.Context, pool string) (bool, error) {
	out, err := m.exec.Run(ctx, []string{m.zpoolBin, "list", "-H", "-o", "name"}, executor.Options{Timeout: m.timeout})
	if err != nil {
		return false, fmt.Errorf("failed to list pools: %s: %w", strings.TrimSpace(string(out.Stderr)), err)
	}
	for _, name := range strings.Fields(string(out.Stdout)) {
		if name == pool {
			return true, nil
		}
	}
	return false, nil
}

// DatasetExists reports whether the named dataset exists
func (m *Manager) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	_, err := m.exec.Run(ctx, []string{m.zfsBin, "list", "-H", "-o", "name", dataset}, executor.Options{Timeout: m.timeout})
	if err != nil {
		// zfs list exits non-zero for a missing dataset
		if _, ok := asExitError(err); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to query dataset %s: %w", dataset, err)
	}
	return true, nil
}

// EnsureDataset creates the dataset if it is missing, creating any missing
// parent datasets first. An existing dataset is reused unchanged.
func (m *Manager) EnsureDataset(ctx context.Context, dataset string) error {
	exists, err := m.DatasetExists(ctx, dataset)
	if err != nil {
		return err
	}
	if exists {
		m.logger.Debug().Str("dataset", dataset).Msg("reusing existing dataset")
		return nil
	}

	// Create a missing parent first. The top element is the pool itself
	// and is never created here.
	if i := strings.LastIndex(dataset, "/"); i > 0 {
		parent := dataset[:i]
		if strings.Contains(parent, "/") {
			if err := m.EnsureDataset(ctx, parent); err != nil {
				return err
			}
		}
	}

	out, err := m.exec.Run(ctx, []string{m.zfsBin, "create", dataset}, executor.Options{Timeout: m.timeout})
	if err != nil {
		return fmt.Errorf("failed to create dataset %s: %s: %w", dataset, strings.TrimSpace(string(out.Stderr)), err)
	}

	m.logger.Info().Str("dataset", dataset).Msg("created dataset")
	return nil
}

func asExitError(err error) (*executor.ExitError, bool) {
	var exitErr *executor.ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}
