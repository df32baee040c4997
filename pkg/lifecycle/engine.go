package lifecycle

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/convert"
	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/identity"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/pct"
	"github.com/cuemby/hutch/pkg/state"
	"github.com/cuemby/hutch/pkg/template"
	"github.com/cuemby/hutch/pkg/types"
	"github.com/cuemby/hutch/pkg/zfs"
)

// Engine sequences the full container lifecycle: bundle validation,
// identity assignment, rootfs conversion, storage provisioning, external
// tool invocation, mount application and state bookkeeping.
type Engine struct {
	cfg    *config.Config
	ids    *identity.Store
	states *state.Store
	conv   *convert.Converter
	cache  *template.Cache
	pct    *pct.Client
	zfs    *zfs.Manager
	logger zerolog.Logger
}

// New wires an Engine from the configuration. All external tools run
// through the given executor.
func New(cfg *config.Config, execr executor.Executor) (*Engine, error) {
	pctClient := pct.NewClient(execr, cfg.PctBinary, cfg.CommandTimeout())

	cache, err := template.Open(cfg.TemplateDBPath())
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		ids:    identity.NewStore(cfg.MappingPath(), pctClient),
		states: state.NewStore(cfg.StateDir()),
		conv: convert.New(execr, convert.Options{
			TarBinary:   cfg.TarBinary,
			TemplateDir: cfg.TemplateDir,
			Timeout:     cfg.CommandTimeout(),
		}),
		cache:  cache,
		pct:    pctClient,
		zfs:    zfs.NewManager(execr, cfg.ZFSBinary, cfg.ZpoolBinary, cfg.CommandTimeout()),
		logger: log.WithComponent("lifecycle"),
	}, nil
}

// Close releases engine resources
func (e *Engine) Close() error {
	return e.cache.Close()
}

// TemplateCache exposes the template metadata store
func (e *Engine) TemplateCache() *template.Cache {
	return e.cache
}

// State returns the current state record for a container
func (e *Engine) State(containerID string) (*types.ContainerState, error) {
	if err := validateContainerID(containerID); err != nil {
		return nil, errdefs.Opf("state", containerID, err)
	}
	return e.states.Load(containerID)
}

// Create provisions a new container from a bundle reference. The
// reference is either a local OCI bundle directory, a packaged template
// archive, or a storage-qualified template name.
func (e *Engine) Create(ctx context.Context, containerID, bundleRef string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("create", err, time.Since(start).Seconds()) }()

	// The id becomes a path component under the store roots and the work
	// directory, so it is validated before anything touches it.
	if err = validateContainerID(containerID); err != nil {
		return errdefs.Opf("create", containerID, err)
	}

	logger := log.WithContainerID(containerID)

	// Local filesystem references must stay inside the allow-list. This
	// runs before classification and before anything touches the bundle.
	ref := bundleRef
	if !isStorageQualified(bundleRef) {
		if _, statErr := os.Stat(bundleRef); statErr == nil {
			canonical, cerr := canonicalize(bundleRef, e.cfg.BundlePrefixes())
			if cerr != nil {
				return errdefs.Opf("create", containerID, cerr)
			}
			ref = canonical
		}
	}

	kind := classifyRef(ref)
	if kind == refUnsupported {
		return errdefs.Opf("create", containerID,
			fmt.Errorf("reference %q is neither a bundle directory nor a template: %w", bundleRef, errdefs.ErrUnsupportedImageReference))
	}

	if e.states.Exists(containerID) {
		return errdefs.Opf("create", containerID, fmt.Errorf("container: %w", errdefs.ErrAlreadyExists))
	}

	vmid, err := e.ids.Assign(ctx, containerID, ref)
	if err != nil {
		return errdefs.Opf("create", containerID, err)
	}
	logger = logger.With().Uint32("vmid", vmid).Logger()

	var bundleCfg *types.BundleConfig
	templateRef := ref

	if kind == refBundle {
		templateRef, bundleCfg, err = e.convertBundle(ctx, containerID, ref)
		if err != nil {
			return errdefs.Opf("create", containerID, err)
		}
	}

	if err = e.provisionStorage(ctx, vmid); err != nil {
		return errdefs.Opf("create", containerID, err)
	}

	if err = e.pct.Create(ctx, vmid, templateRef, e.createOptions(containerID, bundleCfg)); err != nil {
		return errdefs.Opf("create", containerID, err)
	}

	if bundleCfg != nil {
		if err = e.applyMounts(ctx, vmid, bundleCfg.Mounts, logger); err != nil {
			return errdefs.Opf("create", containerID, err)
		}
	}

	// Identity assignment happened before this point; state creation
	// completes the ordering contract.
	if err = e.states.Create(containerID, vmid, ref); err != nil {
		return errdefs.Opf("create", containerID, err)
	}

	logger.Info().Str("template", templateRef).Msg("container created")
	return nil
}

// Start starts a created or stopped container and records the running pid
func (e *Engine) Start(ctx context.Context, containerID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("start", err, time.Since(start).Seconds()) }()

	if err = validateContainerID(containerID); err != nil {
		return errdefs.Opf("start", containerID, err)
	}

	vmid, err := e.ids.Lookup(containerID)
	if err != nil {
		return errdefs.Opf("start", containerID, err)
	}
	if _, err = e.states.Load(containerID); err != nil {
		return errdefs.Opf("start", containerID, err)
	}

	if err = e.pct.Start(ctx, vmid); err != nil {
		return errdefs.Opf("start", containerID, err)
	}

	pid, err := e.pct.Pid1(ctx, vmid)
	if err != nil {
		return errdefs.Opf("start", containerID, err)
	}

	if err = e.states.Update(containerID, types.StatusRunning, pid); err != nil {
		return errdefs.Opf("start", containerID, err)
	}

	logger := log.WithContainerID(containerID)
	logger.Info().Uint32("vmid", vmid).Int("pid", pid).Msg("container started")
	return nil
}

// Stop stops a running container
func (e *Engine) Stop(ctx context.Context, containerID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("stop", err, time.Since(start).Seconds()) }()

	if err = validateContainerID(containerID); err != nil {
		return errdefs.Opf("stop", containerID, err)
	}

	vmid, err := e.ids.Lookup(containerID)
	if err != nil {
		return errdefs.Opf("stop", containerID, err)
	}

	if err = e.pct.Stop(ctx, vmid); err != nil {
		return errdefs.Opf("stop", containerID, err)
	}

	if err = e.states.Update(containerID, types.StatusStopped, 0); err != nil {
		return errdefs.Opf("stop", containerID, err)
	}

	logger := log.WithContainerID(containerID)
	logger.Info().Uint32("vmid", vmid).Msg("container stopped")
	return nil
}

// Delete destroys the container and removes its state and identity
func (e *Engine) Delete(ctx context.Context, containerID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("delete", err, time.Since(start).Seconds()) }()

	if err = validateContainerID(containerID); err != nil {
		return errdefs.Opf("delete", containerID, err)
	}

	logger := log.WithContainerID(containerID)

	vmid, err := e.ids.Lookup(containerID)
	if err != nil {
		return errdefs.Opf("delete", containerID, err)
	}

	if err = e.pct.Destroy(ctx, vmid); err != nil {
		// A container the external tool no longer knows about still needs
		// its local records cleaned up.
		if !errdefs.IsNotFound(err) {
			return errdefs.Opf("delete", containerID, err)
		}
		logger.Warn().Uint32("vmid", vmid).Msg("container already gone, cleaning up records")
	}

	if err = e.states.Delete(containerID); err != nil {
		return errdefs.Opf("delete", containerID, err)
	}
	if err = e.ids.Remove(containerID); err != nil {
		return errdefs.Opf("delete", containerID, err)
	}

	logger.Info().Uint32("vmid", vmid).Msg("container deleted")
	return nil
}

// convertBundle runs the OCI bundle through conversion and packaging and
// registers the result in the template cache.
func (e *Engine) convertBundle(ctx context.Context, containerID, bundlePath string) (string, *types.BundleConfig, error) {
	workDir := filepath.Join(e.cfg.WorkDir(), containerID)
	defer os.RemoveAll(workDir)

	bundleCfg, err := e.conv.ToRootfs(ctx, bundlePath, workDir)
	if err != nil {
		return "", nil, err
	}

	name := fmt.Sprintf("hutch-%s-%s", containerID, uuid.NewString()[:8])
	archive, err := e.conv.PackageTemplate(ctx, workDir, name)
	if err != nil {
		return "", nil, err
	}

	info := &types.TemplateInfo{
		Name:         name,
		Path:         archive,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		Source:       types.TemplateSourceOCIBundle,
	}
	if fi, statErr := os.Stat(archive); statErr == nil {
		info.Size = fi.Size()
	}
	if bundleCfg.ImageName != nil || len(bundleCfg.Entrypoint) > 0 || len(bundleCfg.Cmd) > 0 {
		md := &types.TemplateMetadata{
			Entrypoint: bundleCfg.Entrypoint,
			Cmd:        bundleCfg.Cmd,
		}
		if bundleCfg.ImageName != nil {
			md.ImageName = *bundleCfg.ImageName
		}
		if bundleCfg.ImageTag != nil {
			md.ImageTag = *bundleCfg.ImageTag
		}
		if bundleCfg.WorkingDir != nil {
			md.WorkingDir = *bundleCfg.WorkingDir
		}
		info.Metadata = md
	}
	if err := e.cache.Put(info); err != nil {
		// Cache bookkeeping must not fail creation
		e.logger.Warn().Err(err).Str("template", name).Msg("failed to register template in cache")
	}

	return archive, bundleCfg, nil
}

// provisionStorage creates the per-container dataset. A missing pool is
// not fatal: provisioning is skipped and creation proceeds without
// dedicated storage.
func (e *Engine) provisionStorage(ctx context.Context, vmid uint32) error {
	if e.cfg.ZFSPool == "" {
		return nil
	}

	exists, err := e.zfs.PoolExists(ctx, e.cfg.ZFSPool)
	if err != nil {
		return err
	}
	if !exists {
		logger := log.WithVMID(vmid)
		logger.Warn().
			Str("pool", e.cfg.ZFSPool).
			Msg("zfs pool does not exist, skipping storage provisioning")
		return nil
	}

	dataset := fmt.Sprintf("%s/%s/subvol-%d-disk-0", e.cfg.ZFSPool, e.cfg.DatasetPrefix, vmid)
	return e.zfs.EnsureDataset(ctx, dataset)
}

// applyMounts configures bundle mounts on the container. Mounts without a
// destination are skipped with a warning.
func (e *Engine) applyMounts(ctx context.Context, vmid uint32, mounts []types.MountSpec, logger zerolog.Logger) error {
	idx := 0
	for _, m := range mounts {
		if m.Destination == "" {
			logger.Warn().Str("source", m.Source).Msg("skipping mount without destination")
			continue
		}
		if m.Source == "" {
			logger.Warn().Str("destination", m.Destination).Msg("skipping mount without source")
			continue
		}
		if err := e.pct.SetMountPoint(ctx, vmid, idx, m.Source, m.Destination); err != nil {
			return err
		}
		idx++
	}
	return nil
}

// createOptions derives pct creation parameters from the bundle config
func (e *Engine) createOptions(containerID string, bundleCfg *types.BundleConfig) pct.CreateOptions {
	opts := pct.CreateOptions{
		Net0:         fmt.Sprintf("name=eth0,bridge=%s,ip=dhcp", e.cfg.Bridge),
		Unprivileged: e.cfg.Unprivileged,
	}

	if bundleCfg != nil && bundleCfg.Hostname != nil {
		opts.Hostname = *bundleCfg.Hostname
	} else if pct.ValidateHostname(containerID) == nil {
		opts.Hostname = containerID
	}

	if bundleCfg != nil && bundleCfg.MemoryLimit != nil {
		mb := *bundleCfg.MemoryLimit / (1 << 20)
		if mb < 16 {
			mb = 16
		}
		opts.MemoryMB = mb
	}

	if bundleCfg != nil && bundleCfg.CPUShares != nil {
		cores := int(math.Ceil(*bundleCfg.CPUShares / 1024))
		if cores < 1 {
			cores = 1
		}
		opts.Cores = cores
	}

	return opts
}
