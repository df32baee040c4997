/*
Package zfs provisions per-container datasets through the zfs and zpool
command lines.

Storage provisioning in hutch is best effort at the pool level and
strict below it: if the configured pool does not exist on the host the
engine skips provisioning with a warning, but once the pool is known to
exist, a failed dataset creation is a hard error.

EnsureDataset is idempotent. An existing dataset is reused, and missing
parent datasets are created one level at a time from the pool down, so
"rpool/hutch/subvol-123-disk-0" works on a fresh pool without manual
setup. The pool itself is never created.

# Usage

	mgr := zfs.NewManager(execr, cfg.ZFSBinary, cfg.ZpoolBinary, cfg.CommandTimeout())

	ok, err := mgr.PoolExists(ctx, "rpool")
	if ok {
		err = mgr.EnsureDataset(ctx, "rpool/hutch/subvol-123-disk-0")
	}

# See Also

  - pkg/executor for subprocess execution
  - pkg/lifecycle which decides when provisioning is skipped
*/
package zfs
