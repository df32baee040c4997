/*
Package identity assigns stable Proxmox VMIDs to container names.

Proxmox identifies containers by numeric VMID while hutch callers use
free-form container IDs. The identity store maps one to the other
deterministically: the same container name always hashes to the same
candidate VMID, and assignments survive restarts through a persisted
JSON mapping file.

# Assignment

A container ID is hashed with xxhash and mapped into the valid VMID
range [100, 999999]. If that seed is taken, the store probes linearly
upward (wrapping at the top of the range) for up to 1000 candidates
before giving up with an exhaustion error. A candidate counts as taken
if it appears in the persisted mapping or in the live inventory
reported by pct list, so hutch never collides with containers created
by hand on the same host.

Assignment is idempotent: asking for a name that already has a VMID
returns the recorded one. The mapping file is guarded by an advisory
file lock and rewritten atomically, so concurrent hutch processes on
one host cannot hand out the same VMID twice or tear the file.

# Usage

	store := identity.NewStore(cfg.MappingPath(), pctClient)

	vmid, err := store.Assign(ctx, "web-1", bundlePath)
	if err != nil {
		return err
	}

	// Later lookups return the same VMID.
	vmid, err = store.Lookup("web-1")

# Integration Points

This package integrates with:

  - pkg/pct which implements the live Inventory interface
  - pkg/lockfile for the mapping file lock
  - pkg/lifecycle which assigns on Create and removes on Delete

# See Also

  - pkg/state for the per-container runtime state records
*/
package identity
