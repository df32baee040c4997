/*
Package state persists per-container runtime state records.

Each container owns a directory under the state root holding a single
state.json in the OCI state format, extended with the Proxmox VMID and
a creation timestamp. The record is the source of truth for what hutch
believes about a container between process invocations.

# Layout

	<state root>/
	  <container id>/
	    state.json
	  <container id>.lock

Writes go through an advisory file lock and an atomic rename, so a
crashed writer never leaves a half-written record and concurrent
updates serialize. Update only touches status and pid; identity fields
written at Create are never rewritten.

# Error Behavior

Load distinguishes a missing record (state-missing error) from a
corrupt one (invalid-format error). Delete of a missing record logs a
warning and succeeds, so teardown paths stay idempotent.

# Usage

	store := state.NewStore(cfg.StateDir())

	if err := store.Create("web-1", vmid, bundlePath); err != nil {
		return err
	}
	if err := store.Update("web-1", types.StatusRunning, pid); err != nil {
		return err
	}

# See Also

  - pkg/types for the ContainerState JSON shape
  - pkg/identity for the name-to-VMID mapping
*/
package state
