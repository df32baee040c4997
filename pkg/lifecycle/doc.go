/*
Package lifecycle orchestrates container creation, start, stop and deletion
on top of the Proxmox pct tooling.

The lifecycle engine is the composition root of hutch: it wires the bundle
parser, identity store, state store, image converter, template cache and the
pct and zfs clients into one coordinated pipeline. Each public operation is
a multi-step workflow over those collaborators with a well-defined failure
order, so callers get the same error for the same bad input regardless of
host state.

# Architecture

	┌──────────────────── LIFECYCLE ENGINE ─────────────────────┐
	│                                                            │
	│  Create(id, ref)                                           │
	│  ┌──────────────────────────────────────────────┐          │
	│  │  1. Canonicalize + classify the reference    │          │
	│  │     (template archive / bundle dir / reject) │          │
	│  │  2. Refuse duplicate container IDs           │          │
	│  │  3. Assign a stable VMID (identity store)    │          │
	│  │  4. Convert bundle → rootfs → .tar.zst       │          │
	│  │  5. Provision ZFS dataset (optional)         │          │
	│  │  6. pct create + mount points                │          │
	│  │  7. Persist the state record                 │          │
	│  └──────────────────────────────────────────────┘          │
	│                                                            │
	│  Start(id)   lookup → pct start → resolve PID 1 → running  │
	│  Stop(id)    lookup → pct stop → stopped, pid 0            │
	│  Delete(id)  lookup → pct destroy → drop state → drop VMID │
	│                                                            │
	│  ┌─────────┐ ┌─────────┐ ┌─────────┐ ┌─────────┐           │
	│  │identity │ │  state  │ │ convert │ │template │           │
	│  └─────────┘ └─────────┘ └─────────┘ └─────────┘           │
	│       ┌─────────┐           ┌─────────┐                    │
	│       │   pct   │           │   zfs   │                    │
	│       └─────────┘           └─────────┘                    │
	└────────────────────────────────────────────────────────────┘

# Reference Classification

Create accepts two kinds of references and rejects everything else:

Template references:
  - Archive paths ending in .tar.zst, .tar.gz, .tgz, .tar.xz or .tar
  - Storage-qualified template names containing ":vztmpl/"
  - Passed to pct create directly, skipping conversion

Directory bundles:
  - A directory containing config.json (an OCI runtime bundle)
  - Converted to a rootfs, augmented and packaged into a template

Registry-style references such as "alpine:3.19" are rejected outright:
hutch has no image registry client, and silently treating the name as a
path would produce confusing downstream errors.

Local paths are canonicalized (absolute path, symlinks resolved) and
checked against the configured allow-list before any classification or
mutation happens. A reference that escapes the allow-list fails with a
path traversal error before a VMID is assigned or a process is spawned.

# Failure Ordering

Create validates in a fixed order: path containment, reference kind,
duplicate ID, identity assignment, conversion, storage, pct create,
mounts, state record. Nothing is persisted until the step that needs it
succeeds, and the conversion work directory is always removed. A missing
ZFS pool downgrades storage provisioning to a warning; a dataset creation
failure on an existing pool is fatal.

# Usage

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	engine, err := lifecycle.New(cfg, executor.NewLocal(cfg.CommandTimeout()))
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Create(ctx, "web-1", "/var/lib/hutch/bundles/web"); err != nil {
		log.Fatal(err)
	}
	if err := engine.Start(ctx, "web-1"); err != nil {
		log.Fatal(err)
	}

# Integration Points

This package integrates with:

  - pkg/bundle for parsing OCI runtime bundles
  - pkg/identity for deterministic VMID assignment
  - pkg/state for the persisted container state records
  - pkg/convert for rootfs conversion and template packaging
  - pkg/template for the template cache
  - pkg/pct and pkg/zfs for the external tools

# See Also

  - pkg/convert for the bundle-to-template pipeline
  - pkg/pct for error translation of tool failures
  - cmd/hutch for the CLI entry points
*/
package lifecycle
