/*
Package convert turns OCI runtime bundles into LXC-compatible root
filesystems and packages them as Proxmox templates.

An OCI bundle assumes a runtime that mounts /proc, injects the process
spec and execs the configured command. An LXC container instead boots
whatever /sbin/init it finds. The converter bridges that gap: it copies
or extracts the bundle's rootfs into a working tree, fills in the
directory skeleton a bootable system expects, writes a generated init
script that reproduces the OCI process semantics, and packages the
result as a zstd-compressed tar archive that pct can create containers
from.

# Architecture

	┌───────────────────── CONVERSION PIPELINE ──────────────────┐
	│                                                             │
	│  bundle dir ──► Parse config.json + metadata.json           │
	│                      │                                      │
	│                      ▼                                      │
	│  rootfs source ──► populate (copy dir / extract archive)    │
	│                      │                                      │
	│                      ▼                                      │
	│             validate (≥3 entries, else empty-rootfs error)  │
	│                      │                                      │
	│                      ▼                                      │
	│             augment: standard dirs, /etc/hostname,          │
	│             /etc/network/interfaces, /sbin/init             │
	│                      │                                      │
	│                      ▼                                      │
	│             validate again, then tar --zstd ──► .tar.zst    │
	│                      │                                      │
	│                      ▼                                      │
	│             publish to the template directory               │
	└─────────────────────────────────────────────────────────────┘

# Rootfs Population

The rootfs source is classified by shape, not by trusting a single
format: a directory is copied tree-wise, .tar.zst and .tar.gz and plain
.tar archives are extracted with matching tar flags, and anything else
falls back to a directory copy or fails as unsupported. Directory copy
preserves file modes and symlink targets and aggregates per-entry
failures rather than stopping at the first one.

# Init Generation

The generated /sbin/init mounts proc, sysfs, devpts and tmpfs if they
are not already mounted, applies the hostname, chains into the image's
own /etc/init.d/rcS when present, exports the configured environment,
changes into the working directory and finally execs the main command.

The main command is resolved with a fixed precedence:

 1. Image entrypoint plus command, joined
 2. The OCI process arguments, joined
 3. /bin/sh

# Usage

	conv := convert.New(execr, convert.Options{
		TarBinary:   "tar",
		TemplateDir: "/var/lib/vz/template/cache",
	})

	cfg, err := conv.ToRootfs(ctx, bundlePath, workDir)
	if err != nil {
		return err
	}

	archive, err := conv.PackageTemplate(ctx, workDir, "hutch-web-1")
	if err != nil {
		return err
	}

# Integration Points

This package integrates with:

  - pkg/bundle for config.json and metadata.json parsing
  - pkg/executor for running tar
  - pkg/lifecycle which drives the pipeline during Create

# See Also

  - pkg/template for caching packaged templates
  - pkg/pct which consumes the produced archives
*/
package convert
