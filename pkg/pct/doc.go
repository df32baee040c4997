/*
Package pct drives the Proxmox container tool as a subprocess.

All container operations on the host go through the pct command line:
hutch never links against Proxmox APIs. This package builds the argv
for each operation, validates inputs before they reach a command line,
runs the tool through the executor, and translates its stderr into the
error taxonomy the rest of hutch matches on.

# Operations

	Create        pct create <vmid> <template> [options]
	Start/Stop    pct start|stop <vmid>
	Destroy       pct destroy <vmid>
	SetMountPoint pct set <vmid> -mp<n> <src>,mp=<dst>
	ListVMIDs     pct list (parsed for leading numeric IDs)
	Pid1          pct exec <vmid> -- sh -c "cat /proc/1/stat"

# Input Validation

Hostnames and network specs are validated before any subprocess is
spawned: hostnames must be valid DNS labels, network specs are limited
to the character set pct accepts. Rejected values fail with an
invalid-argument error and never appear in an argv.

# Error Translation

pct exits non-zero with a human-oriented message on stderr. translate
maps well-known substrings onto sentinel errors:

	"does not exist", "not found", "no such"       → not found
	"permission denied", "not permitted"           → permission denied
	"already exists", "already in use"             → already exists
	"invalid", "unknown option", "bad format"      → invalid argument
	anything else                                  → operation failed

Callers match with errors.Is against pkg/errdefs sentinels instead of
grepping error strings themselves.

# Usage

	client := pct.NewClient(execr, cfg.PctBinary, cfg.CommandTimeout())

	err := client.Create(ctx, vmid, templateRef, pct.CreateOptions{
		Hostname: "web-1",
		MemoryMB: 512,
		Cores:    2,
	})
	if errdefs.IsAlreadyExists(err) {
		// VMID collision with a container created outside hutch
	}

# See Also

  - pkg/executor for subprocess execution and timeouts
  - pkg/errdefs for the sentinel error set
*/
package pct
