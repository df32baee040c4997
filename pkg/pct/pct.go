package pct

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/log"
)

// Client drives the Proxmox container tool (pct) as a subprocess
type Client struct {
	exec    executor.Executor
	binary  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a pct client. binary defaults to "pct".
func NewClient(execr executor.Executor, binary string, timeout time.Duration) *Client {
	if binary == "" {
		binary = "pct"
	}
	return &Client{
		exec:    execr,
		binary:  binary,
		timeout: timeout,
		logger:  log.WithComponent("pct"),
	}
}

// CreateOptions are the container creation parameters
type CreateOptions struct {
	Hostname     string
	MemoryMB     int64
	Cores        int
	Net0         string
	Unprivileged bool
	RootfsRef    string // storage-qualified rootfs, e.g. "local-zfs:subvol-100-disk-0"
}

// Create creates a container from a template reference
func (c *Client) Create(ctx context.Context, vmid uint32, templateRef string, opts CreateOptions) error {
	argv := []string{c.binary, "create", formatVMID(vmid), templateRef}

	if opts.Hostname != "" {
		if err := ValidateHostname(opts.Hostname); err != nil {
			return err
		}
		argv = append(argv, "--hostname", opts.Hostname)
	}
	if opts.MemoryMB > 0 {
		argv = append(argv, "--memory", strconv.FormatInt(opts.MemoryMB, 10))
	}
	if opts.Cores > 0 {
		argv = append(argv, "--cores", strconv.Itoa(opts.Cores))
	}
	if opts.Net0 != "" {
		if err := ValidateNetSpec(opts.Net0); err != nil {
			return err
		}
		argv = append(argv, "--net0", opts.Net0)
	}
	if opts.RootfsRef != "" {
		argv = append(argv, "--rootfs", opts.RootfsRef)
	}
	if opts.Unprivileged {
		argv = append(argv, "--unprivileged", "1")
	} else {
		argv = append(argv, "--unprivileged", "0")
	}

	return c.run(ctx, "create", vmid, argv)
}

// Start starts a container
func (c *Client) Start(ctx context.Context, vmid uint32) error {
	return c.run(ctx, "start", vmid, []string{c.binary, "start", formatVMID(vmid)})
}

// Stop stops a container
func (c *Client) Stop(ctx context.Context, vmid uint32) error {
	return c.run(ctx, "stop", vmid, []string{c.binary, "stop", formatVMID(vmid)})
}

// Destroy removes a container and its configuration
func (c *Client) Destroy(ctx context.Context, vmid uint32) error {
	return c.run(ctx, "destroy", vmid, []string{c.binary, "destroy", formatVMID(vmid)})
}

// SetMountPoint configures mount point idx on the container
func (c *Client) SetMountPoint(ctx context.Context, vmid uint32, idx int, source, destination string) error {
	spec := fmt.Sprintf("%s,mp=%s", source, destination)
	argv := []string{c.binary, "set", formatVMID(vmid), fmt.Sprintf("-mp%d", idx), spec}
	if err := c.run(ctx, "set mount point", vmid, argv); err != nil {
		return fmt.Errorf("%v: %w", err, errdefs.ErrMountConfigFailed)
	}
	return nil
}

// ListVMIDs returns the VMIDs of every container known to pct
func (c *Client) ListVMIDs(ctx context.Context) ([]uint32, error) {
	out, err := c.exec.Run(ctx, []string{c.binary, "list"}, executor.Options{Timeout: c.timeout})
	if err != nil {
		return nil, c.translate("list", 0, out, err)
	}
	return parseList(string(out.Stdout)), nil
}

// Config returns the raw container configuration text
func (c *Client) Config(ctx context.Context, vmid uint32) (string, error) {
	out, err := c.exec.Run(ctx, []string{c.binary, "config", formatVMID(vmid)}, executor.Options{Timeout: c.timeout})
	if err != nil {
		return "", c.translate("config", vmid, out, err)
	}
	return string(out.Stdout), nil
}

// Pid1 reports the pid of the container's init process as seen from
// inside the container, by execing into it.
func (c *Client) Pid1(ctx context.Context, vmid uint32) (int, error) {
	argv := []string{c.binary, "exec", formatVMID(vmid), "--", "sh", "-c", "cat /proc/1/stat"}
	out, err := c.exec.Run(ctx, argv, executor.Options{Timeout: c.timeout})
	if err != nil {
		return 0, c.translate("query pid", vmid, out, err)
	}

	fields := strings.Fields(string(out.Stdout))
	if len(fields) == 0 {
		return 0, fmt.Errorf("query pid %d: empty response: %w", vmid, errdefs.ErrOperationFailed)
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("query pid %d: unparseable response %q: %w", vmid, fields[0], errdefs.ErrOperationFailed)
	}
	return pid, nil
}

// run executes argv and translates failures into the stable error taxonomy
func (c *Client) run(ctx context.Context, op string, vmid uint32, argv []string) error {
	out, err := c.exec.Run(ctx, argv, executor.Options{Timeout: c.timeout})
	if err != nil {
		return c.translate(op, vmid, out, err)
	}
	c.logger.Debug().Uint32("vmid", vmid).Str("op", op).Msg("pct command succeeded")
	return nil
}

// translate maps pct diagnostic text onto the stable error contract.
// This is the seam that converts shell-tool brittleness into errors
// callers can program against.
func (c *Client) translate(op string, vmid uint32, out executor.Output, err error) error {
	diag := strings.ToLower(string(out.Stderr))
	var exitErr *executor.ExitError
	if errors.As(err, &exitErr) && diag == "" {
		diag = strings.ToLower(exitErr.Stderr)
	}

	class := errdefs.ErrOperationFailed
	switch {
	case containsAny(diag, "does not exist", "not found", "no such"):
		class = errdefs.ErrNotFound
	case containsAny(diag, "permission denied", "not permitted", "access denied"):
		class = errdefs.ErrPermissionDenied
	case containsAny(diag, "already exists", "already in use", "config file already exists"):
		class = errdefs.ErrAlreadyExists
	case containsAny(diag, "invalid", "unknown option", "bad format"):
		class = errdefs.ErrInvalidArgument
	}

	detail := strings.TrimSpace(string(out.Stderr))
	if detail == "" {
		detail = err.Error()
	}
	return fmt.Errorf("pct %s (vmid %d): %s: %w", op, vmid, detail, class)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseList extracts VMIDs from `pct list` output. The first line is a
// header; each following line starts with a numeric VMID.
func parseList(output string) []uint32 {
	var ids []uint32
	for i, line := range strings.Split(output, "\n") {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(id))
	}
	return ids
}

func formatVMID(vmid uint32) string {
	return strconv.FormatUint(uint64(vmid), 10)
}
