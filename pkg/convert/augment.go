package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/hutch/pkg/types"
)

// standardDirs are the directories an LXC-style container expects to
// exist regardless of image content.
var standardDirs = []string{
	"dev",
	"proc",
	"sys",
	"tmp",
	"etc",
	"etc/network",
	"var",
	"var/log",
	"var/run",
	"var/tmp",
	"root",
	"home",
	"bin",
	"sbin",
	"usr",
	"usr/bin",
	"usr/sbin",
	"mnt",
	"opt",
}

// networkInterfaces is the minimal network configuration: loopback plus
// DHCP on the primary interface.
const networkInterfaces = `auto lo
iface lo inet loopback

auto eth0
iface eth0 inet dhcp
`

// augment layers the files an LXC container needs to boot on top of the
// copied rootfs. Existing content is never removed or overwritten except
// for the synthesized init itself.
func (c *Converter) augment(cfg *types.BundleConfig, rootfs string) error {
	for _, dir := range standardDirs {
		if err := os.MkdirAll(filepath.Join(rootfs, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if cfg.Hostname != nil {
		path := filepath.Join(rootfs, "etc", "hostname")
		if err := os.WriteFile(path, []byte(*cfg.Hostname+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write hostname: %w", err)
		}
	}

	ifacesPath := filepath.Join(rootfs, "etc", "network", "interfaces")
	if err := os.WriteFile(ifacesPath, []byte(networkInterfaces), 0o644); err != nil {
		return fmt.Errorf("failed to write network interfaces: %w", err)
	}

	initPath := filepath.Join(rootfs, "sbin", "init")
	script := buildInitScript(cfg)
	if err := os.WriteFile(initPath, []byte(script), 0o755); err != nil {
		return fmt.Errorf("failed to write init script: %w", err)
	}

	c.logger.Debug().
		Str("rootfs", rootfs).
		Str("command", ResolveMainCommand(cfg)).
		Msg("applied lxc augmentation")

	return nil
}

// ResolveMainCommand returns the command the container should run, using
// container image conventions: entrypoint plus cmd when an entrypoint is
// set, otherwise the process args, otherwise /bin/sh.
func ResolveMainCommand(cfg *types.BundleConfig) string {
	if len(cfg.Entrypoint) > 0 {
		parts := append([]string(nil), cfg.Entrypoint...)
		parts = append(parts, cfg.Cmd...)
		return strings.Join(parts, " ")
	}
	if len(cfg.ProcessArgs) > 0 {
		return strings.Join(cfg.ProcessArgs, " ")
	}
	return "/bin/sh"
}

// buildInitScript synthesizes the container's /sbin/init. The script
// mounts pseudo-filesystems only when they are not already mounted, sets
// the hostname, chains into a legacy init script when the image ships
// one, and finally execs the resolved main command.
func buildInitScript(cfg *types.BundleConfig) string {
	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("# generated by hutch\n\n")

	b.WriteString("mountpoint -q /proc 2>/dev/null || mount -t proc proc /proc 2>/dev/null || true\n")
	b.WriteString("mountpoint -q /sys 2>/dev/null || mount -t sysfs sysfs /sys 2>/dev/null || true\n")
	b.WriteString("mountpoint -q /dev/pts 2>/dev/null || { mkdir -p /dev/pts; mount -t devpts devpts /dev/pts 2>/dev/null; } || true\n")
	b.WriteString("mountpoint -q /tmp 2>/dev/null || mount -t tmpfs tmpfs /tmp 2>/dev/null || true\n\n")

	b.WriteString("if [ -f /etc/hostname ]; then\n")
	b.WriteString("    hostname -F /etc/hostname 2>/dev/null || true\nfi\n\n")

	b.WriteString("if [ -x /etc/init.d/rcS ]; then\n")
	b.WriteString("    /etc/init.d/rcS\nfi\n\n")

	for _, env := range cfg.Env {
		if key, value, ok := strings.Cut(env, "="); ok {
			fmt.Fprintf(&b, "export %s=%s\n", key, shellQuote(value))
		}
	}
	if len(cfg.Env) > 0 {
		b.WriteString("\n")
	}

	if cfg.WorkingDir != nil {
		fmt.Fprintf(&b, "cd %s 2>/dev/null || true\n\n", shellQuote(*cfg.WorkingDir))
	}

	fmt.Fprintf(&b, "exec %s\n", ResolveMainCommand(cfg))

	return b.String()
}

// shellQuote single-quotes a value for inclusion in the init script
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
