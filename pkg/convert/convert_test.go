package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/types"
)

func newTestConverter(t *testing.T) (*Converter, *executor.Fake) {
	t.Helper()
	fake := executor.NewFake()
	return New(fake, Options{TemplateDir: t.TempDir()}), fake
}

// writeBundle creates a bundle with the given rootfs entries
func writeBundle(t *testing.T, configJSON string, rootfsFiles map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	rootfs := filepath.Join(dir, "rootfs")
	if err := os.MkdirAll(rootfs, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range rootfsFiles {
		path := filepath.Join(rootfs, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolveMainCommand(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.BundleConfig
		want string
	}{
		{
			name: "entrypoint plus cmd",
			cfg:  types.BundleConfig{Entrypoint: []string{"/bin/app"}, Cmd: []string{"--flag"}},
			want: "/bin/app --flag",
		},
		{
			name: "entrypoint wins over process args",
			cfg: types.BundleConfig{
				Entrypoint:  []string{"/bin/app"},
				ProcessArgs: []string{"/bin/other"},
			},
			want: "/bin/app",
		},
		{
			name: "process args",
			cfg:  types.BundleConfig{ProcessArgs: []string{"/bin/sh", "-c", "true"}},
			want: "/bin/sh -c true",
		},
		{
			name: "fallback shell",
			cfg:  types.BundleConfig{},
			want: "/bin/sh",
		},
		{
			name: "cmd alone does not trigger entrypoint path",
			cfg:  types.BundleConfig{Cmd: []string{"--flag"}, ProcessArgs: []string{"/bin/run"}},
			want: "/bin/run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMainCommand(&tt.cfg); got != tt.want {
				t.Errorf("ResolveMainCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToRootfs_DirectoryBundle(t *testing.T) {
	c, _ := newTestConverter(t)
	bundle := writeBundle(t, `{"hostname": "web1", "process": {"args": ["/bin/httpd"]}}`, map[string]string{
		"bin/httpd":   "#!/bin/sh\necho httpd",
		"etc/passwd":  "root:x:0:0::/root:/bin/sh",
		"usr/lib/a":   "lib",
	})
	out := filepath.Join(t.TempDir(), "rootfs")

	cfg, err := c.ToRootfs(context.Background(), bundle, out)
	if err != nil {
		t.Fatalf("ToRootfs() error = %v", err)
	}

	// Copied content survives augmentation
	if _, err := os.Stat(filepath.Join(out, "bin", "httpd")); err != nil {
		t.Error("copied file missing from output tree")
	}

	// Standard directories exist
	for _, dir := range []string{"dev", "proc", "sys", "tmp", "etc/network", "var/log", "root"} {
		if fi, err := os.Stat(filepath.Join(out, dir)); err != nil || !fi.IsDir() {
			t.Errorf("standard directory %s missing", dir)
		}
	}

	hostname, err := os.ReadFile(filepath.Join(out, "etc", "hostname"))
	if err != nil || strings.TrimSpace(string(hostname)) != "web1" {
		t.Errorf("etc/hostname = %q, %v", hostname, err)
	}

	ifaces, err := os.ReadFile(filepath.Join(out, "etc", "network", "interfaces"))
	if err != nil || !strings.Contains(string(ifaces), "iface eth0 inet dhcp") {
		t.Errorf("etc/network/interfaces wrong: %q, %v", ifaces, err)
	}

	initScript, err := os.ReadFile(filepath.Join(out, "sbin", "init"))
	if err != nil {
		t.Fatalf("sbin/init missing: %v", err)
	}
	if !strings.HasPrefix(string(initScript), "#!/bin/sh") {
		t.Error("init script lacks shebang")
	}
	if !strings.Contains(string(initScript), "exec /bin/httpd") {
		t.Errorf("init script does not exec the main command:\n%s", initScript)
	}

	fi, err := os.Stat(filepath.Join(out, "sbin", "init"))
	if err != nil || fi.Mode().Perm()&0o111 == 0 {
		t.Error("init script is not executable")
	}

	if cfg.Hostname == nil || *cfg.Hostname != "web1" {
		t.Error("returned config lost hostname")
	}
}

func TestToRootfs_EmptyRootfsFails(t *testing.T) {
	c, _ := newTestConverter(t)
	bundle := writeBundle(t, `{}`, nil)
	out := filepath.Join(t.TempDir(), "rootfs")

	_, err := c.ToRootfs(context.Background(), bundle, out)
	if !errors.Is(err, errdefs.ErrEmptyRootfs) {
		t.Errorf("ToRootfs() error = %v, want ErrEmptyRootfs", err)
	}
}

func TestToRootfs_SingleFileSucceeds(t *testing.T) {
	c, _ := newTestConverter(t)
	bundle := writeBundle(t, `{}`, map[string]string{"only": "file"})
	out := filepath.Join(t.TempDir(), "rootfs")

	if _, err := c.ToRootfs(context.Background(), bundle, out); err != nil {
		t.Fatalf("ToRootfs() error = %v, single-file rootfs must succeed", err)
	}
}

func TestToRootfs_PreservesSymlinks(t *testing.T) {
	c, _ := newTestConverter(t)
	bundle := writeBundle(t, `{}`, map[string]string{"bin/busybox": "bin"})
	if err := os.Symlink("busybox", filepath.Join(bundle, "rootfs", "bin", "sh")); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "rootfs")

	if _, err := c.ToRootfs(context.Background(), bundle, out); err != nil {
		t.Fatal(err)
	}

	target, err := os.Readlink(filepath.Join(out, "bin", "sh"))
	if err != nil {
		t.Fatalf("symlink not preserved: %v", err)
	}
	if target != "busybox" {
		t.Errorf("symlink target = %q, want busybox", target)
	}
}

func TestClassifySource(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		path string
		want sourceKind
	}{
		{dir, sourceDirectory},
		{"/x/rootfs.tar.zst", sourceTarZst},
		{"/x/rootfs.tar.gz", sourceTarGz},
		{"/x/rootfs.tar", sourceTar},
		{"/x/rootfs.squashfs", sourceUnknown},
	}
	for _, tt := range tests {
		if got := classifySource(tt.path); got != tt.want {
			t.Errorf("classifySource(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestExtractDispatch(t *testing.T) {
	tests := []struct {
		archive  string
		wantArgs string
	}{
		{"rootfs.tar.zst", "tar --zstd -xf"},
		{"rootfs.tar.gz", "tar -xzf"},
		{"rootfs.tar", "tar -xf"},
	}

	for _, tt := range tests {
		fake := executor.NewFake()
		c := New(fake, Options{})
		out := t.TempDir()

		archive := filepath.Join(t.TempDir(), tt.archive)
		if err := os.WriteFile(archive, []byte("not really a tarball"), 0o644); err != nil {
			t.Fatal(err)
		}
		// Fake extraction drops a file into the output tree
		fake.Respond("tar", executor.FakeResult{Do: func(argv []string) {
			os.WriteFile(filepath.Join(out, "extracted"), []byte("x"), 0o644)
		}})

		if err := c.populate(context.Background(), archive, out); err != nil {
			t.Fatalf("populate(%s) error = %v", tt.archive, err)
		}
		calls := fake.Calls()
		if len(calls) != 1 || !strings.HasPrefix(calls[0], tt.wantArgs) {
			t.Errorf("populate(%s) ran %v, want prefix %q", tt.archive, calls, tt.wantArgs)
		}
	}
}

func TestExtractFailureIsExtractionFailed(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("tar", executor.FakeResult{ExitCode: 2, Stderr: "tar: damaged archive"})
	c := New(fake, Options{})

	archive := filepath.Join(t.TempDir(), "broken.tar.gz")
	if err := os.WriteFile(archive, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := c.populate(context.Background(), archive, t.TempDir())
	if !errors.Is(err, errdefs.ErrExtractionFailed) {
		t.Errorf("populate() error = %v, want ErrExtractionFailed", err)
	}
}

func TestUnsupportedSource(t *testing.T) {
	c, _ := newTestConverter(t)

	err := c.populate(context.Background(), "/nonexistent/rootfs.squashfs", t.TempDir())
	if !errors.Is(err, errdefs.ErrUnsupportedSource) {
		t.Errorf("populate() error = %v, want ErrUnsupportedSource", err)
	}
}

func TestPackageTemplate(t *testing.T) {
	templateDir := t.TempDir()
	fake := executor.NewFake()
	fake.Respond("tar --zstd -cf", executor.FakeResult{Do: func(argv []string) {
		// argv: tar --zstd -cf <archive> -C <dir> .
		os.WriteFile(argv[3], make([]byte, 2048), 0o644)
	}})
	c := New(fake, Options{TemplateDir: templateDir})

	rootfs := t.TempDir()
	for _, f := range []string{"a", "b", "c"} {
		if err := os.WriteFile(filepath.Join(rootfs, f), []byte(f), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, err := c.PackageTemplate(context.Background(), rootfs, "web1-template")
	if err != nil {
		t.Fatalf("PackageTemplate() error = %v", err)
	}
	if path != filepath.Join(templateDir, "web1-template.tar.zst") {
		t.Errorf("template path = %q", path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("published template missing: %v", err)
	}
	if fi.Size() != 2048 {
		t.Errorf("published template size = %d, want 2048", fi.Size())
	}
	if fi.Mode().Perm() != 0o644 {
		t.Errorf("published template mode = %v, want 0644", fi.Mode().Perm())
	}
}

func TestPackageTemplate_ArchiverFailure(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("tar", executor.FakeResult{ExitCode: 1, Stderr: "tar: write error"})
	c := New(fake, Options{TemplateDir: t.TempDir()})

	rootfs := t.TempDir()
	if err := os.WriteFile(filepath.Join(rootfs, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := c.PackageTemplate(context.Background(), rootfs, "bad")
	if !errors.Is(err, errdefs.ErrArchiveCreationFailed) {
		t.Errorf("PackageTemplate() error = %v, want ErrArchiveCreationFailed", err)
	}
}

func TestPackageTemplate_EmptyRootfs(t *testing.T) {
	c, _ := newTestConverter(t)

	_, err := c.PackageTemplate(context.Background(), t.TempDir(), "empty")
	if !errors.Is(err, errdefs.ErrEmptyRootfs) {
		t.Errorf("PackageTemplate() error = %v, want ErrEmptyRootfs", err)
	}
}

func TestBuildInitScript_EnvAndWorkdir(t *testing.T) {
	wd := "/srv/app"
	cfg := &types.BundleConfig{
		Env:        []string{"PATH=/usr/bin", "MODE=prod"},
		WorkingDir: &wd,
		Entrypoint: []string{"/bin/app"},
	}

	script := buildInitScript(cfg)
	if !strings.Contains(script, "export PATH='/usr/bin'") {
		t.Error("env not exported")
	}
	if !strings.Contains(script, "cd '/srv/app'") {
		t.Error("working directory not applied")
	}
	if !strings.Contains(script, "exec /bin/app") {
		t.Error("main command not execed")
	}
	if !strings.Contains(script, "mount -t proc") {
		t.Error("pseudo-filesystem mounts missing")
	}
}
