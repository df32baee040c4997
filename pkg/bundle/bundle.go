package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
)

const (
	// MaxConfigSize caps config.json reads. Anything larger is rejected
	// rather than parsed.
	MaxConfigSize = 10 << 20

	// ConfigFile is the required bundle configuration file
	ConfigFile = "config.json"

	// MetadataFile is the optional image metadata file
	MetadataFile = "metadata.json"
)

// metadata is the shape of the optional metadata.json file
type metadata struct {
	Image      string   `json:"image"`
	Entrypoint []string `json:"entrypoint"`
	Cmd        []string `json:"cmd"`
	WorkingDir string   `json:"workingDir"`
}

// processPresence re-decodes the optional process fields whose zero
// values are meaningful. The runtime spec structs flatten them to
// 0/false, which would make "not specified" indistinguishable from
// "explicitly zero".
type processPresence struct {
	Process *struct {
		User *struct {
			UID *uint32 `json:"uid"`
			GID *uint32 `json:"gid"`
		} `json:"user"`
		NoNewPrivileges *bool `json:"noNewPrivileges"`
	} `json:"process"`
}

// Parse reads an OCI bundle directory into a BundleConfig.
//
// config.json is required and parsed strictly; metadata.json is parsed
// best-effort with failures recorded as warnings on the result. Fields
// absent from the bundle stay unset on the returned config.
func Parse(bundlePath string) (*types.BundleConfig, error) {
	logger := log.WithComponent("bundle")

	spec, raw, err := parseConfig(bundlePath)
	if err != nil {
		return nil, err
	}

	cfg := &types.BundleConfig{}

	rootfs, err := resolveRootfs(bundlePath, spec)
	if err != nil {
		return nil, err
	}
	cfg.RootfsPath = rootfs

	if spec.Hostname != "" {
		cfg.Hostname = ptr(spec.Hostname)
	}

	if p := spec.Process; p != nil {
		if len(p.Args) > 0 {
			cfg.ProcessArgs = append([]string(nil), p.Args...)
		}
		if len(p.Env) > 0 {
			cfg.Env = append([]string(nil), p.Env...)
		}
		if p.User.Username != "" {
			cfg.User = ptr(p.User.Username)
		}
		// The raw document already unmarshaled once, so this decode
		// cannot fail.
		var pres processPresence
		_ = json.Unmarshal(raw, &pres)
		if pres.Process != nil {
			if pres.Process.User != nil {
				cfg.UID = pres.Process.User.UID
				cfg.GID = pres.Process.User.GID
			}
			cfg.NoNewPrivileges = pres.Process.NoNewPrivileges
		}
		if p.OOMScoreAdj != nil {
			cfg.OOMScoreAdj = ptr(*p.OOMScoreAdj)
		}
		if p.Capabilities != nil && len(p.Capabilities.Bounding) > 0 {
			cfg.Capabilities = append([]string(nil), p.Capabilities.Bounding...)
		}
	}

	for _, m := range spec.Mounts {
		cfg.Mounts = append(cfg.Mounts, types.MountSpec{
			Source:      m.Source,
			Destination: m.Destination,
			Type:        m.Type,
			Options:     append([]string(nil), m.Options...),
		})
	}

	if l := spec.Linux; l != nil {
		if r := l.Resources; r != nil {
			if r.Memory != nil && r.Memory.Limit != nil {
				cfg.MemoryLimit = ptr(*r.Memory.Limit)
			}
			if r.CPU != nil && r.CPU.Shares != nil {
				cfg.CPUShares = ptr(float64(*r.CPU.Shares))
			}
		}
		if l.Seccomp != nil {
			cfg.SeccompProfile = ptr(string(l.Seccomp.DefaultAction))
		}
		if l.CgroupsPath != "" {
			cfg.CgroupsPath = ptr(l.CgroupsPath)
		}
		for _, ns := range l.Namespaces {
			cfg.Namespaces = append(cfg.Namespaces, string(ns.Type))
		}
	}

	if len(spec.Annotations) > 0 {
		cfg.Annotations = make(map[string]string, len(spec.Annotations))
		for k, v := range spec.Annotations {
			cfg.Annotations[k] = v
		}
	}

	if spec.Root != nil {
		cfg.ReadonlyRootfs = ptr(spec.Root.Readonly)
	}

	parseMetadata(bundlePath, cfg, logger)

	return cfg, nil
}

// parseConfig loads and decodes the required config.json, returning the
// decoded spec together with the raw document for presence re-decoding.
func parseConfig(bundlePath string) (*specs.Spec, []byte, error) {
	path := filepath.Join(bundlePath, ConfigFile)

	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%s: %w", path, errdefs.ErrConfigMissing)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if fi.Size() > MaxConfigSize {
		return nil, nil, fmt.Errorf("%s is %d bytes, max %d: %w", path, fi.Size(), MaxConfigSize, errdefs.ErrInvalidConfigFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// The top level must be a JSON object
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, fmt.Errorf("%s top level is not an object: %w", path, errdefs.ErrInvalidConfigFormat)
	}

	var spec specs.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("%s: %v: %w", path, err, errdefs.ErrInvalidConfigFormat)
	}

	return &spec, data, nil
}

// resolveRootfs determines and verifies the bundle rootfs directory
func resolveRootfs(bundlePath string, spec *specs.Spec) (string, error) {
	root := "rootfs"
	if spec.Root != nil && spec.Root.Path != "" {
		root = spec.Root.Path
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(bundlePath, root)
	}

	fi, err := os.Stat(root)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s: %w", root, errdefs.ErrRootfsMissing)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat rootfs %s: %w", root, err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%s is not a directory: %w", root, errdefs.ErrRootfsMissing)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve rootfs path: %w", err)
	}
	return abs, nil
}

// parseMetadata is the best-effort second phase. It never fails the parse;
// problems are logged and attached to the config as warnings.
func parseMetadata(bundlePath string, cfg *types.BundleConfig, logger zerolog.Logger) {
	path := filepath.Join(bundlePath, MetadataFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		warn := fmt.Sprintf("failed to read %s: %v", path, err)
		cfg.Warnings = append(cfg.Warnings, warn)
		logger.Warn().Str("path", path).Err(err).Msg("skipping image metadata")
		return
	}

	var md metadata
	if err := json.Unmarshal(data, &md); err != nil {
		warn := fmt.Sprintf("failed to parse %s: %v", path, err)
		cfg.Warnings = append(cfg.Warnings, warn)
		logger.Warn().Str("path", path).Err(err).Msg("skipping image metadata")
		return
	}

	if md.Image != "" {
		name, tag, hasTag := splitImageRef(md.Image)
		cfg.ImageName = ptr(name)
		if hasTag {
			cfg.ImageTag = ptr(tag)
		}
	}
	if len(md.Entrypoint) > 0 {
		cfg.Entrypoint = append([]string(nil), md.Entrypoint...)
	}
	if len(md.Cmd) > 0 {
		cfg.Cmd = append([]string(nil), md.Cmd...)
	}
	if md.WorkingDir != "" {
		cfg.WorkingDir = ptr(md.WorkingDir)
	}
}

func ptr[T any](v T) *T {
	return &v
}

// splitImageRef splits an image reference on the first colon.
// "alpine:3.19" yields ("alpine", "3.19"); a bare "alpine" has no tag.
func splitImageRef(ref string) (name string, tag string, hasTag bool) {
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[:i], ref[i+1:], true
	}
	return ref, "", false
}
