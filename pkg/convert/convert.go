package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/bundle"
	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
)

// MinRootfsFiles is the file count below which a converted rootfs is
// considered suspiciously small and logged as a warning.
const MinRootfsFiles = 3

// Options configures a Converter
type Options struct {
	// TarBinary is the external archiver, "tar" by default
	TarBinary string

	// TemplateDir is where packaged templates are published
	TemplateDir string

	// Timeout bounds archiver invocations
	Timeout time.Duration
}

// Converter turns an OCI bundle rootfs into a bootable LXC filesystem
// tree and packages trees into distributable template archives.
type Converter struct {
	exec   executor.Executor
	opts   Options
	logger zerolog.Logger
}

// New creates a Converter using the given executor for archiver calls
func New(execr executor.Executor, opts Options) *Converter {
	if opts.TarBinary == "" {
		opts.TarBinary = "tar"
	}
	return &Converter{
		exec:   execr,
		opts:   opts,
		logger: log.WithComponent("convert"),
	}
}

// sourceKind classifies a bundle rootfs source. Classification happens
// once; every downstream decision switches on the result.
type sourceKind int

const (
	sourceDirectory sourceKind = iota
	sourceTarZst
	sourceTarGz
	sourceTar
	sourceUnknown
)

// classifySource determines how a rootfs source should be materialized
func classifySource(path string) sourceKind {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return sourceDirectory
	}
	switch {
	case strings.HasSuffix(path, ".tar.zst"):
		return sourceTarZst
	case strings.HasSuffix(path, ".tar.gz"):
		return sourceTarGz
	case strings.HasSuffix(path, ".tar"):
		return sourceTar
	default:
		return sourceUnknown
	}
}

// ToRootfs converts the bundle at bundlePath into an LXC-bootable
// filesystem tree under outputDir and returns the parsed bundle config.
func (c *Converter) ToRootfs(ctx context.Context, bundlePath, outputDir string) (*types.BundleConfig, error) {
	cfg, err := bundle.Parse(bundlePath)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		c.logger.Warn().Str("bundle", bundlePath).Msg(w)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	if err := c.populate(ctx, cfg.RootfsPath, outputDir); err != nil {
		return nil, err
	}

	if err := c.validateTree(outputDir, "after rootfs population"); err != nil {
		return nil, err
	}

	if err := c.augment(cfg, outputDir); err != nil {
		return nil, err
	}

	// Augmentation only adds files. An empty tree here is a logic bug and
	// must fail loudly.
	if err := c.validateTree(outputDir, "after augmentation"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// populate materializes the rootfs source into outputDir
func (c *Converter) populate(ctx context.Context, source, outputDir string) error {
	switch classifySource(source) {
	case sourceDirectory:
		return c.copyTree(source, outputDir)
	case sourceTarZst:
		return c.extract(ctx, source, outputDir, []string{c.opts.TarBinary, "--zstd", "-xf", source, "-C", outputDir})
	case sourceTarGz:
		return c.extract(ctx, source, outputDir, []string{c.opts.TarBinary, "-xzf", source, "-C", outputDir})
	case sourceTar:
		return c.extract(ctx, source, outputDir, []string{c.opts.TarBinary, "-xf", source, "-C", outputDir})
	default:
		// Last resort: maybe it is copyable after all
		if err := c.copyTree(source, outputDir); err != nil {
			return fmt.Errorf("%s: %w", source, errdefs.ErrUnsupportedSource)
		}
		return nil
	}
}

// extract unpacks an archive via the external archiver
func (c *Converter) extract(ctx context.Context, source, outputDir string, argv []string) error {
	out, err := c.exec.Run(ctx, argv, executor.Options{Timeout: c.opts.Timeout})
	if err != nil {
		return fmt.Errorf("extracting %s: %s: %w", source, strings.TrimSpace(string(out.Stderr)), errdefs.ErrExtractionFailed)
	}
	c.logger.Debug().Str("source", source).Str("output", outputDir).Msg("extracted rootfs archive")
	return nil
}

// validateTree rejects empty trees and warns on suspiciously small ones
func (c *Converter) validateTree(dir, stage string) error {
	files, dirs, err := countTree(dir)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", dir, err)
	}
	if files == 0 && dirs == 0 {
		return fmt.Errorf("%s %s: %w", dir, stage, errdefs.ErrEmptyRootfs)
	}
	if files < MinRootfsFiles {
		c.logger.Warn().
			Str("dir", dir).
			Int("files", files).
			Msgf("rootfs has fewer than %d files %s, likely minimal or test content", MinRootfsFiles, stage)
	}
	return nil
}

// countTree counts files and directories below root, excluding root itself
func countTree(root string) (files, dirs int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			dirs++
		} else {
			files++
		}
		return nil
	})
	return files, dirs, err
}
