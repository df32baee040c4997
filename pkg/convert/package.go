package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
)

// MinTemplateSize is the archive size below which a packaged template is
// almost certainly metadata-only. Such templates are published anyway but
// logged as a warning.
const MinTemplateSize = 500

// TemplateSuffix is the archive format templates are packaged as
const TemplateSuffix = ".tar.zst"

// PackageTemplate archives rootfsDir as a compressed template named name
// and publishes it into the template directory. It returns the published
// archive path.
func (c *Converter) PackageTemplate(ctx context.Context, rootfsDir, name string) (string, error) {
	if err := c.validateTree(rootfsDir, "before packaging"); err != nil {
		return "", err
	}

	workDir, err := os.MkdirTemp("", "hutch-pkg-")
	if err != nil {
		return "", fmt.Errorf("failed to create packaging directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	archive := filepath.Join(workDir, name+TemplateSuffix)
	argv := []string{c.opts.TarBinary, "--zstd", "-cf", archive, "-C", rootfsDir, "."}

	out, err := c.exec.Run(ctx, argv, executor.Options{Timeout: c.opts.Timeout})
	if err != nil {
		return "", fmt.Errorf("archiving %s: %s: %w", rootfsDir, strings.TrimSpace(string(out.Stderr)), errdefs.ErrArchiveCreationFailed)
	}

	fi, err := os.Stat(archive)
	if err != nil {
		return "", fmt.Errorf("archiver produced no output at %s: %w", archive, errdefs.ErrArchiveCreationFailed)
	}
	if fi.Size() < MinTemplateSize {
		c.logger.Warn().
			Str("archive", archive).
			Int64("size", fi.Size()).
			Msg("template archive suspiciously small, likely metadata only")
	}

	if err := os.MkdirAll(c.opts.TemplateDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", errdefs.ErrUploadFailed)
	}

	dest := filepath.Join(c.opts.TemplateDir, name+TemplateSuffix)
	if err := copyFile(archive, dest, 0o644); err != nil {
		return "", fmt.Errorf("publishing %s: %v: %w", dest, err, errdefs.ErrUploadFailed)
	}

	c.logger.Info().
		Str("template", dest).
		Int64("size", fi.Size()).
		Msg("packaged template")

	return dest, nil
}
