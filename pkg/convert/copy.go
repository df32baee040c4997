package convert

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cuemby/hutch/pkg/errdefs"
)

// copyTree recursively copies src into dst, preserving file modes and
// symlinks. Unsupported entry kinds (sockets, devices, fifos) are skipped
// with a warning. Every entry is attempted; if any entry failed, the copy
// as a whole reports failure.
func (c *Converter) copyTree(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat copy source %s: %w", src, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("copy source %s is not a directory", src)
	}

	var failures []error

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, err)
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			failures = append(failures, err)
			return nil
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", path, err))
			return nil
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				failures = append(failures, fmt.Errorf("mkdir %s: %w", target, err))
			}
		case info.Mode()&os.ModeSymlink != 0:
			if err := copySymlink(path, target); err != nil {
				failures = append(failures, err)
			}
		case info.Mode().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				failures = append(failures, err)
			}
		default:
			c.logger.Warn().
				Str("path", path).
				Str("mode", info.Mode().String()).
				Msg("skipping unsupported entry kind")
		}
		return nil
	})
	if walkErr != nil {
		failures = append(failures, walkErr)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d entries failed: %v: %w", len(failures), errors.Join(failures...), errdefs.ErrCopyFailed)
	}
	return nil
}

func copySymlink(src, dst string) error {
	linkTarget, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", src, err)
	}
	// Replace any stale entry at the destination
	_ = os.Remove(dst)
	if err := os.Symlink(linkTarget, dst); err != nil {
		return fmt.Errorf("symlink %s: %w", dst, err)
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Close()
}
