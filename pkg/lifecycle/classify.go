package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/hutch/pkg/errdefs"
)

// refKind classifies a bundle reference. Classification happens once and
// every downstream decision switches on the result.
type refKind int

const (
	// refTemplate is an existing packaged template: a recognizable archive
	// suffix or a storage-qualified Proxmox reference.
	refTemplate refKind = iota

	// refBundle is a local directory containing config.json
	refBundle

	// refUnsupported is anything else, including registry-style name:tag
	// references with no local directory. These fail fast rather than
	// being misclassified as templates.
	refUnsupported
)

var templateSuffixes = []string{".tar.zst", ".tar.gz", ".tgz", ".tar.xz", ".tar"}

// classifyRef determines how a bundle reference should be handled
func classifyRef(ref string) refKind {
	if strings.Contains(ref, ":vztmpl/") {
		return refTemplate
	}
	for _, suffix := range templateSuffixes {
		if strings.HasSuffix(ref, suffix) {
			return refTemplate
		}
	}
	if fi, err := os.Stat(ref); err == nil && fi.IsDir() {
		if _, err := os.Stat(filepath.Join(ref, "config.json")); err == nil {
			return refBundle
		}
	}
	return refUnsupported
}

// canonicalize resolves ref to an absolute, symlink-free path and rejects
// anything outside the allow-listed prefixes. It runs before any
// filesystem mutation.
func canonicalize(ref string, allowedPrefixes []string) (string, error) {
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The path must exist to be canonicalized
		return "", fmt.Errorf("failed to canonicalize %s: %w", ref, err)
	}

	for _, prefix := range allowedPrefixes {
		cleanPrefix := filepath.Clean(prefix)
		if resolved == cleanPrefix || strings.HasPrefix(resolved, cleanPrefix+string(filepath.Separator)) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%s resolves to %s: %w", ref, resolved, errdefs.ErrPathTraversal)
}

// isStorageQualified reports whether ref names a template on a Proxmox
// storage rather than a local file.
func isStorageQualified(ref string) bool {
	return strings.Contains(ref, ":vztmpl/")
}
