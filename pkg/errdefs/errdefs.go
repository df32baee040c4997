package errdefs

import (
	"errors"
	"fmt"
)

// Bundle errors
var (
	ErrConfigMissing       = errors.New("bundle config.json missing")
	ErrRootfsMissing       = errors.New("bundle rootfs missing")
	ErrInvalidConfigFormat = errors.New("invalid bundle config format")
)

// Conversion errors
var (
	ErrExtractionFailed      = errors.New("archive extraction failed")
	ErrCopyFailed            = errors.New("rootfs copy failed")
	ErrEmptyRootfs           = errors.New("rootfs is empty")
	ErrArchiveCreationFailed = errors.New("archive creation failed")
	ErrUploadFailed          = errors.New("template upload failed")
	ErrUnsupportedSource     = errors.New("unsupported rootfs source")
)

// Identity errors
var (
	ErrIdentityExhausted = errors.New("vmid range exhausted")
)

// State errors
var (
	ErrStateMissing       = errors.New("container state missing")
	ErrInvalidStateFormat = errors.New("invalid container state format")
)

// Orchestration errors
var (
	ErrUnsupportedImageReference = errors.New("unsupported image reference")
	ErrPathTraversal             = errors.New("bundle path escapes allowed prefixes")
	ErrMountConfigFailed         = errors.New("mount configuration failed")
)

// Translated external-tool errors. These form the stable error contract
// that shields callers from the diagnostic text of the underlying CLI
// tools.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOperationFailed  = errors.New("operation failed")
)

// IsNotFound returns true if the error maps to the not-found class
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error maps to the permission class
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsAlreadyExists returns true if the error maps to the already-exists class
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsInvalidArgument returns true if the error maps to the invalid-argument class
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// Opf wraps err with the operation name and container id so every fatal
// error surfaced to a caller identifies what failed and for which
// container.
func Opf(op, containerID string, err error) error {
	return fmt.Errorf("%s %s: %w", op, containerID, err)
}
