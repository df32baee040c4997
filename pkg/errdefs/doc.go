/*
Package errdefs defines the sentinel errors hutch operations return.

Every failure class a caller might want to branch on has one sentinel
here, from bundle validation (config missing, rootfs missing) through
conversion (extraction failed, empty rootfs) to the translated external
tool failures (not found, permission denied, already exists). Callers
test with errors.Is or the Is* helpers; error strings are for humans.

Opf wraps an error with the failing operation and container ID while
preserving the chain, so "failed to create container web-1" still
matches errors.Is(err, ErrAlreadyExists).
*/
package errdefs
