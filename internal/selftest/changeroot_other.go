//go:build !linux

package selftest

import "context"

// CheckChangeRoot is not supported on non-Linux platforms.
func CheckChangeRoot(_ context.Context, _ string) error {
	return ErrChangeRootUnsupported
}

// RunChangeRootEntrypoint is not supported on non-Linux platforms.
func RunChangeRootEntrypoint(_ string) error {
	return ErrChangeRootUnsupported
}
