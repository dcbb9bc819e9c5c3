// Package selftest implements the worker side of the capability probes.
//
// Each check tries to actually enable a sandboxing primitive in the current
// process (or a child of it) and reports why it could not. The worker binary
// exits 0 when a check passes and writes the error to stderr otherwise.
package selftest

import "errors"

// ChangeRootSentinel is the first argument of the re-executed child that
// performs the change root inside fresh namespaces.
const ChangeRootSentinel = "__change_root__"

var (
	// ErrLandlockUnsupported is returned on platforms without Landlock.
	ErrLandlockUnsupported = errors.New("Landlock is not supported on this platform")

	// ErrSeccompUnsupported is returned where the seccomp filter cannot be built.
	ErrSeccompUnsupported = errors.New("seccomp filtering is not supported on this platform")

	// ErrChangeRootUnsupported is returned on platforms without user namespaces.
	ErrChangeRootUnsupported = errors.New("unsharing the user namespace is not supported on this platform")
)
