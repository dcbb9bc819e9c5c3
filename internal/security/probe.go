package security

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Worker flags selecting a single self-test.
const (
	FlagCheckLandlock    = "--check-can-enable-landlock"
	FlagCheckSeccomp     = "--check-can-enable-seccomp"
	FlagCheckChangeRoot  = "--check-can-unshare-user-namespace-and-change-root"
	changeRootTempPrefix = "check-can-unshare-"
)

// LandlockABI is the Landlock ABI version the worker sandbox targets.
const LandlockABI = 1

// ProbeEnvAllowlist is the set of environment variables passed to a probe
// worker. Everything else is stripped.
var ProbeEnvAllowlist = []string{"PATH", "LANG", "LC_ALL", "TMPDIR", "TZ"}

// ProbeError reports that a capability is unavailable on this host.
type ProbeError struct {
	Capability Capability
	Reason     string
}

func (e *ProbeError) Error() string {
	switch e.Capability {
	case LSMSandbox:
		return "Cannot enable landlock, a Linux 5.13+ kernel security feature: " + e.Reason
	case SyscallFilter:
		return "Cannot enable seccomp, a Linux-specific kernel security feature: " + e.Reason
	case NamespaceIsolation:
		return "Cannot unshare user namespace and change root, which are Linux-specific kernel security features: " + e.Reason
	default:
		return fmt.Sprintf("Cannot enable %s: %s", e.Capability, e.Reason)
	}
}

// Prober checks whether a single capability can be enabled. A nil error means
// the capability is available; otherwise the error is a *ProbeError.
type Prober interface {
	Probe(ctx context.Context, capability Capability) error
}

// WorkerProber delegates a self-test to the worker binary and interprets its
// exit status.
type WorkerProber struct {
	WorkerPath string
	CachePath  string

	// Env is the child's environment. A nil Env passes the filtered
	// environment of the current process.
	Env []string
}

// Probe runs the worker self-test for the capability.
func (w *WorkerProber) Probe(ctx context.Context, capability Capability) error {
	switch capability {
	case LSMSandbox:
		return w.run(ctx, capability, FlagCheckLandlock)
	case SyscallFilter:
		return w.run(ctx, capability, FlagCheckSeccomp)
	case NamespaceIsolation:
		dir, err := os.MkdirTemp(w.CachePath, changeRootTempPrefix)
		if err != nil {
			return &ProbeError{
				Capability: capability,
				Reason:     fmt.Sprintf("could not create a temporary directory in %q: %v", w.CachePath, err),
			}
		}
		defer os.RemoveAll(dir)
		return w.run(ctx, capability, FlagCheckChangeRoot, dir)
	default:
		return &ProbeError{Capability: capability, Reason: "unknown capability"}
	}
}

func (w *WorkerProber) run(ctx context.Context, capability Capability, args ...string) error {
	cmd := exec.CommandContext(ctx, w.WorkerPath, args...)
	cmd.Env = w.Env
	if cmd.Env == nil {
		cmd.Env = FilterEnv(os.Environ(), ProbeEnvAllowlist)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return &ProbeError{
			Capability: capability,
			Reason:     fmt.Sprintf("could not start child process: %v", err),
		}
	}

	msg := strings.TrimSpace(stderr.String())
	if msg != "" {
		return &ProbeError{Capability: capability, Reason: "not available: " + msg}
	}
	if capability == LSMSandbox {
		return &ProbeError{Capability: capability, Reason: fmt.Sprintf("landlock ABI %d not available", LandlockABI)}
	}
	return &ProbeError{Capability: capability, Reason: "not available"}
}

// unavailableProber fails every probe with a fixed reason. Platforms that
// cannot support a capability select it instead of a WorkerProber.
type unavailableProber struct {
	reason string
}

func (u unavailableProber) Probe(_ context.Context, capability Capability) error {
	return &ProbeError{Capability: capability, Reason: u.reason}
}

// Probers maps each capability to the strategy that checks it.
type Probers map[Capability]Prober
