//go:build !linux

package security

import "runtime"

// DefaultProbers returns the probing strategy for this platform. Nothing can
// be enabled outside Linux, so no worker is ever spawned.
func DefaultProbers(_, _ string) Probers {
	seccompReason := "only supported on Linux and on CPUs from the x86_64 family (usually Intel or AMD)."
	if runtime.GOARCH == "amd64" {
		seccompReason = "only supported on Linux"
	}
	linuxOnly := unavailableProber{reason: "only available on Linux"}
	return Probers{
		SyscallFilter:      unavailableProber{reason: seccompReason},
		LSMSandbox:         linuxOnly,
		NamespaceIsolation: linuxOnly,
	}
}
