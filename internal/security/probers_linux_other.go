//go:build linux && !amd64

package security

// DefaultProbers returns the probing strategy for this platform. The seccomp
// filter used by workers is only built for x86_64.
func DefaultProbers(workerPath, cachePath string) Probers {
	w := &WorkerProber{WorkerPath: workerPath, CachePath: cachePath}
	return Probers{
		SyscallFilter:      unavailableProber{reason: "only supported on CPUs from the x86_64 family (usually Intel or AMD)"},
		LSMSandbox:         w,
		NamespaceIsolation: w,
	}
}
