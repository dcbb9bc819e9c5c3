//go:build linux && amd64

package security

// DefaultProbers returns the probing strategy for this platform. On
// linux/amd64 every capability is checked by the worker binary.
func DefaultProbers(workerPath, cachePath string) Probers {
	w := &WorkerProber{WorkerPath: workerPath, CachePath: cachePath}
	return Probers{
		SyscallFilter:      w,
		LSMSandbox:         w,
		NamespaceIsolation: w,
	}
}
