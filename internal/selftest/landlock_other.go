//go:build !linux

package selftest

// LandlockABI always reports Landlock as unavailable.
func LandlockABI() int { return 0 }

// CheckLandlock is not supported on non-Linux platforms.
func CheckLandlock(_ int) error {
	return ErrLandlockUnsupported
}
