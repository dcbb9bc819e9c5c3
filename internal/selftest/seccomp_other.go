//go:build !(linux && amd64)

package selftest

// CheckSeccomp is only implemented for linux/amd64.
func CheckSeccomp() error {
	return ErrSeccompUnsupported
}
