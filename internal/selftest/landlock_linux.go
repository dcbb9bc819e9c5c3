//go:build linux

package selftest

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Landlock filesystem access rights known to ABI v1.
const llAccessFSV1 uint64 = unix.LANDLOCK_ACCESS_FS_EXECUTE |
	unix.LANDLOCK_ACCESS_FS_READ_FILE |
	unix.LANDLOCK_ACCESS_FS_READ_DIR |
	unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
	unix.LANDLOCK_ACCESS_FS_REMOVE_DIR |
	unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
	unix.LANDLOCK_ACCESS_FS_MAKE_CHAR |
	unix.LANDLOCK_ACCESS_FS_MAKE_DIR |
	unix.LANDLOCK_ACCESS_FS_MAKE_REG |
	unix.LANDLOCK_ACCESS_FS_MAKE_SOCK |
	unix.LANDLOCK_ACCESS_FS_MAKE_FIFO |
	unix.LANDLOCK_ACCESS_FS_MAKE_BLOCK |
	unix.LANDLOCK_ACCESS_FS_MAKE_SYM

// LandlockABI returns the highest Landlock ABI version supported by the
// kernel, or 0 if Landlock is unavailable.
func LandlockABI() int {
	abi, _, errno := syscall.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		0, // attr = NULL
		0, // size = 0
		uintptr(unix.LANDLOCK_CREATE_RULESET_VERSION),
	)
	if errno != 0 {
		return 0
	}
	return int(abi)
}

// handledAccessFS returns every filesystem right the given ABI can restrict.
func handledAccessFS(abi int) uint64 {
	access := llAccessFSV1
	if abi >= 2 {
		access |= unix.LANDLOCK_ACCESS_FS_REFER
	}
	if abi >= 3 {
		access |= unix.LANDLOCK_ACCESS_FS_TRUNCATE
	}
	return access
}

// CheckLandlock restricts the calling thread with a ruleset that has no
// rules, so every handled access is denied, and verifies the kernel enforces
// it. The thread stays restricted, so this must only run in a throwaway
// worker process.
func CheckLandlock(minABI int) error {
	abi := LandlockABI()
	if abi <= 0 {
		return ErrLandlockUnsupported
	}
	if abi < minABI {
		return fmt.Errorf("landlock ABI %d not available (kernel supports %d)", minABI, abi)
	}

	runtime.LockOSThread()
	if err := denyAllFS(abi); err != nil {
		return err
	}

	if _, err := os.ReadDir("/"); !errors.Is(err, unix.EACCES) {
		return fmt.Errorf("landlock ruleset applied but not enforced (read of / returned %v)", err)
	}
	return nil
}

func denyAllFS(abi int) error {
	attr := unix.LandlockRulesetAttr{
		Access_fs: handledAccessFS(abi),
	}
	rulesetFD, _, errno := syscall.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		uintptr(unsafe.Pointer(&attr)),
		unsafe.Sizeof(attr),
		0,
	)
	if errno != 0 {
		return fmt.Errorf("landlock_create_ruleset: %w", errno)
	}
	defer syscall.Close(int(rulesetFD))

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PR_SET_NO_NEW_PRIVS): %w", err)
	}

	_, _, errno = syscall.Syscall(unix.SYS_LANDLOCK_RESTRICT_SELF, rulesetFD, 0, 0)
	if errno != 0 {
		return fmt.Errorf("landlock_restrict_self: %w", errno)
	}
	return nil
}
