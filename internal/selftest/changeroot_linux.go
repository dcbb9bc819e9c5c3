//go:build linux

package selftest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

const usernsCloneSysctl = "/proc/sys/kernel/unprivileged_userns_clone"

// CheckChangeRoot re-executes the current binary inside a new user and mount
// namespace and has the child pivot into dir.
func CheckChangeRoot(ctx context.Context, dir string) error {
	if data, err := os.ReadFile(usernsCloneSysctl); err == nil && strings.TrimSpace(string(data)) == "0" {
		return fmt.Errorf("unprivileged user namespaces are disabled (%s = 0)", usernsCloneSysctl)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating worker executable: %w", err)
	}

	cmd := changeRootCmd(ctx, self, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.New(msg)
		}
		return fmt.Errorf("running child in new namespaces: %w", err)
	}
	return nil
}

func changeRootCmd(ctx context.Context, self, dir string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, self, ChangeRootSentinel, dir)
	cmd.Env = []string{}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS,
		UidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getuid(), Size: 1},
		},
		GidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getgid(), Size: 1},
		},
		GidMappingsEnableSetgroups: false,
	}
	return cmd
}

// RunChangeRootEntrypoint is called in the re-executed child. It makes dir
// the root of the mount namespace and checks nothing else is visible.
func RunChangeRootEntrypoint(dir string) error {
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("making mounts private: %w", err)
	}
	if err := unix.Mount(dir, dir, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind mounting %q: %w", dir, err)
	}
	if err := unix.Chdir(dir); err != nil {
		return fmt.Errorf("chdir %q: %w", dir, err)
	}
	// Stack the new root on top of the old one, then detach the old one.
	if err := unix.PivotRoot(".", "."); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}
	if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
		return fmt.Errorf("detaching old root: %w", err)
	}
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}

	entries, err := os.ReadDir("/")
	if err != nil {
		return fmt.Errorf("reading new root: %w", err)
	}
	if len(entries) != 0 {
		return fmt.Errorf("new root is not empty: %d entries visible", len(entries))
	}
	return nil
}
