// Package workerbin locates the worker binary that answers capability probes
// and checks it against the operator's pinning configuration.
package workerbin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Binary is a worker executable that passed verification.
type Binary struct {
	Path string // absolute, symlinks resolved
	Hash string // "sha256:<hex>", set only when a pin was checked
}

// Verify resolves worker, checks it lives under one of allowedDirs and, when
// expectedHash is set, that its content matches. Empty allowedDirs and an
// empty expectedHash disable the respective check.
func Verify(worker, expectedHash string, allowedDirs []string) (*Binary, error) {
	path, err := Resolve(worker)
	if err != nil {
		return nil, fmt.Errorf("worker binary: %w", err)
	}

	// Directory check first, so an unexpected binary is never read.
	if err := CheckAllowed(path, allowedDirs); err != nil {
		return nil, fmt.Errorf("worker binary: %w", err)
	}

	bin := &Binary{Path: path}
	if expectedHash == "" {
		return bin, nil
	}

	algorithm, digest, err := ParseHash(expectedHash)
	if err != nil {
		return nil, fmt.Errorf("worker binary: %w", err)
	}
	computed, err := Hash(path)
	if err != nil {
		return nil, fmt.Errorf("worker binary: %w", err)
	}
	if computed != algorithm+":"+digest {
		return nil, fmt.Errorf("worker binary: hash mismatch for %q: expected %s, computed %s",
			path, expectedHash, computed)
	}
	bin.Hash = computed
	return bin, nil
}

// Resolve turns worker into an absolute path with symlinks evaluated.
// Bare names are looked up in PATH.
func Resolve(worker string) (string, error) {
	path := worker
	if !filepath.IsAbs(path) {
		found, err := exec.LookPath(worker)
		if err != nil {
			return "", fmt.Errorf("resolving %q: %w", worker, err)
		}
		if path, err = filepath.Abs(found); err != nil {
			return "", fmt.Errorf("absolute path for %q: %w", found, err)
		}
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %q: %w", path, err)
	}
	return resolved, nil
}

// CheckAllowed returns an error unless path is one of allowedDirs or lies
// beneath one of them. "~/" prefixes are expanded.
func CheckAllowed(path string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return nil
	}

	for _, allowed := range allowedDirs {
		dir := filepath.Clean(expandTilde(allowed))
		if path == dir {
			return nil
		}
		prefix := dir
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return nil
		}
	}
	return fmt.Errorf("%q is not under any allowed path", path)
}

// ParseHash splits "sha256:<hex>" into algorithm and digest. The digest is
// returned in lower case, the form Hash produces.
func ParseHash(s string) (algorithm, digest string, err error) {
	algorithm, digest, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid hash format %q: expected \"sha256:<hex>\"", s)
	}
	if algorithm != "sha256" {
		return "", "", fmt.Errorf("unsupported hash algorithm %q: only \"sha256\" is supported", algorithm)
	}
	if len(digest) != sha256.Size*2 {
		return "", "", fmt.Errorf("sha256 digest must be %d hex characters, got %d", sha256.Size*2, len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", fmt.Errorf("invalid hex digest in hash %q: %w", s, err)
	}
	return algorithm, strings.ToLower(digest), nil
}

// Hash returns "sha256:<hex>" of the regular file at path.
func Hash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%q is not a regular file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %q: %w", path, err)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func expandTilde(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
