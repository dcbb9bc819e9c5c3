package security

// Capability identifies one of the OS sandboxing primitives probed at startup.
type Capability int

const (
	SyscallFilter Capability = iota
	LSMSandbox
	NamespaceIsolation
)

// Capabilities lists every probed capability in probe order.
var Capabilities = []Capability{SyscallFilter, LSMSandbox, NamespaceIsolation}

func (c Capability) String() string {
	switch c {
	case SyscallFilter:
		return "seccomp"
	case LSMSandbox:
		return "landlock"
	case NamespaceIsolation:
		return "unshare-user-namespace-and-change-root"
	default:
		return "unknown"
	}
}

// SecurityStatus is the host's sandbox posture as seen by the rest of the
// system. It is produced once at startup and never mutated.
type SecurityStatus struct {
	SecureValidatorMode                  bool
	CanEnableSeccomp                     bool
	CanEnableLandlock                    bool
	CanUnshareUserNamespaceAndChangeRoot bool
}

// Has reports whether the given capability is available.
func (s SecurityStatus) Has(c Capability) bool {
	switch c {
	case SyscallFilter:
		return s.CanEnableSeccomp
	case LSMSandbox:
		return s.CanEnableLandlock
	case NamespaceIsolation:
		return s.CanUnshareUserNamespaceAndChangeRoot
	default:
		return false
	}
}

// IsolationLevel returns the effective filesystem isolation level.
// "full" = Landlock + namespace/change root, "partial" = one of the two,
// "minimal" = neither.
func (s SecurityStatus) IsolationLevel() string {
	if s.CanEnableLandlock && s.CanUnshareUserNamespaceAndChangeRoot {
		return "full"
	}
	if s.CanEnableLandlock || s.CanUnshareUserNamespaceAndChangeRoot {
		return "partial"
	}
	return "minimal"
}

func (s *SecurityStatus) set(c Capability, available bool) {
	switch c {
	case SyscallFilter:
		s.CanEnableSeccomp = available
	case LSMSandbox:
		s.CanEnableLandlock = available
	case NamespaceIsolation:
		s.CanUnshareUserNamespaceAndChangeRoot = available
	}
}
