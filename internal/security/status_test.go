package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsolationLevel_Full(t *testing.T) {
	s := SecurityStatus{CanEnableLandlock: true, CanUnshareUserNamespaceAndChangeRoot: true}
	assert.Equal(t, "full", s.IsolationLevel())
}

func TestIsolationLevel_Partial_LandlockOnly(t *testing.T) {
	s := SecurityStatus{CanEnableSeccomp: true, CanEnableLandlock: true}
	assert.Equal(t, "partial", s.IsolationLevel())
}

func TestIsolationLevel_NamespaceOnlyIsPartial(t *testing.T) {
	s := SecurityStatus{CanUnshareUserNamespaceAndChangeRoot: true}
	assert.Equal(t, "partial", s.IsolationLevel())
}

func TestIsolationLevel_SeccompDoesNotCount(t *testing.T) {
	s := SecurityStatus{SecureValidatorMode: true, CanEnableSeccomp: true}
	assert.Equal(t, "minimal", s.IsolationLevel())
}

func TestHas(t *testing.T) {
	s := SecurityStatus{CanEnableSeccomp: true, CanUnshareUserNamespaceAndChangeRoot: true}
	assert.True(t, s.Has(SyscallFilter))
	assert.False(t, s.Has(LSMSandbox))
	assert.True(t, s.Has(NamespaceIsolation))
	assert.False(t, s.Has(Capability(42)))
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "seccomp", SyscallFilter.String())
	assert.Equal(t, "landlock", LSMSandbox.String())
	assert.Equal(t, "unshare-user-namespace-and-change-root", NamespaceIsolation.String())
}
