package security

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	available bool
	calls     atomic.Int32
}

func (f *fakeProber) Probe(_ context.Context, c Capability) error {
	f.calls.Add(1)
	if f.available {
		return nil
	}
	return &ProbeError{Capability: c, Reason: "not available"}
}

func newFakeProbers(seccomp, landlock, changeRoot bool) Probers {
	return Probers{
		SyscallFilter:      &fakeProber{available: seccomp},
		LSMSandbox:         &fakeProber{available: landlock},
		NamespaceIsolation: &fakeProber{available: changeRoot},
	}
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestCheck_AllAvailableRequired(t *testing.T) {
	var buf bytes.Buffer
	c := NewChecker(newFakeProbers(true, true, true), newTestLogger(&buf))

	status, err := c.Check(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, SecurityStatus{
		SecureValidatorMode:                  true,
		CanEnableSeccomp:                     true,
		CanEnableLandlock:                    true,
		CanUnshareUserNamespaceAndChangeRoot: true,
	}, status)

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Contains(t, entries[0]["msg"], "Secure Validator Mode")
	assert.Equal(t, "full", entries[0]["isolation_level"])
	assert.NotEmpty(t, entries[0]["check_id"])
}

func TestCheck_LandlockMissingIsOptional(t *testing.T) {
	var buf bytes.Buffer
	c := NewChecker(newFakeProbers(true, false, true), newTestLogger(&buf))

	status, err := c.Check(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, status.SecureValidatorMode)
	assert.True(t, status.CanEnableSeccomp)
	assert.False(t, status.CanEnableLandlock)
	assert.True(t, status.CanUnshareUserNamespaceAndChangeRoot)

	entries := logEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Contains(t, entries[0]["msg"], "Optional: Cannot enable landlock")
	assert.Equal(t, "INFO", entries[1]["level"])
}

func TestCheck_SeccompMissingFails(t *testing.T) {
	var buf bytes.Buffer
	c := NewChecker(newFakeProbers(false, true, true), newTestLogger(&buf))

	_, err := c.Check(context.Background(), true)
	require.ErrorIs(t, err, ErrSecureModeUnavailable)
	assert.Contains(t, err.Error(), "check logs")

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	msg := entries[0]["msg"].(string)
	assert.Contains(t, msg, "Cannot enable seccomp")
	assert.NotContains(t, msg, "Optional: Cannot enable seccomp")
	assert.Contains(t, msg, InsecureFlag)
}

func TestCheck_BothFilesystemMechanismsMissingFails(t *testing.T) {
	var buf bytes.Buffer
	c := NewChecker(newFakeProbers(true, false, false), newTestLogger(&buf))

	_, err := c.Check(context.Background(), true)
	require.ErrorIs(t, err, ErrSecureModeUnavailable)
}

func TestCheck_NotRequiredNeverFails(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		var buf bytes.Buffer
		c := NewChecker(newFakeProbers(mask&1 != 0, mask&2 != 0, mask&4 != 0), newTestLogger(&buf))

		status, err := c.Check(context.Background(), false)
		require.NoError(t, err, "mask %03b", mask)
		assert.False(t, status.SecureValidatorMode)
		assert.Equal(t, mask&1 != 0, status.CanEnableSeccomp)
		assert.Equal(t, mask&2 != 0, status.CanEnableLandlock)
		assert.Equal(t, mask&4 != 0, status.CanUnshareUserNamespaceAndChangeRoot)

		for _, entry := range logEntries(t, &buf) {
			assert.Equal(t, "WARN", entry["level"])
		}
	}
}

func TestCheck_RunsEveryProbe(t *testing.T) {
	probers := newFakeProbers(false, false, false)
	c := NewChecker(probers, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))

	_, err := c.Check(context.Background(), true)
	require.Error(t, err)
	for _, capability := range Capabilities {
		assert.Equal(t, int32(1), probers[capability].(*fakeProber).calls.Load(), capability.String())
	}
}

func TestCheck_MissingProber(t *testing.T) {
	var buf bytes.Buffer
	probers := newFakeProbers(true, true, true)
	delete(probers, NamespaceIsolation)
	c := NewChecker(probers, newTestLogger(&buf))

	status, err := c.Check(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, status.CanUnshareUserNamespaceAndChangeRoot)
	assert.Contains(t, buf.String(), "no probe configured")
}

func TestDefaultProbers_CoversEveryCapability(t *testing.T) {
	probers := DefaultProbers("/nonexistent/worker", t.TempDir())
	for _, c := range Capabilities {
		assert.NotNil(t, probers[c], c.String())
	}
}
