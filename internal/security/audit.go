package security

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Default locations searched for seccomp audit events, in order.
const (
	AuditLogPath = "/var/log/audit/audit.log"
	SyslogPath   = "/var/log/syslog"
)

// DefaultAuditLogPaths is the search order used by TryOpenAuditLog when no
// paths are given.
var DefaultAuditLogPaths = []string{AuditLogPath, SyslogPath}

// Kernel audit record type for seccomp violations. auditd writes the
// symbolic name, syslog the number.
var seccompEventTypes = []string{"type=1326", "type=SECCOMP"}

// AuditLog is a system log opened before a job starts. Only entries written
// after it was opened are read, so events from earlier processes with the
// same pid are ignored. A pid can still be reused by an unrelated process
// between the job exiting and the read; detection is best effort.
//
// An AuditLog is consumed by CheckSeccompViolationsForJob and cannot be
// reused for a second job.
type AuditLog struct {
	file *os.File
	path string

	// MaxReadBytes caps how much new log data is read. Zero means no cap.
	MaxReadBytes int64
}

// TryOpenAuditLog opens the first readable log among paths and seeks to its
// end. It returns nil when none can be opened.
//
// Call it before the job is started, not when its result is checked.
func TryOpenAuditLog(paths ...string) *AuditLog {
	if len(paths) == 0 {
		paths = DefaultAuditLogPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			continue
		}
		return &AuditLog{file: f, path: path}
	}
	return nil
}

// Path returns the location of the opened log.
func (a *AuditLog) Path() string {
	return a.path
}

// Close releases the handle without reading it.
func (a *AuditLog) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// CheckSeccompViolationsForJob returns the syscall numbers of seccomp
// violations logged for jobPID since the log was opened, oldest first.
// The log is closed afterwards.
func CheckSeccompViolationsForJob(ctx context.Context, logger *slog.Logger, log *AuditLog, jobPID int) []uint32 {
	if logger == nil {
		logger = slog.Default()
	}
	if log == nil {
		logger.WarnContext(ctx, "could not open any audit log for reading seccomp violations",
			slog.Int("job_pid", jobPID),
		)
		return nil
	}
	if log.file == nil {
		logger.DebugContext(ctx, "audit log handle already consumed",
			slog.Int("job_pid", jobPID),
			slog.String("audit_log_path", log.path),
		)
		return nil
	}
	defer log.Close()

	logger.DebugContext(ctx, "checking audit log for seccomp violations",
		slog.Int("job_pid", jobPID),
		slog.String("audit_log_path", log.path),
	)

	var r io.Reader = log.file
	if log.MaxReadBytes > 0 {
		r = io.LimitReader(r, log.MaxReadBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		logger.WarnContext(ctx, "reading audit log stopped early",
			slog.String("audit_log_path", log.path),
			slog.String("error", err.Error()),
		)
	}
	if log.MaxReadBytes > 0 && int64(len(data)) == log.MaxReadBytes {
		// Drop the line cut off by the cap rather than parse half of it.
		data = data[:bytes.LastIndexByte(data, '\n')+1]
		logger.WarnContext(ctx, "audit log read capped",
			slog.String("audit_log_path", log.path),
			slog.Int64("max_read_bytes", log.MaxReadBytes),
		)
	}

	pidField := "pid=" + strconv.Itoa(jobPID)
	var violations []uint32
	for _, line := range strings.Split(string(data), "\n") {
		if syscall, ok := parseSeccompEvent(line, pidField); ok {
			violations = append(violations, syscall)
		}
	}

	return violations
}

// parseSeccompEvent extracts the syscall number from a seccomp audit record
// belonging to pidField. Field order is not assumed.
func parseSeccompEvent(line, pidField string) (uint32, bool) {
	fields := strings.Fields(line)

	var isSeccomp, pidMatches bool
	for _, f := range fields {
		switch {
		case f == pidField:
			pidMatches = true
		case slices.Contains(seccompEventTypes, f):
			isSeccomp = true
		}
	}
	if !isSeccomp || !pidMatches {
		return 0, false
	}

	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, "syscall="); ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return 0, false
			}
			return uint32(n), true
		}
	}
	return 0, false
}

