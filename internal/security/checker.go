package security

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Options configures CheckSecurityStatus.
type Options struct {
	SecureValidatorMode bool
	WorkerPath          string
	CachePath           string
}

// Checker runs the capability probes and applies the posture policy.
type Checker struct {
	probers Probers
	logger  *slog.Logger
}

// NewChecker returns a Checker using the given probing strategies.
func NewChecker(probers Probers, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{probers: probers, logger: logger}
}

// CheckSecurityStatus probes the host with the platform's default strategy.
func CheckSecurityStatus(ctx context.Context, opts Options, logger *slog.Logger) (SecurityStatus, error) {
	return NewChecker(DefaultProbers(opts.WorkerPath, opts.CachePath), logger).Check(ctx, opts.SecureValidatorMode)
}

// Check runs all three probes concurrently and waits for every one of them.
//
// An error is returned only when Secure Validator Mode is required and some
// missing capability is not compensated by another. Otherwise the status is
// returned even if capabilities are missing, so callers must inspect it.
func (c *Checker) Check(ctx context.Context, secureValidatorMode bool) (SecurityStatus, error) {
	logger := c.logger.With(slog.String("check_id", uuid.NewString()))

	var seccomp, landlock, changeRoot error
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		seccomp = c.probe(ctx, logger, SyscallFilter)
	}()
	go func() {
		defer wg.Done()
		landlock = c.probe(ctx, logger, LSMSandbox)
	}()
	go func() {
		defer wg.Done()
		changeRoot = c.probe(ctx, logger, NamespaceIsolation)
	}()
	wg.Wait()

	report := NewPostureReport(secureValidatorMode, map[Capability]error{
		SyscallFilter:      seccomp,
		LSMSandbox:         landlock,
		NamespaceIsolation: changeRoot,
	})
	status := report.Status()

	if report.ErrOccurred() {
		if !report.AllErrsAllowed() {
			logger.Error(report.Message())
			return SecurityStatus{}, ErrSecureModeUnavailable
		}
		logger.Warn(report.Message())
	}

	if status.SecureValidatorMode {
		logger.Info(secureModeInfo, slog.String("isolation_level", status.IsolationLevel()))
	}

	return status, nil
}

func (c *Checker) probe(ctx context.Context, logger *slog.Logger, capability Capability) error {
	p, ok := c.probers[capability]
	if !ok || p == nil {
		return &ProbeError{Capability: capability, Reason: "no probe configured"}
	}
	err := p.Probe(ctx, capability)
	logger.Debug("capability probe finished",
		slog.String("capability", capability.String()),
		slog.Bool("available", err == nil),
	)
	return err
}
