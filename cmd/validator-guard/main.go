package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/VikingOwl91/validator-guard/internal/config"
	"github.com/VikingOwl91/validator-guard/internal/logging"
	"github.com/VikingOwl91/validator-guard/internal/security"
	"github.com/VikingOwl91/validator-guard/internal/workerbin"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfig = "/etc/validator-guard/config.yaml"

// statusRecord is the status printed to stdout for other components.
type statusRecord struct {
	SecureValidatorMode                  bool `json:"secure_validator_mode"`
	CanEnableSeccomp                     bool `json:"can_enable_seccomp"`
	CanEnableLandlock                    bool `json:"can_enable_landlock"`
	CanUnshareUserNamespaceAndChangeRoot bool `json:"can_unshare_user_namespace_and_change_root"`
}

func main() {
	flags := pflag.NewFlagSet("validator-guard", pflag.ContinueOnError)
	configPath := flags.String("config", defaultConfig, "path to config file")
	workerPath := flags.String("worker-path", "", "worker binary used for capability probes (overrides config)")
	cachePath := flags.String("cache-path", "", "directory for probe scratch space (overrides config)")
	insecure := flags.Bool(security.InsecureFlag[2:], false, "allow running without Secure Validator Mode")
	logLevel := flags.String("log-level", "", "debug, info, warn or error (overrides config)")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: validator-guard [flags] [-- job-command args...]\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *showVersion {
		fmt.Printf("validator-guard %s (%s, %s)\n", version, commit, date)
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := applyOverrides(cfg, overrides{
		workerPath: *workerPath,
		cachePath:  *cachePath,
		logLevel:   *logLevel,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	secureMode := cfg.SecureMode() && !*insecure

	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := workerbin.Verify(cfg.Worker.Path, cfg.Worker.Hash, cfg.Worker.AllowedPaths)
	if err != nil {
		logger.Error("refusing to probe with unverified worker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.CachePath, 0o700); err != nil {
		logger.Warn("could not create cache directory", slog.String("cache_path", cfg.CachePath), slog.String("error", err.Error()))
	}

	status, err := security.CheckSecurityStatus(ctx, security.Options{
		SecureValidatorMode: secureMode,
		WorkerPath:          worker.Path,
		CachePath:           cfg.CachePath,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := json.NewEncoder(os.Stdout).Encode(statusRecord(status)); err != nil {
		logger.Error("writing status", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if job := flags.Args(); len(job) > 0 {
		os.Exit(runJob(ctx, logger, cfg.Audit, job))
	}
}

// overrides holds config values given on the command line. Empty fields keep
// the file value.
type overrides struct {
	workerPath string
	cachePath  string
	logLevel   string
}

// applyOverrides merges command line values into cfg and validates the result.
func applyOverrides(cfg *config.Config, o overrides) error {
	if o.workerPath != "" {
		cfg.Worker.Path = o.workerPath
	}
	if o.cachePath != "" {
		cfg.CachePath = o.cachePath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid command line override: %w", err)
	}
	return nil
}

// runJob runs a job command and reports seccomp violations attributed to it.
// It returns the job's exit code.
func runJob(ctx context.Context, logger *slog.Logger, audit config.AuditConfig, job []string) int {
	// The log must be opened before the job starts so older events are skipped.
	auditLog := security.TryOpenAuditLog(audit.LogPaths...)
	if auditLog != nil {
		auditLog.MaxReadBytes = audit.MaxReadBytes
	}

	cmd := exec.CommandContext(ctx, job[0], job[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		auditLog.Close()
		logger.Error("starting job", slog.String("command", job[0]), slog.String("error", err.Error()))
		return 1
	}
	pid := cmd.Process.Pid
	waitErr := cmd.Wait()

	for _, syscallNr := range security.CheckSeccompViolationsForJob(ctx, logger, auditLog, pid) {
		logger.Warn("job triggered a seccomp violation",
			slog.Int("job_pid", pid),
			slog.Uint64("syscall", uint64(syscallNr)),
		)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return 0
	case errors.As(waitErr, &exitErr):
		return exitErr.ExitCode()
	default:
		logger.Error("waiting for job", slog.Int("job_pid", pid), slog.String("error", waitErr.Error()))
		return 1
	}
}
