package security

import (
	"errors"
	"strings"
)

// ErrSecureModeUnavailable is returned when Secure Validator Mode is required
// but the host has a gap no other capability compensates for.
var ErrSecureModeUnavailable = errors.New("could not enable Secure Validator Mode; check logs")

// InsecureFlag is the command line flag that disables Secure Validator Mode.
const InsecureFlag = "--insecure-validator-i-know-what-i-do"

const (
	secureModeError = "Your system cannot securely run a validator." +
		"\nRunning validation of malicious PVF code has a higher risk of compromising this machine."
	secureModeWarning = "Some security issues have been detected." +
		"\nRunning validation of malicious PVF code has a higher risk of compromising this machine."
	ignoreSecureModeTip = "\nYou can ignore this error with the `" + InsecureFlag + "` " +
		"command line argument if you understand and accept the risks of running insecurely." +
		"\nMore information: https://wiki.polkadot.network/docs/maintain-guides-secure-validator#secure-validator-mode"
	secureModeInfo = "Running in Secure Validator Mode. " +
		"It is highly recommended that you operate according to our security guidelines. " +
		"More information: https://wiki.polkadot.network/docs/maintain-guides-secure-validator."
)

// compensatingControls maps a capability to the one that makes its absence
// acceptable in Secure Validator Mode. Seccomp has no substitute.
var compensatingControls = map[Capability]Capability{
	LSMSandbox:         NamespaceIsolation,
	NamespaceIsolation: LSMSandbox,
}

// IsAllowedInSecureMode reports whether missing capability c is tolerable
// given the rest of the status.
func IsAllowedInSecureMode(c Capability, status SecurityStatus) bool {
	substitute, ok := compensatingControls[c]
	if !ok {
		return false
	}
	return status.Has(substitute)
}

// PostureReport aggregates probe results for a single check.
type PostureReport struct {
	status SecurityStatus
	errs   []*ProbeError
}

// NewPostureReport builds a report from the probe results. A nil result marks
// the capability as available.
func NewPostureReport(secureValidatorMode bool, results map[Capability]error) *PostureReport {
	r := &PostureReport{status: SecurityStatus{SecureValidatorMode: secureValidatorMode}}
	for _, c := range Capabilities {
		err, probed := results[c]
		if probed && err == nil {
			r.status.set(c, true)
			continue
		}

		var perr *ProbeError
		switch {
		case !probed:
			perr = &ProbeError{Capability: c, Reason: "no probe configured"}
		case errors.As(err, &perr):
		default:
			perr = &ProbeError{Capability: c, Reason: err.Error()}
		}
		r.errs = append(r.errs, perr)
	}
	return r
}

// Status returns the public view of the report.
func (r *PostureReport) Status() SecurityStatus {
	return r.status
}

// ErrOccurred reports whether any probe failed.
func (r *PostureReport) ErrOccurred() bool {
	return len(r.errs) > 0
}

// AllErrsAllowed reports whether the failures can be accepted: always when
// Secure Validator Mode is off, otherwise only if each one is compensated.
func (r *PostureReport) AllErrsAllowed() bool {
	if !r.status.SecureValidatorMode {
		return true
	}
	for _, err := range r.errs {
		if !IsAllowedInSecureMode(err.Capability, r.status) {
			return false
		}
	}
	return true
}

// ErrsString renders one line per failure, prefixed "Optional: " when
// the failure is tolerable.
func (r *PostureReport) ErrsString() string {
	var b strings.Builder
	for _, err := range r.errs {
		b.WriteString("\n  - ")
		if IsAllowedInSecureMode(err.Capability, r.status) {
			b.WriteString("Optional: ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Message renders the operator-facing text for a report with failures.
func (r *PostureReport) Message() string {
	if r.AllErrsAllowed() {
		return secureModeWarning + r.ErrsString()
	}
	return secureModeError + r.ErrsString() + ignoreSecureModeTip
}
