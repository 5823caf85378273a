package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// Audit dispatcher counters, exported alongside the engine counters.
const (
	AuditDroppedName   = "gosession_audit_dropped_total"
	AuditDroppedHelp   = "Dropped audit events due to dispatcher backpressure."
	AuditDeliveredName = "gosession_audit_delivered_total"
	AuditDeliveredHelp = "Audit events handed to the configured sink."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: goSession.MetricLoginLocked, Name: "gosession_login_locked_total", Help: "Logins rejected because the account was locked."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins and registrations rejected by the per-IP throttle."},
	{ID: goSession.MetricLoginMFARequired, Name: "gosession_login_mfa_required_total", Help: "Logins answered with an MFA challenge."},
	{ID: goSession.MetricLoginMFAFailure, Name: "gosession_login_mfa_failure_total", Help: "Logins rejected for an invalid TOTP code."},
	{ID: goSession.MetricAccountLocked, Name: "gosession_account_locked_total", Help: "Accounts moved into the locked state."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goSession.MetricRefreshReuseDetected, Name: "gosession_refresh_reuse_detected_total", Help: "Refresh token reuse detections."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts."},
	{ID: goSession.MetricRevokedTokenRejected, Name: "gosession_revoked_token_rejected_total", Help: "Access tokens rejected as revoked."},
	{ID: goSession.MetricMFAEnabled, Name: "gosession_mfa_enabled_total", Help: "MFA enrollments."},
	{ID: goSession.MetricMFADisabled, Name: "gosession_mfa_disabled_total", Help: "MFA removals."},
	{ID: goSession.MetricPasswordChangeSuccess, Name: "gosession_password_change_success_total", Help: "Successful password changes."},
	{ID: goSession.MetricPasswordChangeFailure, Name: "gosession_password_change_failure_total", Help: "Rejected password changes."},
	{ID: goSession.MetricRegistrationSuccess, Name: "gosession_registration_success_total", Help: "Created accounts."},
	{ID: goSession.MetricRegistrationDuplicate, Name: "gosession_registration_duplicate_total", Help: "Registrations rejected as duplicate."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one extra +Inf bucket after them.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBucketLabels holds the "le" label of each bucket, +Inf included.
var HistogramBucketLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
