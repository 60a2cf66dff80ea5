package internaldefs

import (
	memberauth "github.com/liquorlink/memberauth"
)

// CounterDef defines a public type used by memberauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   memberauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by memberauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   memberauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: memberauth.MetricRegistrationSuccess, Name: "memberauth_registration_success_total", Help: "Successful registrations."},
	{ID: memberauth.MetricRegistrationRejected, Name: "memberauth_registration_rejected_total", Help: "Registrations rejected by field validation."},
	{ID: memberauth.MetricRegistrationDuplicate, Name: "memberauth_registration_duplicate_total", Help: "Registrations rejected as duplicate at the store."},
	{ID: memberauth.MetricLoginSuccess, Name: "memberauth_login_success_total", Help: "Successful login attempts."},
	{ID: memberauth.MetricLoginFailure, Name: "memberauth_login_failure_total", Help: "Failed login attempts."},
	{ID: memberauth.MetricLoginLockedOut, Name: "memberauth_login_locked_out_total", Help: "Login attempts refused by an active lockout."},
	{ID: memberauth.MetricLockoutTriggered, Name: "memberauth_lockout_triggered_total", Help: "Lockout windows opened or extended."},
	{ID: memberauth.MetricRecoveryBegin, Name: "memberauth_recovery_begin_total", Help: "Recovery challenges issued."},
	{ID: memberauth.MetricRecoveryUserNotFound, Name: "memberauth_recovery_user_not_found_total", Help: "Recovery attempts for unknown identifiers."},
	{ID: memberauth.MetricRecoveryAnswersAccepted, Name: "memberauth_recovery_answers_accepted_total", Help: "Recovery answer submissions that granted authorization."},
	{ID: memberauth.MetricRecoveryAnswersRejected, Name: "memberauth_recovery_answers_rejected_total", Help: "Recovery answer submissions rejected."},
	{ID: memberauth.MetricPasswordResetSuccess, Name: "memberauth_password_reset_success_total", Help: "Successful password resets."},
	{ID: memberauth.MetricPasswordResetRejected, Name: "memberauth_password_reset_rejected_total", Help: "Password resets rejected by password validation."},
	{ID: memberauth.MetricPasswordResetUnauthorized, Name: "memberauth_password_reset_unauthorized_total", Help: "Password reset attempts without a live authorization."},
	{ID: memberauth.MetricCounterConflictRetry, Name: "memberauth_counter_conflict_retry_total", Help: "Failure-counter writes retried after a lost race."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: memberauth.MetricLoginLatency, Name: "memberauth_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
