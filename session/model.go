package session

// State defines a public type used by memberauth APIs.
//
// State instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type State struct {
	SessionID string

	// FailureCount counts consecutive failed login attempts in this
	// browser session. It is presentation state only; the authoritative
	// lockout counter lives on the user row.
	FailureCount uint32

	// LastIdentifier is the username or ID number of the most recent
	// login attempt. A new identifier resets FailureCount.
	LastIdentifier string

	ShowRecoveryLink bool

	// RecoveryUserID is set once BeginRecovery matches an account, so the
	// answer-verification step can re-resolve the same user.
	RecoveryUserID string

	CreatedAt int64
}
