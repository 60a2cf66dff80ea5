package memberauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAnswersIncorrect is an exported constant or variable used by the authentication engine.
	ErrAnswersIncorrect = errors.New("one or more answers incorrect")
	// ErrAnswerConfirmationMismatch is an exported constant or variable used by the authentication engine.
	ErrAnswerConfirmationMismatch = errors.New("answer confirmation mismatch")
	// ErrRecoveryNotAuthorized is an exported constant or variable used by the authentication engine.
	ErrRecoveryNotAuthorized = errors.New("recovery not authorized")
	// ErrRecoveryNotStarted is an exported constant or variable used by the authentication engine.
	ErrRecoveryNotStarted = errors.New("recovery not started for session")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrSessionUnavailable is an exported constant or variable used by the authentication engine.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrSessionIDInvalid is an exported constant or variable used by the authentication engine.
	ErrSessionIDInvalid = errors.New("invalid session id")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Store sentinel errors. UserStore implementations must return these (or
// wrapped values that match via errors.Is) so the engine can translate
// conflicts back to the offending field and serialize counter updates.
var (
	// ErrNoSuchUser is an exported constant or variable used by the authentication engine.
	ErrNoSuchUser = errors.New("no such user")
	// ErrDuplicateIDNumber is an exported constant or variable used by the authentication engine.
	ErrDuplicateIDNumber = errors.New("duplicate id number")
	// ErrDuplicateUsername is an exported constant or variable used by the authentication engine.
	ErrDuplicateUsername = errors.New("duplicate username")
	// ErrDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrCounterConflict is an exported constant or variable used by the authentication engine.
	ErrCounterConflict = errors.New("login counter conflict")
)

// LockedOutError defines a public type used by memberauth APIs.
//
// LockedOutError reports an active lockout window on the account that the
// caller attempted to authenticate. RemainingSeconds is always >= 1; windows
// that have elapsed never produce a LockedOutError.
type LockedOutError struct {
	RemainingSeconds int64
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked, try again in %d seconds", e.RemainingSeconds)
}

// FieldErrors defines a public type used by memberauth APIs.
//
// FieldErrors maps an input field name to a human-readable violation message.
// Registration and password-change flows accumulate every violation in a
// single pass rather than failing on the first.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return fmt.Sprintf("%d field(s) invalid", len(f))
}

// Has describes the has operation and its observable behavior.
//
// Has may return an error when input validation, dependency calls, or security checks fail.
// Has does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

func (f FieldErrors) set(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}
