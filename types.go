package memberauth

import (
	"context"
	"time"
)

// UserRecord defines a public type used by memberauth APIs.
//
// UserRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type UserRecord struct {
	UserID       string
	IDNumber     string
	Username     string
	Email        string
	PasswordHash string

	FirstName     string
	MiddleName    string
	LastName      string
	NameExtension string
	Birthdate     time.Time
	Age           int
	Sex           string
	Address       string

	FailedLoginAttempts int
	LockoutUntil        *time.Time

	SecurityQuestions [3]SecurityQuestionSlot

	CreatedAt time.Time
}

// SecurityQuestionSlot defines a public type used by memberauth APIs.
//
// SecurityQuestionSlot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityQuestionSlot struct {
	QuestionID string
	AnswerHash string
}

// LockedOut reports whether the record carries a lockout window that has not
// elapsed at the given instant. Stale windows are never trusted; callers
// re-derive on every check.
func (u *UserRecord) LockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}

// UserStore defines a public type used by memberauth APIs.
//
// UserStore is the narrow query interface the engine requires from the
// backing credential store. Implementations must be safe for concurrent use,
// must treat identifiers case-sensitively, and must return the package store
// sentinels for duplicates, missing rows, and lost counter races.
type UserStore interface {
	// GetByIdentifier resolves a username or ID number to a full record.
	// Returns ErrNoSuchUser when no row matches.
	GetByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)

	// GetByID resolves a user by its store-assigned UserID.
	GetByID(ctx context.Context, userID string) (*UserRecord, error)

	// Create persists a new record and assigns UserID. Uniqueness of
	// IDNumber, Username, and Email is enforced here as the final
	// backstop; the corresponding duplicate sentinel identifies which
	// column collided.
	Create(ctx context.Context, record *UserRecord) (string, error)

	// ExistsIDNumber reports whether an ID number is already registered.
	ExistsIDNumber(ctx context.Context, idNumber string) (bool, error)

	// FindConflicts reports which of username/email are already taken.
	FindConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)

	// UpdateLoginCounters writes the failure counter and lockout window,
	// conditioned on the counter still holding prevAttempts. A lost race
	// returns ErrCounterConflict and writes nothing.
	UpdateLoginCounters(ctx context.Context, userID string, prevAttempts, newAttempts int, lockoutUntil *time.Time) error

	// ResetLoginCounters unconditionally zeroes the failure counter and
	// clears any lockout window.
	ResetLoginCounters(ctx context.Context, userID string) error

	// UpdatePasswordAndClearLockout overwrites the password hash and
	// resets counter state in one operation.
	UpdatePasswordAndClearLockout(ctx context.Context, userID string, passwordHash string) error
}

// RegistrationInput defines a public type used by memberauth APIs.
//
// RegistrationInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegistrationInput struct {
	IDNumber      string
	FirstName     string
	MiddleName    string
	LastName      string
	NameExtension string
	Birthdate     string // "2006-01-02"
	Sex           string
	Street        string
	Barangay      string
	City          string
	Province      string
	Country       string
	ZipCode       string
	Email         string
	Username      string
	Password      string
	ConfirmPass   string

	SecurityAnswers [3]SecurityAnswerInput
}

// SecurityAnswerInput defines a public type used by memberauth APIs.
//
// SecurityAnswerInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityAnswerInput struct {
	QuestionID string
	Answer     string
}

// LoginResult defines a public type used by memberauth APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	UserID   string
	Username string
}

// SessionInfo defines a public type used by memberauth APIs.
//
// SessionInfo surfaces the per-session presentation state a frontend needs
// between login attempts: the consecutive failure count, whether to offer the
// recovery link, and any lockout still active for the last identifier tried.
type SessionInfo struct {
	FailureCount     int
	ShowRecoveryLink bool
	LastIdentifier   string
	LockedOut        bool
	RemainingSeconds int64
}

// RecoveryChallenge defines a public type used by memberauth APIs.
//
// RecoveryChallenge instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RecoveryChallenge struct {
	UserID    string
	Username  string
	Questions [3]Question
}
