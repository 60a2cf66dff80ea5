package memberauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/liquorlink/memberauth/internal"
)

// Login authenticates an identifier (username or ID number) and password
// within a browser session.
//
// The outcome is one of three shapes: a [LoginResult] on success, a
// [*LockedOutError] when the account's lockout window has not elapsed, or
// ErrInvalidCredentials for everything else. Unknown identifiers are
// indistinguishable from wrong passwords; the lockout check runs before
// password verification so a correct password never shortens a window.
func (e *Engine) Login(ctx context.Context, sessionID, identifier, pass string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, ErrSessionIDInvalid
	}

	start := time.Now()
	defer func() {
		e.metricObserve(MetricLoginLatency, time.Since(start))
	}()

	user, err := e.userStore.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			// Same failure path as a wrong password. Account existence
			// is never exposed through login.
			return nil, e.failLogin(ctx, sessionID, identifier, "", nil)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := e.now()
	if user.LockedOut(now) {
		remaining := remainingLockout(*user.LockoutUntil, now)
		e.metricInc(MetricLoginLockedOut)
		e.emitAudit(ctx, auditEventLoginLockedOut, false, user.UserID, sessionID, nil, func() map[string]string {
			return map[string]string{"remaining_seconds": strconv.FormatInt(remaining, 10)}
		})
		return nil, &LockedOutError{RemainingSeconds: remaining}
	}

	ok, err := e.secretHash.Verify(pass, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, e.failLogin(ctx, sessionID, identifier, user.UserID, user)
	}

	if user.FailedLoginAttempts > 0 || user.LockoutUntil != nil {
		if err := e.userStore.ResetLoginCounters(ctx, user.UserID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	// Session failure state is per-browser-session UX only; a successful
	// login retires it entirely.
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sessionID, nil, nil)

	return &LoginResult{
		UserID:   user.UserID,
		Username: user.Username,
	}, nil
}

// failLogin records a failed attempt against both the session counter and,
// when the identifier matched an account, the persistent account counter.
// The returned error is what Login reports to the caller: the request that
// crosses a threshold sees the lockout it just triggered.
func (e *Engine) failLogin(ctx context.Context, sessionID, identifier, userID string, user *UserRecord) error {
	if _, err := e.sessionStore.RecordFailure(ctx, sessionID, identifier, e.config.Recovery.ShowRecoveryLinkAfter); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	var lockedUntil *time.Time
	if user != nil {
		until, err := e.bumpAccountFailures(ctx, user)
		if err != nil {
			return err
		}
		lockedUntil = until
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, sessionID, ErrInvalidCredentials, nil)

	if lockedUntil != nil {
		now := e.now()
		remaining := remainingLockout(*lockedUntil, now)
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, auditEventLockoutTriggered, false, userID, sessionID, nil, func() map[string]string {
			return map[string]string{"remaining_seconds": strconv.FormatInt(remaining, 10)}
		})
		return &LockedOutError{RemainingSeconds: remaining}
	}

	return ErrInvalidCredentials
}

// bumpAccountFailures increments the persistent failure counter and derives
// any new lockout window from the escalation table. The conditional update
// is replayed on lost races so concurrent failures never drop increments.
// Returns the new lockout deadline, or nil when the count is still below the
// first threshold.
func (e *Engine) bumpAccountFailures(ctx context.Context, user *UserRecord) (*time.Time, error) {
	retries := e.config.Lockout.CounterUpdateRetries

	for attempt := 0; attempt < retries; attempt++ {
		prev := user.FailedLoginAttempts
		next := prev + 1

		var until *time.Time
		if d := lockoutDuration(e.config.Lockout.Steps, next); d > 0 {
			deadline := e.now().Add(d)
			until = &deadline
		}

		err := e.userStore.UpdateLoginCounters(ctx, user.UserID, prev, next, until)
		if err == nil {
			return until, nil
		}
		if !errors.Is(err, ErrCounterConflict) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		e.metricInc(MetricCounterConflictRetry)

		fresh, err := e.userStore.GetByID(ctx, user.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		user = fresh
	}

	return nil, fmt.Errorf("%w: counter update retries exhausted", ErrStoreUnavailable)
}
