package memberauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liquorlink/memberauth/internal"
	"github.com/liquorlink/memberauth/password"
	"github.com/liquorlink/memberauth/session"
)

// Engine defines a public type used by memberauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	userStore    UserStore
	sessionStore *session.Store
	audit        *auditDispatcher
	metrics      *Metrics
	secretHash   *password.Argon2

	// clock is overridable in tests; nil means time.Now.
	clock func() time.Time
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) ready() error {
	if e == nil || e.userStore == nil || e.secretHash == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	return nil
}

// NewLoginSession mints an opaque session identifier for a new browser
// session. State is created lazily on the first failed attempt, so this
// performs no backend writes.
func (e *Engine) NewLoginSession(ctx context.Context) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// SessionInfo returns the presentation state for a session: consecutive
// failure count, whether to surface the recovery link, and any lockout still
// active on the account last attempted. The lockout is re-derived from the
// stored deadline on every call, never cached.
func (e *Engine) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, ErrSessionIDInvalid
	}

	state, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrStateNotFound) {
			return &SessionInfo{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	info := &SessionInfo{
		FailureCount:     int(state.FailureCount),
		ShowRecoveryLink: state.ShowRecoveryLink,
		LastIdentifier:   state.LastIdentifier,
	}

	if state.LastIdentifier == "" {
		return info, nil
	}

	user, err := e.userStore.GetByIdentifier(ctx, state.LastIdentifier)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return info, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := e.now()
	if user.LockedOut(now) {
		info.LockedOut = true
		info.RemainingSeconds = remainingLockout(*user.LockoutUntil, now)
	}

	return info, nil
}

// EndLoginSession discards all server-side state for a session, including
// any outstanding recovery authorization.
func (e *Engine) EndLoginSession(ctx context.Context, sessionID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return ErrSessionIDInvalid
	}

	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}
