package memberauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/liquorlink/memberauth/internal"
	"github.com/liquorlink/memberauth/session"
)

// BeginRecovery starts account recovery for a session. Unlike login, this
// step deliberately reveals whether the identifier matched an account:
// ErrUserNotFound is the documented outcome for a miss, and a hit returns
// the user's three enrolled question prompts.
func (e *Engine) BeginRecovery(ctx context.Context, sessionID, identifier string) (*RecoveryChallenge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, ErrSessionIDInvalid
	}

	user, err := e.userStore.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricRecoveryUserNotFound)
			e.emitAudit(ctx, auditEventRecoveryUserNotFound, false, "", sessionID, ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sessionStore.SetRecoveryUser(ctx, sessionID, user.UserID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	challenge := &RecoveryChallenge{
		UserID:   user.UserID,
		Username: user.Username,
	}
	for i, slot := range user.SecurityQuestions {
		prompt, ok := QuestionPrompt(slot.QuestionID)
		if !ok {
			prompt = slot.QuestionID
		}
		challenge.Questions[i] = Question{ID: slot.QuestionID, Prompt: prompt}
	}

	e.metricInc(MetricRecoveryBegin)
	e.emitAudit(ctx, auditEventRecoveryBegin, true, user.UserID, sessionID, nil, nil)

	return challenge, nil
}

// SubmitRecoveryAnswers verifies the three security answers for the user the
// session began recovery against. Answers are paired positionally with the
// enrolled questions. Each answer must match its re-entry exactly; after
// that, all three must verify against their stored hashes or the whole
// submission fails with the single generic ErrAnswersIncorrect — which
// answer missed is never disclosed. Success grants the session a single-use
// password-change authorization, replacing any outstanding one.
func (e *Engine) SubmitRecoveryAnswers(ctx context.Context, sessionID, userID string, answers, confirmations [3]string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return ErrSessionIDInvalid
	}

	state, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrStateNotFound) {
			return ErrRecoveryNotStarted
		}
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if state.RecoveryUserID == "" || state.RecoveryUserID != userID {
		return ErrRecoveryNotStarted
	}

	for i := range answers {
		if answers[i] != confirmations[i] {
			e.emitAudit(ctx, auditEventRecoveryAnswersRejected, false, userID, sessionID, ErrAnswerConfirmationMismatch, nil)
			return ErrAnswerConfirmationMismatch
		}
	}

	user, err := e.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Verify all three before deciding: no early exit, so response shape
	// does not leak which answer failed.
	allCorrect := true
	for i, slot := range user.SecurityQuestions {
		ok, err := e.secretHash.Verify(normalizeAnswer(answers[i]), slot.AnswerHash)
		if err != nil {
			return fmt.Errorf("verify answer: %w", err)
		}
		if !ok {
			allCorrect = false
		}
	}

	if !allCorrect {
		e.metricInc(MetricRecoveryAnswersRejected)
		e.emitAudit(ctx, auditEventRecoveryAnswersRejected, false, userID, sessionID, ErrAnswersIncorrect, nil)
		return ErrAnswersIncorrect
	}

	if err := e.sessionStore.SaveAuthorization(ctx, sessionID, userID, e.config.Recovery.AuthorizationTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	e.metricInc(MetricRecoveryAnswersAccepted)
	e.emitAudit(ctx, auditEventRecoveryAnswersAccepted, true, userID, sessionID, nil, nil)

	return nil
}

// SetNewPassword completes recovery by replacing the password for the user
// the session's authorization names. The authorization is consumed
// atomically up front, so two concurrent calls can never both succeed; if
// the new password fails validation the grant is restored for another try.
// A successful change clears the failure counter and any lockout window.
func (e *Engine) SetNewPassword(ctx context.Context, sessionID, newPassword, confirmPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return ErrSessionIDInvalid
	}

	userID, err := e.sessionStore.ConsumeAuthorization(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrAuthorizationNotFound) {
			e.metricInc(MetricPasswordResetUnauthorized)
			e.emitAudit(ctx, auditEventPasswordResetUnauthorized, false, "", sessionID, ErrRecoveryNotAuthorized, nil)
			return ErrRecoveryNotAuthorized
		}
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	fieldErrs := FieldErrors{}
	if msg := validatePasswordStrength(newPassword, e.config.Password.MinLength); msg != "" {
		fieldErrs.set(FieldPassword, msg)
	}
	if newPassword != confirmPassword {
		fieldErrs.set(FieldConfirmPass, "Passwords do not match.")
	}
	if len(fieldErrs) > 0 {
		// Give the grant back: a weak password is a retryable mistake,
		// not a spent authorization.
		if restoreErr := e.sessionStore.SaveAuthorization(ctx, sessionID, userID, e.config.Recovery.AuthorizationTTL); restoreErr != nil {
			return fmt.Errorf("%w: %v", ErrSessionUnavailable, restoreErr)
		}
		e.metricInc(MetricPasswordResetRejected)
		e.emitAudit(ctx, auditEventPasswordResetRejected, false, userID, sessionID, fieldErrs, nil)
		return fieldErrs
	}

	passwordHash, err := e.secretHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := e.userStore.UpdatePasswordAndClearLockout(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetSuccess, true, userID, sessionID, nil, nil)

	return nil
}
