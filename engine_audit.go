package memberauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegistrationSuccess       = "registration_success"
	auditEventRegistrationRejected      = "registration_rejected"
	auditEventRegistrationDuplicate     = "registration_duplicate"
	auditEventLoginSuccess              = "login_success"
	auditEventLoginFailure              = "login_failure"
	auditEventLoginLockedOut            = "login_locked_out"
	auditEventLockoutTriggered          = "lockout_triggered"
	auditEventRecoveryBegin             = "recovery_begin"
	auditEventRecoveryUserNotFound      = "recovery_user_not_found"
	auditEventRecoveryAnswersAccepted   = "recovery_answers_accepted"
	auditEventRecoveryAnswersRejected   = "recovery_answers_rejected"
	auditEventPasswordResetSuccess      = "password_reset_success"
	auditEventPasswordResetRejected     = "password_reset_rejected"
	auditEventPasswordResetUnauthorized = "password_reset_unauthorized"
)

// AuditErrorCode defines a public type used by memberauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrLockedOut            AuditErrorCode = "locked_out"
	auditErrUserNotFound         AuditErrorCode = "user_not_found"
	auditErrFieldValidation      AuditErrorCode = "field_validation"
	auditErrAnswersIncorrect     AuditErrorCode = "answers_incorrect"
	auditErrConfirmationMismatch AuditErrorCode = "confirmation_mismatch"
	auditErrNotAuthorized        AuditErrorCode = "not_authorized"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var locked *LockedOutError
	var fields FieldErrors

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.As(err, &locked):
		return auditErrLockedOut
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.As(err, &fields):
		return auditErrFieldValidation
	case errors.Is(err, ErrAnswersIncorrect):
		return auditErrAnswersIncorrect
	case errors.Is(err, ErrAnswerConfirmationMismatch):
		return auditErrConfirmationMismatch
	case errors.Is(err, ErrRecoveryNotAuthorized),
		errors.Is(err, ErrRecoveryNotStarted):
		return auditErrNotAuthorized
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrSessionUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
