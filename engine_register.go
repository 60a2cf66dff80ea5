package memberauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Register validates a membership application and persists the new account.
//
// All field rules are evaluated in one pass and reported together as
// [FieldErrors]. The ID number's uniqueness is checked as soon as its format
// passes; username and email uniqueness are checked whenever every field rule
// holds, so a resubmitted form reports all three conflicts together.
// Returns the assigned user ID on success.
func (e *Engine) Register(ctx context.Context, in RegistrationInput) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	now := e.now()
	fieldErrs := validateRegistration(e.config, in, now)
	rulesClean := len(fieldErrs) == 0

	if !fieldErrs.Has(FieldIDNumber) {
		exists, err := e.userStore.ExistsIDNumber(ctx, in.IDNumber)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if exists {
			fieldErrs.set(FieldIDNumber, "ID number is already registered.")
		}
	}

	if rulesClean {
		usernameTaken, emailTaken, err := e.userStore.FindConflicts(ctx, in.Username, in.Email)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if usernameTaken {
			fieldErrs.set(FieldUsername, "Username is already taken.")
		}
		if emailTaken {
			fieldErrs.set(FieldEmail, "Email is already registered.")
		}
	}

	if len(fieldErrs) > 0 {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistrationRejected, false, "", "", fieldErrs, func() map[string]string {
			return map[string]string{"field_count": strconv.Itoa(len(fieldErrs))}
		})
		return "", fieldErrs
	}

	passwordHash, err := e.secretHash.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var slots [3]SecurityQuestionSlot
	for i, a := range in.SecurityAnswers {
		answerHash, err := e.secretHash.Hash(normalizeAnswer(a.Answer))
		if err != nil {
			return "", fmt.Errorf("hash security answer: %w", err)
		}
		slots[i] = SecurityQuestionSlot{
			QuestionID: a.QuestionID,
			AnswerHash: answerHash,
		}
	}

	born, _ := time.Parse("2006-01-02", in.Birthdate)

	record := &UserRecord{
		IDNumber:          in.IDNumber,
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      passwordHash,
		FirstName:         in.FirstName,
		MiddleName:        in.MiddleName,
		LastName:          in.LastName,
		NameExtension:     in.NameExtension,
		Birthdate:         born,
		Age:               ageAt(born, now),
		Sex:               in.Sex,
		Address:           composeAddress(in),
		SecurityQuestions: slots,
		CreatedAt:         now,
	}

	userID, err := e.userStore.Create(ctx, record)
	if err != nil {
		// The unique constraints are the backstop for registrations that
		// raced past the pre-checks. Map the collision back to its field.
		switch {
		case errors.Is(err, ErrDuplicateIDNumber):
			fieldErrs.set(FieldIDNumber, "ID number is already registered.")
		case errors.Is(err, ErrDuplicateUsername):
			fieldErrs.set(FieldUsername, "Username is already taken.")
		case errors.Is(err, ErrDuplicateEmail):
			fieldErrs.set(FieldEmail, "Email is already registered.")
		default:
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventRegistrationDuplicate, false, "", "", fieldErrs, nil)
		return "", fieldErrs
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistrationSuccess, true, userID, "", nil, nil)

	return userID, nil
}

// normalizeAnswer canonicalizes a security answer before hashing so that
// verification is insensitive to case and surrounding whitespace.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func composeAddress(in RegistrationInput) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{in.Street, in.Barangay, in.City, in.Province, in.Country, in.ZipCode} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
