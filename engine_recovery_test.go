package memberauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUserWithAnswers(t *testing.T, engine *Engine) string {
	t.Helper()

	userID, err := engine.Register(context.Background(), validRegistrationInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return userID
}

var recoveryAnswers = [3]string{"Bantay", "Iloilo", "Reyes"}

func beginRecovery(t *testing.T, engine *Engine, sid string) *RecoveryChallenge {
	t.Helper()

	challenge, err := engine.BeginRecovery(context.Background(), sid, "maria_santos")
	if err != nil {
		t.Fatalf("BeginRecovery failed: %v", err)
	}
	return challenge
}

func TestBeginRecoveryReturnsEnrolledQuestions(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)

	challenge := beginRecovery(t, engine, sid)
	if challenge.UserID != userID || challenge.Username != "maria_santos" {
		t.Fatalf("unexpected challenge identity: %+v", challenge)
	}

	wantIDs := []string{"favorite_pet_name", "city_of_birth", "mother_maiden_name"}
	for i, q := range challenge.Questions {
		if q.ID != wantIDs[i] {
			t.Fatalf("question %d: expected %s, got %s", i, wantIDs[i], q.ID)
		}
		if q.Prompt == "" {
			t.Fatalf("question %d: missing prompt", i)
		}
	}
}

func TestBeginRecoveryRevealsUnknownIdentifier(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)
	sid := newSessionID(t, engine)

	_, err := engine.BeginRecovery(context.Background(), sid, "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSubmitRecoveryAnswersGrantsAuthorization(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, recoveryAnswers)
	if err != nil {
		t.Fatalf("SubmitRecoveryAnswers failed: %v", err)
	}

	if err := engine.SetNewPassword(ctx, sid, "N3w-secret!", "N3w-secret!"); err != nil {
		t.Fatalf("SetNewPassword failed: %v", err)
	}

	result, loginErr := engine.Login(ctx, newSessionID(t, engine), "maria_santos", "N3w-secret!")
	if loginErr != nil {
		t.Fatalf("login with new password failed: %v", loginErr)
	}
	if result.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, result.UserID)
	}
}

func TestSubmitRecoveryAnswersCaseAndSpaceInsensitive(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	sloppy := [3]string{" BANTAY ", "iloilo", " Reyes"}
	if err := engine.SubmitRecoveryAnswers(ctx, sid, userID, sloppy, sloppy); err != nil {
		t.Fatalf("expected normalized answers to verify: %v", err)
	}
}

func TestSubmitRecoveryAnswersSingleMissIsGeneric(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	wrong := recoveryAnswers
	wrong[1] = "Cebu"

	err := engine.SubmitRecoveryAnswers(ctx, sid, userID, wrong, wrong)
	if !errors.Is(err, ErrAnswersIncorrect) {
		t.Fatalf("expected generic ErrAnswersIncorrect, got %v", err)
	}

	// No authorization was granted.
	if err := engine.SetNewPassword(ctx, sid, "N3w-secret!", "N3w-secret!"); !errors.Is(err, ErrRecoveryNotAuthorized) {
		t.Fatalf("expected ErrRecoveryNotAuthorized after rejected answers, got %v", err)
	}
}

func TestSubmitRecoveryAnswersConfirmationMismatch(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	confirmations := recoveryAnswers
	confirmations[2] = "reyes " // must match the entry exactly, pre-normalization

	err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, confirmations)
	if !errors.Is(err, ErrAnswerConfirmationMismatch) {
		t.Fatalf("expected ErrAnswerConfirmationMismatch, got %v", err)
	}
}

func TestSubmitRecoveryAnswersRequiresBeginForSameUser(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)

	// Fresh session, no BeginRecovery.
	sid := newSessionID(t, engine)
	err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, recoveryAnswers)
	if !errors.Is(err, ErrRecoveryNotStarted) {
		t.Fatalf("expected ErrRecoveryNotStarted without begin, got %v", err)
	}

	// Begin for one user, submit for another.
	sid = newSessionID(t, engine)
	beginRecovery(t, engine, sid)
	err = engine.SubmitRecoveryAnswers(ctx, sid, "someone-else", recoveryAnswers, recoveryAnswers)
	if !errors.Is(err, ErrRecoveryNotStarted) {
		t.Fatalf("expected ErrRecoveryNotStarted for mismatched user, got %v", err)
	}
}

func TestSetNewPasswordAuthorizationIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	if err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, recoveryAnswers); err != nil {
		t.Fatalf("SubmitRecoveryAnswers failed: %v", err)
	}

	if err := engine.SetNewPassword(ctx, sid, "N3w-secret!", "N3w-secret!"); err != nil {
		t.Fatalf("first SetNewPassword failed: %v", err)
	}

	// The grant was consumed with the change.
	err := engine.SetNewPassword(ctx, sid, "An0ther-one!", "An0ther-one!")
	if !errors.Is(err, ErrRecoveryNotAuthorized) {
		t.Fatalf("expected second change refused, got %v", err)
	}
}

func TestSetNewPasswordWithoutAuthorization(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	sid := newSessionID(t, engine)
	err := engine.SetNewPassword(context.Background(), sid, "N3w-secret!", "N3w-secret!")
	if !errors.Is(err, ErrRecoveryNotAuthorized) {
		t.Fatalf("expected ErrRecoveryNotAuthorized, got %v", err)
	}
	if got := engine.metrics.Value(MetricPasswordResetUnauthorized); got != 1 {
		t.Fatalf("expected 1 unauthorized metric, got %d", got)
	}
}

func TestSetNewPasswordWeakPasswordKeepsGrant(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	userID := seedUserWithAnswers(t, engine)
	sid := newSessionID(t, engine)
	beginRecovery(t, engine, sid)

	if err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, recoveryAnswers); err != nil {
		t.Fatalf("SubmitRecoveryAnswers failed: %v", err)
	}

	// A rejected password hands the authorization back for another try.
	err := engine.SetNewPassword(ctx, sid, "weak", "weak")
	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors for weak password, got %v", err)
	}
	if !fields.Has(FieldPassword) {
		t.Fatalf("expected password violation, got %v", fields)
	}

	if err := engine.SetNewPassword(ctx, sid, "N3w-secret!", "N3w-secret!"); err != nil {
		t.Fatalf("retry after weak password failed: %v", err)
	}
}

func TestSetNewPasswordClearsLockout(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	store := newMockUserStore()
	engine := newTestEngine(t, rdb, store, hasher)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine.clock = func() time.Time { return now }

	userID := seedUserWithAnswers(t, engine)

	// Lock the account.
	sid := newSessionID(t, engine)
	for i := 0; i < 3; i++ {
		_, _ = engine.Login(ctx, sid, "maria_santos", "wrong-X1!")
	}

	beginRecovery(t, engine, sid)
	if err := engine.SubmitRecoveryAnswers(ctx, sid, userID, recoveryAnswers, recoveryAnswers); err != nil {
		t.Fatalf("SubmitRecoveryAnswers failed: %v", err)
	}
	if err := engine.SetNewPassword(ctx, sid, "N3w-secret!", "N3w-secret!"); err != nil {
		t.Fatalf("SetNewPassword failed: %v", err)
	}

	// Lockout cleared even though the window had not elapsed.
	if _, err := engine.Login(ctx, newSessionID(t, engine), "maria_santos", "N3w-secret!"); err != nil {
		t.Fatalf("login after reset failed: %v", err)
	}
}
