package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/liquorlink/memberauth"
)

// Store wraps a SQLite database connection and implements
// memberauth.UserStore.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the migrated schema.
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	// WAL can fail on some filesystems; fall back to default journaling
	// rather than refusing to start.
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("Warning: failed to enable WAL mode (%v); continuing without WAL", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: sqlDB}

	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for i, m := range migrations {
		version := i + 1
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}

	return nil
}

const userColumns = `user_id, id_number, username, email, password_hash,
	first_name, middle_name, last_name, name_extension,
	birthdate, age, sex, address,
	failed_login_attempts, lockout_until, created_at`

// GetByIdentifier resolves a username or ID number to a full record.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*memberauth.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR id_number = ?",
		identifier, identifier,
	)
	return s.scanUser(ctx, row)
}

// GetByID resolves a user by its assigned UserID.
func (s *Store) GetByID(ctx context.Context, userID string) (*memberauth.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = ?",
		userID,
	)
	return s.scanUser(ctx, row)
}

func (s *Store) scanUser(ctx context.Context, row *sql.Row) (*memberauth.UserRecord, error) {
	var (
		u            memberauth.UserRecord
		birthdate    string
		lockoutUntil sql.NullInt64
		createdAt    int64
	)

	err := row.Scan(
		&u.UserID, &u.IDNumber, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.MiddleName, &u.LastName, &u.NameExtension,
		&birthdate, &u.Age, &u.Sex, &u.Address,
		&u.FailedLoginAttempts, &lockoutUntil, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, memberauth.ErrNoSuchUser
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if birthdate != "" {
		if born, parseErr := time.Parse("2006-01-02", birthdate); parseErr == nil {
			u.Birthdate = born
		}
	}
	if lockoutUntil.Valid {
		t := time.Unix(0, lockoutUntil.Int64)
		u.LockoutUntil = &t
	}
	u.CreatedAt = time.Unix(0, createdAt)

	rows, err := s.db.QueryContext(ctx,
		"SELECT slot, question_id, answer_hash FROM security_questions WHERE user_id = ? ORDER BY slot",
		u.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("query security questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			slot int
			q    memberauth.SecurityQuestionSlot
		)
		if err := rows.Scan(&slot, &q.QuestionID, &q.AnswerHash); err != nil {
			return nil, fmt.Errorf("scan security question: %w", err)
		}
		if slot >= 0 && slot < len(u.SecurityQuestions) {
			u.SecurityQuestions[slot] = q
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security questions: %w", err)
	}

	return &u, nil
}

// Create persists a new record and its security question slots in one
// transaction, assigning the UserID.
func (s *Store) Create(ctx context.Context, record *memberauth.UserRecord) (string, error) {
	userID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	var lockoutUntil any
	if record.LockoutUntil != nil {
		lockoutUntil = record.LockoutUntil.UnixNano()
	}

	birthdate := ""
	if !record.Birthdate.IsZero() {
		birthdate = record.Birthdate.Format("2006-01-02")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (
			user_id, id_number, username, email, password_hash,
			first_name, middle_name, last_name, name_extension,
			birthdate, age, sex, address,
			failed_login_attempts, lockout_until, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, record.IDNumber, record.Username, record.Email, record.PasswordHash,
		record.FirstName, record.MiddleName, record.LastName, record.NameExtension,
		birthdate, record.Age, record.Sex, record.Address,
		record.FailedLoginAttempts, lockoutUntil, record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", mapConstraintError(err)
	}

	for slot, q := range record.SecurityQuestions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO security_questions (user_id, slot, question_id, answer_hash) VALUES (?, ?, ?, ?)",
			userID, slot, q.QuestionID, q.AnswerHash,
		); err != nil {
			return "", fmt.Errorf("insert security question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", mapConstraintError(err)
	}

	return userID, nil
}

// mapConstraintError translates SQLite UNIQUE violations into the store
// sentinels so the engine can name the offending field. modernc.org/sqlite
// reports the constraint as "UNIQUE constraint failed: users.<column>".
func mapConstraintError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.id_number"):
		return fmt.Errorf("%w: %v", memberauth.ErrDuplicateIDNumber, err)
	case strings.Contains(msg, "users.username"):
		return fmt.Errorf("%w: %v", memberauth.ErrDuplicateUsername, err)
	case strings.Contains(msg, "users.email"):
		return fmt.Errorf("%w: %v", memberauth.ErrDuplicateEmail, err)
	default:
		return fmt.Errorf("create user: %w", err)
	}
}

// ExistsIDNumber reports whether an ID number is already registered.
func (s *Store) ExistsIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE id_number = ?", idNumber,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check id number: %w", err)
	}
	return count > 0, nil
}

// FindConflicts reports which of username/email are already taken.
func (s *Store) FindConflicts(ctx context.Context, username, email string) (bool, bool, error) {
	var usernameTaken, emailTaken bool

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", username,
	).Scan(&count); err != nil {
		return false, false, fmt.Errorf("check username: %w", err)
	}
	usernameTaken = count > 0

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ?", email,
	).Scan(&count); err != nil {
		return false, false, fmt.Errorf("check email: %w", err)
	}
	emailTaken = count > 0

	return usernameTaken, emailTaken, nil
}

// UpdateLoginCounters writes the failure counter and lockout window,
// conditioned on the previous counter value. A row that moved underneath
// the caller yields memberauth.ErrCounterConflict.
func (s *Store) UpdateLoginCounters(ctx context.Context, userID string, prevAttempts, newAttempts int, lockoutUntil *time.Time) error {
	var until any
	if lockoutUntil != nil {
		until = lockoutUntil.UnixNano()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = ?, lockout_until = ?
		WHERE user_id = ? AND failed_login_attempts = ?`,
		newAttempts, until, userID, prevAttempts,
	)
	if err != nil {
		return fmt.Errorf("update login counters: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update login counters: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE user_id = ?", userID,
	).Scan(&count); err != nil {
		return fmt.Errorf("update login counters: %w", err)
	}
	if count == 0 {
		return memberauth.ErrNoSuchUser
	}
	return memberauth.ErrCounterConflict
}

// ResetLoginCounters unconditionally zeroes the failure counter and clears
// any lockout window.
func (s *Store) ResetLoginCounters(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts = 0, lockout_until = NULL WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return fmt.Errorf("reset login counters: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return memberauth.ErrNoSuchUser
	}
	return nil
}

// UpdatePasswordAndClearLockout overwrites the password hash and resets
// counter state in one statement.
func (s *Store) UpdatePasswordAndClearLockout(ctx context.Context, userID string, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, failed_login_attempts = 0, lockout_until = NULL
		WHERE user_id = ?`,
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return memberauth.ErrNoSuchUser
	}
	return nil
}
