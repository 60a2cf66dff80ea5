package memberauth

import (
	"errors"
	"time"
)

// Config defines a public type used by memberauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Lockout      LockoutConfig
	Password     PasswordConfig
	Registration RegistrationConfig
	Session      SessionConfig
	Recovery     RecoveryConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by memberauth APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	// Steps is the escalation table, sorted by ascending Threshold. The
	// window for a failure count is the Duration of the highest step whose
	// Threshold the count has reached.
	Steps []LockoutStep

	// CounterUpdateRetries bounds how many times a lost counter
	// read-modify-write race is replayed before giving up.
	CounterUpdateRetries int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by memberauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
}

// RegistrationConfig defines a public type used by memberauth APIs.
//
// RegistrationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegistrationConfig struct {
	MinAge int
}

// SessionConfig defines a public type used by memberauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// RecoveryConfig defines a public type used by memberauth APIs.
//
// RecoveryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RecoveryConfig struct {
	// ShowRecoveryLinkAfter is the consecutive same-session failure count
	// at which login surfaces the recovery prompt.
	ShowRecoveryLinkAfter int

	// AuthorizationTTL bounds how long a verified recovery stays valid
	// before SetNewPassword must be called.
	AuthorizationTTL time.Duration
}

// AuditConfig defines a public type used by memberauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by memberauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig returns the configuration a fresh [Builder] starts from. The
// returned value is a deep copy; mutating it never affects built engines.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			Steps:                defaultLockoutSteps(),
			CounterUpdateRetries: 4,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Registration: RegistrationConfig{
			MinAge: 18,
		},
		Session: SessionConfig{
			RedisPrefix: "ma",
			TTL:         30 * time.Minute,
		},
		Recovery: RecoveryConfig{
			ShowRecoveryLinkAfter: 2,
			AuthorizationTTL:      10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.Lockout.Steps) == 0 {
		return errors.New("Lockout.Steps must not be empty")
	}
	prevThreshold := 0
	for i, step := range c.Lockout.Steps {
		if step.Threshold <= prevThreshold {
			return errors.New("Lockout.Steps thresholds must be strictly ascending and positive")
		}
		if step.Duration <= 0 {
			return errors.New("Lockout.Steps durations must be positive")
		}
		if i > 0 && step.Duration < c.Lockout.Steps[i-1].Duration {
			return errors.New("Lockout.Steps durations must not decrease")
		}
		prevThreshold = step.Threshold
	}
	if c.Lockout.CounterUpdateRetries < 1 {
		return errors.New("Lockout.CounterUpdateRetries must be >= 1")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password.Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password.Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password.Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password.SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password.KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password.MinLength must be >= 8")
	}

	if c.Registration.MinAge < 0 {
		return errors.New("Registration.MinAge must not be negative")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session.RedisPrefix must not be empty")
	}
	if c.Session.TTL < time.Minute {
		return errors.New("Session.TTL must be >= 1m")
	}

	if c.Recovery.ShowRecoveryLinkAfter < 1 {
		return errors.New("Recovery.ShowRecoveryLinkAfter must be >= 1")
	}
	if c.Recovery.AuthorizationTTL < time.Minute {
		return errors.New("Recovery.AuthorizationTTL must be >= 1m")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Lockout.Steps = make([]LockoutStep, len(cfg.Lockout.Steps))
	copy(out.Lockout.Steps, cfg.Lockout.Steps)
	return out
}
