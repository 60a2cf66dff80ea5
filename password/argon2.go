package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Hard floors. Config values below these are rejected at construction, and
// stored hashes claiming weaker parameters are rejected at parse time so a
// tampered hash cannot downgrade the work factor.
const (
	floorMemoryKB    uint32 = 8 * 1024
	floorTime        uint32 = 1
	floorParallelism uint8  = 1
	floorSaltLength  uint32 = 16
	floorKeyLength   uint32 = 16
)

// Config defines a public type used by memberauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes secrets with argon2id and emits PHC-formatted strings
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash). Verification reads the
// parameters back out of the stored string, so parameter upgrades never
// invalidate existing hashes.
type Argon2 struct {
	config Config
}

// NewArgon2 describes the newargon2 operation and its observable behavior.
//
// NewArgon2 may return an error when input validation, dependency calls, or security checks fail.
// NewArgon2 does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < floorMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < floorTime:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < floorParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < floorSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < floorKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}

	return &Argon2{config: cfg}, nil
}

// Hash derives an argon2id hash of secret under a fresh random salt.
//
// The secret's raw bytes are used exactly as provided, with no Unicode
// normalization. Length policy is the caller's concern: the same hasher
// covers passwords and normalized security answers, which may be a single
// short word. Only an empty secret is refused.
func (a *Argon2) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches the PHC-encoded hash. The
// comparison is constant time; the error path is reserved for hashes that
// cannot be parsed at all.
func (a *Argon2) Verify(secret, encodedHash string) (bool, error) {
	fields, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), fields.salt, fields.time, fields.memory, fields.parallelism, uint32(len(fields.key)))

	return subtle.ConstantTimeCompare(computed, fields.key) == 1, nil
}

// NeedsUpgrade reports whether the stored hash was produced with weaker
// parameters than this hasher is configured for, meaning the secret should
// be re-hashed the next time it is presented in clear.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	fields, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := a.config.Memory > fields.memory ||
		a.config.Time > fields.time ||
		a.config.Parallelism > fields.parallelism ||
		a.config.KeyLength != uint32(len(fields.key))

	return weaker, nil
}

type phcFields struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// parsePHC splits and validates a $argon2id$... string. Anything that is
// not argon2id at the library's current version, or that claims parameters
// below the floors, is rejected outright.
func parsePHC(encodedHash string) (*phcFields, error) {
	var (
		version         int
		mem, t          uint32
		par             uint8
		saltB64, keyB64 string
	)

	n, err := fmt.Sscanf(encodedHash, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s", &version, &mem, &t, &par, &saltB64)
	if err != nil || n != 5 {
		return nil, errors.New("malformed argon2id hash")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}
	if mem < floorMemoryKB || t < floorTime || par < floorParallelism {
		return nil, errors.New("argon2 parameters below floor")
	}

	// Sscanf's %s consumed "salt$key" as one token; split it back apart.
	sep := -1
	for i := 0; i < len(saltB64); i++ {
		if saltB64[i] == '$' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, errors.New("malformed argon2id hash")
	}
	saltB64, keyB64 = saltB64[:sep], saltB64[sep+1:]

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil || uint32(len(salt)) < floorSaltLength {
		return nil, errors.New("invalid salt")
	}

	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil || len(key) == 0 {
		return nil, errors.New("invalid key")
	}

	return &phcFields{
		memory:      mem,
		time:        t,
		parallelism: par,
		salt:        salt,
		key:         key,
	}, nil
}
