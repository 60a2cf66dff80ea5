// Package memberauth provides a membership authentication engine with a
// field-level registration validation pipeline, escalating account lockout,
// security-question password recovery, and Redis-backed login session state.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// memberauth is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (UserRecord, RegistrationInput, SessionInfo, etc.). Credential storage is abstracted behind
// [UserStore]; a SQLite reference implementation lives under sqlstore/. Session encoding and
// recovery-authorization storage live under session/ and are never exported from here.
//
// # What this package must NOT do
//
//   - Expose Redis clients, session encoding details, or store internals in its public API.
//   - Store or log passwords or security answers in clear; only Argon2id hashes leave
//     the engine.
//   - Import any sub-package that re-imports memberauth (no import cycles).
//
// # Security contract
//
// Login never reveals whether an identifier exists: unknown users and wrong passwords
// produce the same [ErrInvalidCredentials]. Recovery answer checks verify all three
// answers before reporting a single generic failure. Lockout windows are enforced
// before password verification so a locked account rejects even the correct password.
package memberauth
