// Package session provides Redis-backed per-session state for the login and
// recovery flows, stored in a compact binary encoding.
//
// # Binary encoding
//
// State records are stored in Redis as a versioned binary format with a
// leading schema byte. The encoder is append-only: new versions add fields
// but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [State] model. It
// does NOT evaluate lockout policy or verify credentials — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import the root memberauth package (no upward imports).
//   - Store passwords, answers, or their hashes in [State] fields.
package session
