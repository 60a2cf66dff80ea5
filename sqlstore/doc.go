// Package sqlstore provides the reference [Store] implementation of the
// engine's UserStore interface on SQLite.
//
// Uniqueness of ID number, username, and email is enforced by UNIQUE
// constraints, and the login counter read-modify-write is serialized with a
// conditional UPDATE, so the store holds its guarantees under concurrent
// engines sharing one database file.
package sqlstore
