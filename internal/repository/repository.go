// Package repository implements sqlite-backed storage for workflow
// entities. Every mutating method takes an optional *sql.Tx so the
// workflow engine can group the writes of one transition into a single
// transaction.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when a compare-and-set update
	// matched no row: the record was changed (or its status moved on)
	// since it was read.
	ErrVersionConflict = errors.New("record version conflict")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint (one tender per issue, one bid per contractor per tender).
	ErrDuplicate = errors.New("duplicate record")
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pick returns the transaction when one is supplied, otherwise the
// connection pool.
func pick(tx *sql.Tx, db *sql.DB) querier {
	if tx != nil {
		return tx
	}
	return db
}

// isUniqueViolation reports whether err is a sqlite uniqueness error
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// marshalStrings encodes a string slice as its JSON column form
func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// unmarshalStrings decodes a JSON string-array column, tolerating
// empty and malformed values
func unmarshalStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
