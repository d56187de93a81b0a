package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint
// violation, across the drivers the service runs against.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// SupportsRowLocks reports whether the connected dialect understands
// SELECT ... FOR UPDATE. SQLite serializes writers on its own, so the
// clause is omitted there.
func SupportsRowLocks(tx *gorm.DB) bool {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}

// LockClause returns the row-lock suffix for raw queries, or an empty
// string on dialects without one.
func LockClause(tx *gorm.DB) string {
	if SupportsRowLocks(tx) {
		return " FOR UPDATE"
	}
	return ""
}
