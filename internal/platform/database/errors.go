package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrMissingDatabaseURL = errors.New("database URL is required")
	ErrMigrationFailed    = errors.New("migration failed")
)

// Postgres SQLSTATE codes the repositories translate
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}
