package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// UniqueViolation reports whether err is a PostgreSQL unique constraint violation
// and returns the violated constraint or index name.
func UniqueViolation(err error) (string, bool) {
	return pqViolation(err, uniqueViolation)
}

// ForeignKeyViolation reports whether err references a missing parent row.
func ForeignKeyViolation(err error) (string, bool) {
	return pqViolation(err, foreignKeyViolation)
}

func pqViolation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}
