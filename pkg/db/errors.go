package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/brewhouse/cafe-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-key violation from either
// driver. A non-empty constraint narrows the match to that index.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pkgerrors.PGCode(err) == pgUniqueViolation {
		return constraint == "" || pkgerrors.PGConstraint(err) == constraint
	}
	msg := err.Error()
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
