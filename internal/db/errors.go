package db

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Violation identifies the integrity constraint a statement tripped.
type Violation string

// Constraint violation kinds reported by Classify.
const (
	ViolationNone       Violation = ""
	ViolationUnique     Violation = "unique"
	ViolationForeignKey Violation = "foreign_key"
	ViolationCheck      Violation = "check"
	ViolationNotNull    Violation = "not_null"
)

// Classify inspects err for a PostgreSQL integrity violation and returns its kind together with
// the constraint name.
func Classify(err error) (Violation, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ViolationNone, ""
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return ViolationUnique, pgErr.ConstraintName
	case pgerrcode.ForeignKeyViolation:
		return ViolationForeignKey, pgErr.ConstraintName
	case pgerrcode.CheckViolation:
		return ViolationCheck, pgErr.ConstraintName
	case pgerrcode.NotNullViolation:
		return ViolationNotNull, pgErr.ColumnName
	default:
		return ViolationNone, ""
	}
}

// IsNoRows reports whether err signals an empty single-row result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
