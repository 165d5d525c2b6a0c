package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrConstraintViolation is returned when Postgres rejects a write because of
// a CHECK, NOT NULL, UNIQUE or foreign key constraint.
var ErrConstraintViolation = errors.New("constraint violation")

// translateError maps Postgres integrity errors (class 23) onto
// ErrConstraintViolation and leaves everything else untouched.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pqErr.Message)
	}
	return err
}
