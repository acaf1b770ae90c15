package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrVersionConflict is returned by every compare-and-swap write whose
// expected version (or counter value) no longer matches the stored one.
var ErrVersionConflict = errors.New("record was modified concurrently")

// isUniqueViolation reports whether err is a Postgres unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// checkAffected maps a zero-row CAS update to ErrVersionConflict when the
// row exists, or to notFound otherwise.
func checkAffected(rowsAffected int64, exists func() (bool, error), notFound error) error {
	if rowsAffected > 0 {
		return nil
	}
	ok, err := exists()
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return ErrVersionConflict
}
