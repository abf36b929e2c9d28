package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStaleTicket is returned when a conditional ticket update matched no row
	// because the ticket is missing or its status changed underneath the caller.
	ErrStaleTicket = errors.New("ticket state changed concurrently")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate value")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// mapReadError reports a key Postgres cannot even parse, such as a malformed
// uuid, as a missing row.
func mapReadError(err error) error {
	if hasPgCode(err, invalidTextRepresentation) {
		return pgx.ErrNoRows
	}
	return err
}

func mapWriteError(err error) error {
	if hasPgCode(err, uniqueViolation) {
		return ErrDuplicate
	}
	return mapReadError(err)
}

func kindStrings[K ~string](kinds []K) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
