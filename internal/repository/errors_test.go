package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/municipal-it/helpdesk/internal/domain"
)

func TestMapWriteError(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !errors.Is(mapWriteError(dup), ErrDuplicate) {
		t.Error("unique violation should map to ErrDuplicate")
	}
	fk := &pgconn.PgError{Code: "23503"}
	if got := mapWriteError(fk); got != error(fk) {
		t.Errorf("foreign key violation mapped to %v", got)
	}
}

func TestMalformedKeyIsMissingRow(t *testing.T) {
	// Postgres rejects "abc" for a uuid column with invalid_text_representation.
	bad := fmt.Errorf("get ticket: %w", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})
	if !errors.Is(mapReadError(bad), pgx.ErrNoRows) {
		t.Error("malformed uuid on read should map to pgx.ErrNoRows")
	}
	if !errors.Is(mapWriteError(bad), pgx.ErrNoRows) {
		t.Error("malformed uuid on write should map to pgx.ErrNoRows")
	}
	other := &pgconn.PgError{Code: "57014"}
	if got := mapReadError(other); got != error(other) {
		t.Errorf("query cancellation mapped to %v", got)
	}
	if mapReadError(nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestKindStrings(t *testing.T) {
	got := kindStrings(domain.FinalKinds())
	if len(got) != 2 || got[0] != "RESOLVED" || got[1] != "CLOSED" {
		t.Errorf("kindStrings = %v", got)
	}
}
