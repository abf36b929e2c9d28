package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Error("nil error should stay nil")
	}
	wrapped := fmt.Errorf("load: %w", NewForbidden("no"))
	if de := ToDomainError(wrapped); de.Code != CodeForbidden || de.HTTPStatus != http.StatusForbidden {
		t.Errorf("wrapped = %+v", de)
	}
	if de := ToDomainError(pgx.ErrNoRows); de.Code != CodeNotFound {
		t.Errorf("no rows = %+v", de)
	}
	cause := errors.New("connection reset")
	de := ToDomainError(cause)
	if de.Code != CodeInternal || !errors.Is(de, cause) {
		t.Errorf("generic = %+v", de)
	}
}

func TestHasCodeMatchesConfigurationReason(t *testing.T) {
	err := fmt.Errorf("capture: %w", NewConfigurationError(CodeNoCapturedStatus, "captured status is not configured"))
	if !HasCode(err, CodeConfiguration) || !HasCode(err, CodeNoCapturedStatus) {
		t.Errorf("HasCode missed %v", err)
	}
	if HasCode(err, CodeNoInitialStatus) || HasCode(errors.New("plain"), CodeInternal) {
		t.Error("HasCode matched the wrong code")
	}
}
