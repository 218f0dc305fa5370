package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestMapError_AssignsStableCodes(t *testing.T) {
	mapped := MapError(ErrSecretMismatch)
	if mapped.TextCode != AlertErrorUnauthorized {
		t.Fatalf("expected unauthorized text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", mapped.Code)
	}

	mapped = MapError(ErrInvalidPayload)
	if mapped.TextCode != AlertErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", mapped.Code)
	}

	mapped = MapError(stderrors.New("something odd"))
	if mapped.Code == 0 || mapped.TextCode == "" {
		t.Fatalf("expected envelope defaults, got %#v", mapped)
	}

	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestMapError_PassesEnvelopesThrough(t *testing.T) {
	source := PersistenceError(stderrors.New("disk full"), "core: persist alert record failed")
	mapped := MapError(source)
	if mapped.TextCode != AlertErrorPersistenceFailed {
		t.Fatalf("expected persistence code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryOperation {
		t.Fatalf("expected operation category, got %q", mapped.Category)
	}
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", mapped.Code)
	}
}

func TestErrorConstructors(t *testing.T) {
	cases := []struct {
		err      *goerrors.Error
		textCode string
		code     int
	}{
		{BadInputError(nil, "bad"), AlertErrorBadInput, http.StatusBadRequest},
		{UnauthorizedError(nil, "nope"), AlertErrorUnauthorized, http.StatusUnauthorized},
		{NotificationError(stderrors.New("smtp"), "mail"), AlertErrorNotificationFailed, http.StatusBadGateway},
		{QueryError(stderrors.New("sql"), "query"), AlertErrorQueryFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if tc.err.TextCode != tc.textCode {
			t.Fatalf("expected text code %q, got %q", tc.textCode, tc.err.TextCode)
		}
		if tc.err.Code != tc.code {
			t.Fatalf("expected code %d for %q, got %d", tc.code, tc.textCode, tc.err.Code)
		}
	}
}

func TestConfigurationAndFieldErrors(t *testing.T) {
	missing := ConfigurationError("store is required", map[string]any{"component": "store"})
	if missing.TextCode != AlertErrorInternal || missing.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected configuration envelope: %q %d", missing.TextCode, missing.Code)
	}
	if missing.Metadata["component"] != "store" {
		t.Fatalf("expected metadata to be attached, got %#v", missing.Metadata)
	}

	invalid := InvalidFieldError("query", "limit", "limit must be >= 0")
	if invalid.TextCode != AlertErrorBadInput || invalid.Code != http.StatusBadRequest {
		t.Fatalf("unexpected validation envelope: %q %d", invalid.TextCode, invalid.Code)
	}
	if len(invalid.ValidationErrors) != 1 || invalid.ValidationErrors[0].Field != "limit" {
		t.Fatalf("expected limit field error, got %#v", invalid.ValidationErrors)
	}
}
