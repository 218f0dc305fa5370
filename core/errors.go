package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AlertErrorBadInput           = "ALERT_BAD_INPUT"
	AlertErrorUnauthorized       = "ALERT_UNAUTHORIZED"
	AlertErrorPersistenceFailed  = "ALERT_PERSISTENCE_FAILED"
	AlertErrorNotificationFailed = "ALERT_NOTIFICATION_FAILED"
	AlertErrorQueryFailed        = "ALERT_QUERY_FAILED"
	AlertErrorInternal           = "ALERT_INTERNAL_ERROR"
)

func BadInputError(source error, message string) *goerrors.Error {
	return wrapAlertError(source, goerrors.CategoryBadInput, message, AlertErrorBadInput)
}

func UnauthorizedError(source error, message string) *goerrors.Error {
	return wrapAlertError(source, goerrors.CategoryAuth, message, AlertErrorUnauthorized)
}

func PersistenceError(source error, message string) *goerrors.Error {
	return wrapAlertError(source, goerrors.CategoryOperation, message, AlertErrorPersistenceFailed).
		WithCode(http.StatusInternalServerError)
}

func NotificationError(source error, message string) *goerrors.Error {
	return wrapAlertError(source, goerrors.CategoryExternal, message, AlertErrorNotificationFailed).
		WithCode(http.StatusBadGateway)
}

func QueryError(source error, message string) *goerrors.Error {
	return wrapAlertError(source, goerrors.CategoryOperation, message, AlertErrorQueryFailed).
		WithCode(http.StatusInternalServerError)
}

// ConfigurationError reports a missing or unusable collaborator.
func ConfigurationError(message string, metadata map[string]any) *goerrors.Error {
	err := newAlertError(message, goerrors.CategoryInternal, AlertErrorInternal)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// InvalidFieldError is a validation envelope naming the rejected field.
func InvalidFieldError(scope string, field string, message string) *goerrors.Error {
	err := goerrors.NewValidation(scope+": validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	})
	return ensureAlertErrorEnvelope(err.WithTextCode(AlertErrorBadInput).WithSeverity(goerrors.SeverityError))
}

// MapError converts any error into an envelope with an HTTP code and a text
// code. Envelopes pass through with missing fields filled in.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAlertErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "secret mismatch"), strings.Contains(msg, "verification"):
		return newAlertError(err.Error(), goerrors.CategoryAuth, AlertErrorUnauthorized)
	case strings.Contains(msg, "invalid json"), strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newAlertError(err.Error(), goerrors.CategoryBadInput, AlertErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAlertErrorEnvelope(mapped)
}

func wrapAlertError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
) *goerrors.Error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	return ensureAlertErrorEnvelope(err.WithTextCode(textCode))
}

func newAlertError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAlertErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAlertErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = alertHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAlertTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAlertTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AlertErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AlertErrorUnauthorized
	default:
		return AlertErrorInternal
	}
}

func alertHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
