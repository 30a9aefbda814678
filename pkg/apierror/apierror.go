package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap keeps the original error reachable through errors.Is/As while the
// client only ever sees the code/message/details triple.
func Wrap(err error, code string, message string, status int) *APIError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status, cause: err}
}

func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

func BadRequest(message string) *APIError {
	return New("BAD_REQUEST", message, "", http.StatusBadRequest)
}
