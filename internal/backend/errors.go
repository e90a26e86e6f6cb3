package backend

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "restate/internal/shared/errors"
)

// Error is the error document the backend returns with 4xx/5xx responses.
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *Error) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusBadRequest:
		return apperrors.ErrBadRequest
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	}
	if e.Code >= http.StatusInternalServerError {
		return apperrors.ErrInternalServer
	}
	return nil
}

func decodeError(status int, raw []byte) *Error {
	apiErr := &Error{}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Code == 0 {
		apiErr.Code = status
	}
	return apiErr
}
