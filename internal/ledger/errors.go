package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/wire"
)

// StatusError is a non-2xx answer from the ledger store.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("ledger %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the error taxonomy. A rejected payload is a
// store failure first and carries ErrValidation as its cause.
func (e *StatusError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return []error{core.ErrAuth}
	case http.StatusNotFound:
		return []error{core.ErrNotFound}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return []error{core.ErrNetwork, core.ErrValidation}
	default:
		return []error{core.ErrNetwork}
	}
}

// parseError builds a StatusError from a failed response.
func parseError(op string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read error response"}
	}

	var errResp wire.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}
	msg := errResp.Error
	if errResp.ErrorDescription != "" {
		msg += " - " + errResp.ErrorDescription
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

// transportError classifies a failure that produced no response. Missing or
// expired credentials surface from the token source as ErrAuth.
func transportError(op string, err error) error {
	if errors.Is(err, core.ErrAuth) {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	return fmt.Errorf("ledger %s: %w: %w", op, core.ErrNetwork, err)
}
