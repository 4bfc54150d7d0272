package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessable       = errors.New("unprocessable entity")
	ErrInternalServerError = errors.New("internal server error")
	ErrUnavailable         = errors.New("service unavailable")
	ErrTimeout             = errors.New("request timeout: the server did not answer in time")
)

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	return &Error{
		StatusCode: resp.StatusCode(),
		Message:    errorMessage(resp),
		kind:       errorKind(resp.StatusCode()),
	}
}

// errorMessage prefers the "detail" member of a JSON body, then "message", then the status line.
func errorMessage(resp *resty.Response) string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		switch detail := body.Detail.(type) {
		case string:
			if detail != "" {
				return detail
			}
		case nil:
		default:
			// Validation errors carry a structured detail.
			if bts, err := json.Marshal(detail); err == nil {
				return string(bts)
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}

	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(http.StatusText(resp.StatusCode())))
}

func errorKind(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		if status >= http.StatusInternalServerError {
			return ErrInternalServerError
		}
		return nil
	}
}
