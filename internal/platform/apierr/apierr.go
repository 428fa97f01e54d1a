package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a client-facing failure: the status and code are safe to return,
// Err is the cause and is only logged.
type Error struct {
	Status  int
	Code    string
	Err     error
	// Message is the user-facing text. When empty, 4xx errors show Err and 5xx a generic text.
	Message string
	// Details are extra top-level fields merged into the error response body.
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// WithDetails returns a copy of e carrying extra response fields.
func (e *Error) WithDetails(kv map[string]any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(kv))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range kv {
		cp.Details[k] = v
	}
	return &cp
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func Forbidden(code string, err error) *Error {
	return New(http.StatusForbidden, code, err)
}

func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// WithMessage returns a copy of e with a user-facing message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// PublicMessage is the text safe to return to the client.
func (e *Error) PublicMessage() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Status >= http.StatusInternalServerError || e.Err == nil:
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// StatusOf returns the status carried by err, or 500 for anything else.
func StatusOf(err error) int {
	if ae, ok := As(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
