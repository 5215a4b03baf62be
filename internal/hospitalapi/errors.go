package hospitalapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Code is a stable classification of a failed hospital API call.
type Code string

const (
	CodeTransport         Code = "TRANSPORT"
	CodeTimeout           Code = "TIMEOUT"
	CodeMalformed         Code = "MALFORMED_RESPONSE"
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidIdentifier Code = "INVALID_IDENTIFIER"
	CodeServer            Code = "SERVER_ERROR"
)

// upstreamCodes maps codes the backend may put in its error body onto ours.
// 22P02 is the Postgres invalid_text_representation state the backend leaks
// when an identifier has the wrong type.
var upstreamCodes = map[string]Code{
	"INVALID_IDENTIFIER": CodeInvalidIdentifier,
	"INVALID_ID":         CodeInvalidIdentifier,
	"22P02":              CodeInvalidIdentifier,
	"NOT_FOUND":          CodeNotFound,
	"CONFLICT":           CodeConflict,
	"BAD_REQUEST":        CodeBadRequest,
	"VALIDATION_ERROR":   CodeBadRequest,
}

// Error is returned by every Client method that fails.
type Error struct {
	Op      string
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(string(e.Code))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the call never produced a usable answer:
// transport failures, timeouts and malformed payloads.
func (e *Error) Unreachable() bool {
	switch e.Code {
	case CodeTransport, CodeTimeout, CodeMalformed:
		return true
	}
	return false
}

// CodeOf returns the code carried by err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsUnreachable reports whether err is a transport-level failure.
func IsUnreachable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Unreachable()
	}
	return false
}

// UserMessage is the text shown in an error notice: the server's message
// when it sent one, a generic string otherwise.
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	switch {
	case apiErr.Code == CodeInvalidIdentifier:
		return "The hospital system rejected the patient identifier. Please reselect the patient and retry."
	case apiErr.Message != "":
		return apiErr.Message
	case apiErr.Unreachable():
		return "The hospital system could not be reached. Please retry."
	default:
		return "The hospital system returned an error. Please retry."
	}
}

func transportError(op string, err error) *Error {
	code := CodeTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = CodeTimeout
	}
	return &Error{Op: op, Code: code, Err: err}
}

func statusError(op string, status int, body errorBody) *Error {
	code := codeForStatus(status)
	if mapped, ok := upstreamCodes[strings.ToUpper(strings.TrimSpace(body.Code))]; ok {
		code = mapped
	}
	return &Error{
		Op:      op,
		Code:    code,
		Status:  status,
		Message: body.message(),
	}
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return CodeTimeout
	default:
		return CodeServer
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (b errorBody) message() string {
	for _, s := range []string{b.Message, b.Error, b.Details} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
