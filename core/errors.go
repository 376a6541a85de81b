package core

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	// ErrBusy is returned when a load is requested while another one is still running.
	ErrBusy = errors.New("a load is already in progress")

	errProxyURLRequired = errors.New("please enter a valid proxy URL when using proxy mode")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports that no user or group matched a lookup.
type NotFoundError struct {
	Kind  string // "user" | "group"
	Query string
}

func NewNotFoundError(kind, query string) error {
	return &NotFoundError{Kind: kind, Query: query}
}

func (err NotFoundError) Error() string {
	switch err.Kind {
	case "user":
		return fmt.Sprintf("User with email %q not found", err.Query)
	case "group":
		return fmt.Sprintf("Group containing %q not found", err.Query)
	}
	return fmt.Sprintf("%s %q not found", err.Kind, err.Query)
}

// HTTPError carries status/body for non-2xx upstream responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (err HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d - %s", err.StatusCode, http.StatusText(err.StatusCode))
}

// Snippet returns the response body, trimmed to at most max bytes.
func (err HTTPError) Snippet(max int) string {
	return Snippet(err.Body, max)
}

// TransportError wraps network failures and undecodable responses.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func (err TransportError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err TransportError) Unwrap() error { return err.Err }

// ShapeError reports a JSON payload that is not the array/object we expected.
type ShapeError struct {
	Want string
	Got  string
}

func (err ShapeError) Error() string {
	return fmt.Sprintf("Invalid response format: expected %s, got %s", err.Want, err.Got)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// IsNotFound reports whether err (or its cause) is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Snippet trims s to at most max bytes, without splitting a rune.
func Snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
