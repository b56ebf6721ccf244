// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package apierr defines the error taxonomy surfaced across the
// session store, repository builder, and smart HTTP protocol layers,
// and the HTTP status each kind renders as.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names one of the error categories a request handler must
// distinguish when rendering a failure body.
type Kind string

const (
	InvalidInput        Kind = "invalid-input"
	InvalidSession      Kind = "invalid-session"
	UnknownRepo         Kind = "unknown-repo"
	SessionWaitTimeout  Kind = "session-wait-timeout"
	UpstreamFetchFailed Kind = "upstream-fetch-failed"
	MalformedGitRequest Kind = "malformed-git-request"
	PktLineOverflow     Kind = "pkt-line-overflow"
	SidebandOverflow    Kind = "sideband-overflow"
	UnknownObject       Kind = "unknown-object"
)

// Error is a typed error carrying a Kind and a human-readable detail.
// Request handlers switch on Kind (via As) to pick the status code and
// error body; nothing downstream of the build pipeline recovers from
// one of these, it only ever propagates to the outer handler.
type Error struct {
	Kind    Kind
	Detail  string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// New builds an *Error of the given kind with a formatted detail.
func New(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, a...), wrapped: err}
}

// As reports whether err (or something it wraps) is an *Error, returning
// it.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// HTTPStatus maps a Kind to the status code from the error handling
// design: unknown-object never reaches a client directly, it escalates
// to the generic 400 a malformed-git-request gets.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidInput:
		return http.StatusBadRequest
	case InvalidSession:
		return http.StatusBadRequest
	case UnknownRepo:
		return http.StatusNotFound
	case SessionWaitTimeout:
		return http.StatusBadRequest
	case UpstreamFetchFailed:
		return http.StatusBadRequest
	case MalformedGitRequest:
		return http.StatusBadRequest
	case PktLineOverflow:
		return http.StatusBadRequest
	case SidebandOverflow:
		return http.StatusBadRequest
	case UnknownObject:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Body is the wire shape of an error response: {"error", "details"}.
type Body struct {
	Error   Kind   `json:"error"`
	Details string `json:"details"`
}

// AsBody renders err into the {error, details} response shape and the
// status code that should accompany it. Errors that are not *Error
// render as an opaque internal error with a 500.
func AsBody(err error) (int, Body) {
	if ae, ok := As(err); ok {
		return ae.Kind.HTTPStatus(), Body{Error: ae.Kind, Details: ae.Detail}
	}
	return http.StatusInternalServerError, Body{Error: "internal", Details: err.Error()}
}
