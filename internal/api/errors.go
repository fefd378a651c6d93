// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// ErrorType categorizes client failures so callers can react without
// string matching.
type ErrorType string

const (
	// ErrorTypeAuth covers missing or rejected credentials (401/403).
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeNotFound covers unknown sessions or resources (404).
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeTimeout covers deadline and cancellation failures.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeConnection covers DNS, dial, and transport failures.
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeServer covers 5xx responses from the backend.
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeInvalid covers malformed requests rejected by the
	// backend (4xx other than auth and not-found).
	ErrorTypeInvalid ErrorType = "invalid"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrNotFound     = errors.New("resource not found")
	ErrTimeout      = errors.New("request timed out")
	ErrConnection   = errors.New("cannot reach backend")
	ErrEmptyBody    = errors.New("response body was empty")
)

// APIError is the error type returned by Client operations.
type APIError struct {
	Type ErrorType

	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Message is the backend-provided or derived description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is maps error types onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Type == ErrorTypeAuth
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnection:
		return e.Type == ErrorTypeConnection
	}
	return false
}

// IsAuthError reports whether err is a credential failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// statusError builds an APIError from a non-OK HTTP status and the
// message extracted from the response body.
func statusError(status int, message string) *APIError {
	e := &APIError{StatusCode: status, Message: message}
	switch {
	case status == 401 || status == 403:
		e.Type = ErrorTypeAuth
		if e.Message == "" {
			e.Message = "authentication failed"
		}
	case status == 404:
		e.Type = ErrorTypeNotFound
		if e.Message == "" {
			e.Message = "not found"
		}
	case status >= 500:
		e.Type = ErrorTypeServer
		if e.Message == "" {
			e.Message = fmt.Sprintf("backend error (HTTP %d)", status)
		}
	default:
		e.Type = ErrorTypeInvalid
		if e.Message == "" {
			e.Message = fmt.Sprintf("request rejected (HTTP %d)", status)
		}
	}
	return e
}
