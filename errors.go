// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes this layer distinguishes.
//
// Batch-shaped operations (ReadAll, Write) never surface these for a
// single item; they record the failure per item and keep going. The
// sentinels escape only from single-target calls (Connect, ReadNode on
// a disconnected client).
var (
	// ErrNotConnected is returned when an operation is invoked before
	// Connect succeeded or after Disconnect.
	ErrNotConnected = errors.New("not connected")

	// ErrNotFound is returned when a target object, path or variable is
	// absent from the address space.
	ErrNotFound = errors.New("node not found")

	// ErrEmptyPath is returned when a path contains no non-empty
	// segments after splitting.
	ErrEmptyPath = errors.New("empty path")

	// ErrConnectTimeout is returned when connection establishment
	// exceeds the configured deadline. Recoverable: the client can be
	// connected again.
	ErrConnectTimeout = errors.New("connect timeout")

	// ErrUnsupportedValue is returned when a nested record value is
	// written to a scalar field.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// ClientError is a structured error with operation context.
type ClientError struct {
	// Operation name that failed (connect, read, write, resolve)
	Operation string

	// Path is the dotted path or node name involved, if any
	Path string

	// Message is a human-readable description
	Message string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("opcua: %s failed for %q: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("opcua: %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As matching.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// ErrorModel records one per-item failure inside a batch result.
type ErrorModel struct {
	// Path is the requested path or node name the failure belongs to
	Path string

	// Message is the failure description
	Message string
}
