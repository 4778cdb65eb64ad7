// go-wiznet
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-wiznet.
//
// go-wiznet is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-wiznet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-wiznet; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package wiznet

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotSupported    = errors.New("operation not supported")
	ErrNoMediator      = errors.New("mediator not set")
)

// Transport errors
var (
	ErrTransportTimeout = errors.New("transport lock timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
)

// Protocol timeouts
var (
	ErrCommandTimeout = errors.New("socket command not accepted")
	ErrResetTimeout   = errors.New("chip reset did not complete")
	ErrInvalidVersion = errors.New("chip identity mismatch")
)

// Data path errors
var (
	ErrTxBufferFull     = errors.New("not enough free space in TX buffer")
	ErrTransmitFailed   = errors.New("transmit failed")
	ErrNoMem            = errors.New("no memory for receive buffer")
	ErrInvalidFrameSize = errors.New("invalid frame size")
	ErrFrameTruncated   = errors.New("received frame was truncated")
	ErrUnstableCounter  = errors.New("buffer counter did not settle")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that won't be resolved by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that might be resolved by retrying
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError carries the bus operation and port that failed
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a timeout error for op on port
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// newPollTimeout reports a bounded poll that expired on a chip register
func newPollTimeout(op, chip string, cause error) *TransportError {
	return NewTransportError(op, chip, cause, ErrorTypeTimeout)
}

// IsRetryable reports whether err is worth retrying by the caller.
// Nothing in this package retries on its own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrTxBufferFull),
		errors.Is(err, ErrTransmitFailed),
		errors.Is(err, ErrCommandTimeout),
		errors.Is(err, ErrUnstableCounter):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrCommandTimeout),
		errors.Is(err, ErrResetTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrTxBufferFull),
		errors.Is(err, ErrTransmitFailed),
		errors.Is(err, ErrUnstableCounter):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsTimeout reports whether err is any of the timeout conditions
func IsTimeout(err error) bool {
	return GetErrorType(err) == ErrorTypeTimeout
}
