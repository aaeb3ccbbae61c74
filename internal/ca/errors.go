// Package ca implements the local certificate authority: store layout,
// root CA initialization, leaf issuance and chain verification.
package ca

import (
	"errors"
	"fmt"
)

// CAError represents a CA operation error with structured context.
// It supports errors.Is() and errors.As() for improved error handling.
type CAError struct {
	Op     string // Operation: "init", "issue", "load", "verify", "export"
	Serial string // Certificate serial number (if applicable)
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *CAError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("ca %s [%s]: %v", e.Op, e.Serial, e.Err)
	}
	return fmt.Sprintf("ca %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CAError) Unwrap() error { return e.Err }

// NewCAError creates a new CAError with the given operation and error.
func NewCAError(op string, err error) *CAError {
	return &CAError{Op: op, Err: err}
}

// NewCAErrorWithSerial creates a new CAError with operation, serial, and error.
func NewCAErrorWithSerial(op, serial string, err error) *CAError {
	return &CAError{Op: op, Serial: serial, Err: err}
}

// Sentinel errors for CA operations.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrInvalidConfig indicates a bad key size, DN or validity setting.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrKeyGeneration indicates key generation failed (entropy/backend).
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrMalformedRequest indicates the certificate request failed its
	// own signature self-check.
	ErrMalformedRequest = errors.New("malformed certificate request")

	// ErrSigning indicates the CA could not sign the certificate.
	ErrSigning = errors.New("signing failed")

	// ErrChainVerification indicates the issued certificate does not
	// verify against its issuing CA. This indicates a bug if raised.
	ErrChainVerification = errors.New("certificate chain verification failed")

	// ErrPersistence indicates an I/O failure writing CA artifacts.
	ErrPersistence = errors.New("persistence failed")

	// ErrAlreadyExists indicates an output would overwrite existing state.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMissingCA indicates the CA key, certificate or serial state is absent.
	ErrMissingCA = errors.New("CA not found")

	// ErrKeyMismatch indicates the private key does not match the certificate.
	ErrKeyMismatch = errors.New("key does not match certificate")
)
