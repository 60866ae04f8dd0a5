// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrMalformedDocument indicates that a serialized packet does not
	// follow the BIP174 layout: missing magic bytes or separator, a missing
	// map, or a truncated length-prefixed field.
	ErrMalformedDocument ErrorCode = iota

	// ErrDuplicateKey indicates that the same key appeared twice within a
	// single key-value map.
	ErrDuplicateKey

	// ErrMissingTransaction indicates that the global map lacked the
	// unsigned transaction entry.
	ErrMissingTransaction

	// ErrInvalidVersion indicates that the global version field was not a
	// 4-byte integer or carried a version this package does not handle.
	ErrInvalidVersion

	// ErrStructuralViolation indicates that a packet invariant does not
	// hold, e.g. mismatched entry counts or a signed skeleton transaction.
	ErrStructuralViolation

	// ErrSemanticViolation indicates that the UTXO and script metadata of
	// an input are inconsistent with each other or with the skeleton.
	ErrSemanticViolation

	// ErrMismatchedTransaction indicates that packets handed to the
	// combiner do not describe the same unsigned transaction.
	ErrMismatchedTransaction

	// ErrMissingSignatures indicates that an input has no partial
	// signatures to finalize.
	ErrMissingSignatures

	// ErrConflictingFinalData indicates that two packets being combined
	// carry different final scriptSig or witness data for the same input.
	ErrConflictingFinalData
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMalformedDocument:     "ErrMalformedDocument",
	ErrDuplicateKey:          "ErrDuplicateKey",
	ErrMissingTransaction:    "ErrMissingTransaction",
	ErrInvalidVersion:        "ErrInvalidVersion",
	ErrStructuralViolation:   "ErrStructuralViolation",
	ErrSemanticViolation:     "ErrSemanticViolation",
	ErrMismatchedTransaction: "ErrMismatchedTransaction",
	ErrMissingSignatures:     "ErrMissingSignatures",
	ErrConflictingFinalData:  "ErrConflictingFinalData",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen while decoding,
// validating or transforming a packet.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, optional
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error carrying the same code, so callers
// can match on kind with errors.Is(err, psbt.Error{ErrorCode: code}).
func (e Error) Is(target error) bool {
	var other Error
	if !errors.As(target, &other) {
		return false
	}
	return other.ErrorCode == e.ErrorCode
}

// psbtError creates an Error given a set of arguments.
func psbtError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// psbtErrorf creates an Error with a formatted description and no
// underlying error.
func psbtErrorf(c ErrorCode, format string, args ...interface{}) Error {
	return Error{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}

// IsError returns whether err, or any error it wraps, is an Error with a
// matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.ErrorCode == code
}
