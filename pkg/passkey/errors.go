// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for passkey operations.
var (
	// ErrInvalidRequest is returned when a request is missing or has
	// malformed fields. The caller must fix the request; retrying the
	// same request will not succeed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUserNotFound is returned when a user cannot be resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("passkey not registered")

	// ErrNoCredentials is returned when a user has no registered credentials.
	// Begin does not issue a challenge in this case.
	ErrNoCredentials = errors.New("user has no registered passkeys")

	// ErrChallengeNotFound is returned when no challenge is pending for
	// the user. The ceremony must be restarted from Begin.
	ErrChallengeNotFound = errors.New("no pending challenge")

	// ErrChallengeExpired is returned when the pending challenge is older
	// than the configured TTL, or has a negative age due to clock skew.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeMismatch is returned when the pending challenge was
	// issued for the other ceremony type.
	ErrChallengeMismatch = errors.New("challenge ceremony type mismatch")

	// ErrVerificationFailed is returned when the signed response fails
	// verification (signature, origin, RP ID, or malformed response).
	// The message is intentionally generic.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrClonedAuthenticator is returned when the reported signature
	// counter did not advance past the stored counter.
	ErrClonedAuthenticator = errors.New("possible cloned authenticator")

	// ErrStoreTimeout is returned when a storage call exceeded its
	// deadline. The whole ceremony is safe to retry.
	ErrStoreTimeout = errors.New("store timeout")

	// ErrNotConfigured is returned when the service is not properly configured.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Wrap wraps an error with an operation name if it's not nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsChallengeError returns true if the error means the pending challenge
// was missing, expired, or issued for the other ceremony type. The caller
// must restart the ceremony from Begin.
func IsChallengeError(err error) bool {
	return errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrChallengeMismatch)
}

// IsRejection returns true if the error is an authentication rejection
// rather than a system fault. Rejections map to a generic client-facing
// failure that does not reveal which sub-check failed.
func IsRejection(err error) bool {
	return errors.Is(err, ErrVerificationFailed) ||
		errors.Is(err, ErrClonedAuthenticator)
}

// IsTimeout returns true if the error indicates an external call exceeded
// its budget. The client may retry the whole ceremony.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrStoreTimeout)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
