// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"

	"github.com/go-webauthn/webauthn/protocol"
)

// CredentialStore is the durable per-user collection of registered
// authenticators. Implementations must be safe for concurrent use; the
// ceremonies rely on the store's own read-then-write atomicity, not on
// in-process locks.
type CredentialStore interface {
	// List returns all credentials for a user, in any order.
	// Returns an empty slice, not an error, when the user has none.
	List(ctx context.Context, userID []byte) ([]*Credential, error)

	// Get retrieves one credential by its ID under a user.
	// Returns ErrCredentialNotFound if it does not exist.
	Get(ctx context.Context, userID, credentialID []byte) (*Credential, error)

	// Upsert creates or replaces a credential keyed by (UserID, ID).
	// CreatedAt is preserved from the existing record on replace.
	Upsert(ctx context.Context, cred *Credential) error

	// Delete removes a credential by its ID under a user.
	// Returns ErrCredentialNotFound if it does not exist.
	Delete(ctx context.Context, userID, credentialID []byte) error
}

// ChallengeStore persists the single pending challenge per user. The
// ChallengeLedger provides the issue/peek/consume semantics on top.
type ChallengeStore interface {
	// Put stores the challenge for a user, replacing any existing one.
	Put(ctx context.Context, userID []byte, ch *Challenge) error

	// Get returns the pending challenge for a user.
	// Returns ErrChallengeNotFound if none is pending.
	Get(ctx context.Context, userID []byte) (*Challenge, error)

	// Delete clears the pending challenge. Deleting a missing challenge
	// is not an error.
	Delete(ctx context.Context, userID []byte) error
}

// IdentityDirectory resolves a login identifier (for dishdiff, the phone
// number) to the opaque user handle credentials and challenges are
// namespaced under. Implementations live outside this subsystem.
type IdentityDirectory interface {
	// Resolve returns the user handle for a login identifier.
	// Returns ErrUserNotFound if the identifier is unknown.
	Resolve(ctx context.Context, login string) ([]byte, error)
}

// SessionMinter is the session bridge: it mints an opaque, short-lived
// sign-in token for a verified user identity. Called once per successful
// authentication ceremony; never by registration.
type SessionMinter interface {
	Mint(ctx context.Context, userID []byte, claims map[string]any) (string, error)
}

// Expected carries the server-side expectations a signed response is
// verified against.
type Expected struct {
	// Challenge is the base64url challenge value issued by the ledger.
	Challenge string

	// Origins is the set of acceptable client origins.
	Origins []string

	// RPID is the relying party identifier for this request.
	RPID string

	// UserID is the opaque user handle the ceremony runs under.
	UserID []byte
}

// RegistrationResult is what the verification library hands back for a
// verified attestation.
type RegistrationResult struct {
	CredentialID []byte
	PublicKey    []byte
	Counter      uint32
	DeviceType   string
	BackedUp     bool
	Transports   []string
}

// AuthenticationResult is what the verification library hands back for a
// verified assertion.
type AuthenticationResult struct {
	// NewCounter is the signature counter the authenticator reported.
	// The ceremony decides trust from it; it is not merely recorded.
	NewCounter uint32

	// CloneWarning is the library's own counter regression signal.
	CloneWarning bool
}

// Verifier is the vetted ceremony-verification library behind a capability
// interface: it accepts a signed response plus the expected challenge,
// origins, and RP ID, and returns a verified result or an error. Swapping
// the underlying library does not change the ceremony logic.
type Verifier interface {
	VerifyRegistration(ctx context.Context, response *protocol.ParsedCredentialCreationData, expected Expected) (*RegistrationResult, error)

	VerifyAuthentication(ctx context.Context, response *protocol.ParsedCredentialAssertionData, expected Expected, stored *Credential) (*AuthenticationResult, error)
}
