// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"encoding/base64"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// CeremonyType identifies which ceremony a challenge was issued for.
type CeremonyType string

const (
	// CeremonyRegistration is the attestation (credential creation) ceremony.
	CeremonyRegistration CeremonyType = "registration"

	// CeremonyAuthentication is the assertion (login) ceremony.
	CeremonyAuthentication CeremonyType = "authentication"
)

// Valid reports whether t is a known ceremony type.
func (t CeremonyType) Valid() bool {
	return t == CeremonyRegistration || t == CeremonyAuthentication
}

// Credential is one registered authenticator, owned by exactly one user.
// Created by the registration ceremony; Counter and LastUsedAt are mutated
// only by the authentication ceremony.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator,
	// globally unique per RP. Primary key under the user's collection.
	ID []byte `json:"id"`

	// UserID is the opaque identity handle this credential belongs to.
	UserID []byte `json:"user_id"`

	// PublicKey is the credential's public key in COSE format. Stored as
	// an opaque blob and only ever handed to the verification library.
	PublicKey []byte `json:"public_key"`

	// Counter is the authenticator's last-known signature counter.
	// Monotonic non-decreasing; used for clone detection.
	Counter uint32 `json:"counter"`

	// DeviceType indicates platform vs. cross-platform attachment.
	DeviceType string `json:"device_type,omitempty"`

	// BackedUp indicates the credential is synced (multi-device).
	BackedUp bool `json:"backed_up"`

	// Transports are hint strings ("internal", "usb", ...) used only to
	// scope the allow-list for future ceremonies.
	Transports []string `json:"transports,omitempty"`

	// Label is a user-facing name for the authenticator.
	Label string `json:"label,omitempty"`

	// UserAgent is the client user agent captured at registration.
	UserAgent string `json:"user_agent,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Descriptor returns the credential descriptor used in allow/exclude lists.
func (c *Credential) Descriptor() protocol.CredentialDescriptor {
	transports := make([]protocol.AuthenticatorTransport, len(c.Transports))
	for i, t := range c.Transports {
		transports[i] = protocol.AuthenticatorTransport(t)
	}
	return protocol.CredentialDescriptor{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: c.ID,
		Transport:    transports,
	}
}

// ToWebAuthn converts the stored credential to the verification library's
// credential type.
func (c *Credential) ToWebAuthn() webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, len(c.Transports))
	for i, t := range c.Transports {
		transports[i] = protocol.AuthenticatorTransport(t)
	}
	return webauthn.Credential{
		ID:        c.ID,
		PublicKey: c.PublicKey,
		Transport: transports,
		Authenticator: webauthn.Authenticator{
			SignCount: c.Counter,
		},
	}
}

// Summary returns the display/audit view of the credential. The raw public
// key never leaves the subsystem.
func (c *Credential) Summary() *CredentialSummary {
	return &CredentialSummary{
		ID:         base64.RawURLEncoding.EncodeToString(c.ID),
		Label:      c.Label,
		DeviceType: c.DeviceType,
		BackedUp:   c.BackedUp,
		Transports: c.Transports,
		UserAgent:  c.UserAgent,
		CreatedAt:  c.CreatedAt,
		LastUsedAt: c.LastUsedAt,
	}
}

// CredentialSummary is the client-facing projection of a credential.
type CredentialSummary struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	BackedUp   bool      `json:"backed_up"`
	Transports []string  `json:"transports,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Challenge is a short-lived, single-use ceremony challenge. At most one is
// active per user; issuing a new one overwrites it.
type Challenge struct {
	// Value is the crypto-random challenge, base64url-encoded.
	Value string `json:"value"`

	// Type is the ceremony the challenge was issued for.
	Type CeremonyType `json:"type"`

	// IssuedAt is when the challenge was written.
	IssuedAt time.Time `json:"issued_at"`
}

// CredentialMeta carries display/audit metadata captured when a credential
// is registered.
type CredentialMeta struct {
	Label     string
	UserAgent string
}

// ceremonyUser adapts an opaque user handle and its stored credentials to
// the verification library's user model.
type ceremonyUser struct {
	id          []byte
	name        string
	credentials []*Credential
}

func (u *ceremonyUser) WebAuthnID() []byte          { return u.id }
func (u *ceremonyUser) WebAuthnName() string        { return u.name }
func (u *ceremonyUser) WebAuthnDisplayName() string { return u.name }
func (u *ceremonyUser) WebAuthnIcon() string        { return "" }

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.credentials))
	for i, c := range u.credentials {
		creds[i] = c.ToWebAuthn()
	}
	return creds
}
