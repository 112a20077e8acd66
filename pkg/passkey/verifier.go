// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// libraryVerifier implements Verifier on top of go-webauthn/webauthn.
// The library instance is rebuilt per call because the RP ID and origin set
// depend on the inbound request host.
type libraryVerifier struct {
	rpDisplayName string
}

// NewVerifier returns the default go-webauthn-backed Verifier.
func NewVerifier(rpDisplayName string) Verifier {
	return &libraryVerifier{rpDisplayName: rpDisplayName}
}

// newRelyingParty builds a library instance scoped to the resolved RP ID
// and origin set.
func newRelyingParty(displayName, rpID string, origins []string) (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: displayName,
		RPOrigins:     origins,
	})
}

// VerifyRegistration checks a signed attestation response against the
// expected challenge, origins, and RP ID, and returns the new credential's
// material. The error carries the library's reason and is mapped to a
// generic rejection by the ceremony.
func (v *libraryVerifier) VerifyRegistration(ctx context.Context, response *protocol.ParsedCredentialCreationData, expected Expected) (*RegistrationResult, error) {
	rp, err := newRelyingParty(v.rpDisplayName, expected.RPID, expected.Origins)
	if err != nil {
		return nil, Wrap("configure relying party", err)
	}

	// CreateCredential only accepts algorithms listed in the session's
	// CredParams; an empty list rejects every attestation.
	user := &ceremonyUser{id: expected.UserID}
	session := webauthn.SessionData{
		Challenge:  expected.Challenge,
		UserID:     expected.UserID,
		CredParams: webauthn.CredentialParametersDefault(),
	}

	cred, err := rp.CreateCredential(user, session, response)
	if err != nil {
		return nil, err
	}

	transports := make([]string, len(cred.Transport))
	for i, t := range cred.Transport {
		transports[i] = string(t)
	}

	return &RegistrationResult{
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		Counter:      cred.Authenticator.SignCount,
		DeviceType:   string(cred.Authenticator.Attachment),
		BackedUp:     cred.Flags.BackupState,
		Transports:   transports,
	}, nil
}

// VerifyAuthentication checks a signed assertion response against the
// expected challenge, origins, RP ID, and the stored credential, and
// returns the counter the authenticator reported.
func (v *libraryVerifier) VerifyAuthentication(ctx context.Context, response *protocol.ParsedCredentialAssertionData, expected Expected, stored *Credential) (*AuthenticationResult, error) {
	rp, err := newRelyingParty(v.rpDisplayName, expected.RPID, expected.Origins)
	if err != nil {
		return nil, Wrap("configure relying party", err)
	}

	user := &ceremonyUser{
		id:          expected.UserID,
		credentials: []*Credential{stored},
	}
	session := webauthn.SessionData{
		Challenge:            expected.Challenge,
		UserID:               expected.UserID,
		AllowedCredentialIDs: [][]byte{stored.ID},
	}

	cred, err := rp.ValidateLogin(user, session, response)
	if err != nil {
		return nil, err
	}

	return &AuthenticationResult{
		NewCounter:   cred.Authenticator.SignCount,
		CloneWarning: cred.Authenticator.CloneWarning,
	}, nil
}
