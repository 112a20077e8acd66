// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates a platform authenticator for tests. It holds
// a real P-256 key and produces attestation and assertion responses that
// pass the verification library's checks, so ceremony tests exercise the
// same code path as a browser client.
type MockAuthenticator struct {
	// AAGUID is the authenticator model identifier (16 bytes).
	AAGUID []byte

	// CredentialID identifies the credential this authenticator holds.
	CredentialID []byte

	// SignCount is the current signature counter. It increments on every
	// assertion; set it directly to simulate a cloned authenticator.
	SignCount uint32

	// UserPresent and UserVerified control the UP/UV flags.
	UserPresent  bool
	UserVerified bool

	privateKey *ecdsa.PrivateKey
	rpIDHash   []byte
}

// MockAuthenticatorOption configures a MockAuthenticator.
type MockAuthenticatorOption func(*MockAuthenticator)

// WithCredentialID sets a fixed credential ID.
func WithCredentialID(credID []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = credID
	}
}

// WithSignCount sets the initial sign count.
func WithSignCount(count uint32) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// NewMockAuthenticator creates a mock authenticator scoped to the given RP ID.
func NewMockAuthenticator(rpID string, opts ...MockAuthenticatorOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		CredentialID: credID,
		SignCount:    0,
		UserPresent:  true,
		UserVerified: true,
		privateKey:   privateKey,
		rpIDHash:     rpIDHash[:],
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PublicKeyBytes returns the credential public key in COSE format.
func (m *MockAuthenticator) PublicKeyBytes() ([]byte, error) {
	pubKey := m.privateKey.Public().(*ecdsa.PublicKey)

	coseKey := map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg: ES256
		-1: 1,                          // crv: P-256
		-2: pubKey.X.Bytes(),
		-3: pubKey.Y.Bytes(),
	}
	return webauthncbor.Marshal(coseKey)
}

// Attest produces a parsed registration (attestation) response for the
// given challenge bytes and origin, using "none" attestation.
func (m *MockAuthenticator) Attest(challenge, userID []byte, origin string) (*protocol.ParsedCredentialCreationData, error) {
	authData, err := m.authenticatorData(true)
	if err != nil {
		return nil, err
	}
	clientDataJSON := m.clientData(challenge, origin, "webauthn.create")

	attestationObject := map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	}
	attestationObjectBytes, err := webauthncbor.Marshal(attestationObject)
	if err != nil {
		return nil, err
	}

	pubKeyBytes, err := m.PublicKeyBytes()
	if err != nil {
		return nil, err
	}

	parsedAuthData := protocol.AuthenticatorData{
		RPIDHash: m.rpIDHash,
		Flags:    m.flags(true),
		Counter:  m.SignCount,
		AttData: protocol.AttestedCredentialData{
			AAGUID:              m.AAGUID,
			CredentialID:        m.CredentialID,
			CredentialPublicKey: pubKeyBytes,
		},
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)

	return &protocol.ParsedCredentialCreationData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAttestationResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.create",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AttestationObject: protocol.AttestationObject{
				Format:       "none",
				AttStatement: map[string]interface{}{},
				AuthData:     parsedAuthData,
			},
			Transports: []protocol.AuthenticatorTransport{protocol.Internal},
		},
		Raw: protocol.CredentialCreationResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AttestationResponse: protocol.AuthenticatorAttestationResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AttestationObject: attestationObjectBytes,
				Transports:        []string{"internal"},
			},
		},
	}, nil
}

// Assert produces a parsed authentication (assertion) response for the
// given challenge bytes and origin. The sign count increments first, as a
// real authenticator would.
func (m *MockAuthenticator) Assert(challenge, userHandle []byte, origin string) (*protocol.ParsedCredentialAssertionData, error) {
	m.SignCount++

	authData, err := m.authenticatorData(false)
	if err != nil {
		return nil, err
	}

	clientDataJSON := m.clientData(challenge, origin, "webauthn.get")
	clientDataHash := sha256.Sum256(clientDataJSON)

	signedData := append(authData, clientDataHash[:]...)
	signature, err := m.sign(signedData)
	if err != nil {
		return nil, err
	}

	parsedAuthData := protocol.AuthenticatorData{
		RPIDHash: m.rpIDHash,
		Flags:    m.flags(false),
		Counter:  m.SignCount,
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)

	return &protocol.ParsedCredentialAssertionData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAssertionResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.get",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AuthenticatorData: parsedAuthData,
			Signature:         signature,
			UserHandle:        userHandle,
		},
		Raw: protocol.CredentialAssertionResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AssertionResponse: protocol.AuthenticatorAssertionResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AuthenticatorData: authData,
				Signature:         signature,
				UserHandle:        userHandle,
			},
		},
	}, nil
}

func (m *MockAuthenticator) flags(attested bool) protocol.AuthenticatorFlags {
	var flags byte
	if m.UserPresent {
		flags |= 0x01 // UP
	}
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	if attested {
		flags |= 0x40 // AT
	}
	return protocol.AuthenticatorFlags(flags)
}

// authenticatorData builds the raw authenticator data: rpIdHash, flags,
// signCount, and (for registration) the attested credential data.
func (m *MockAuthenticator) authenticatorData(attested bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(m.rpIDHash)
	buf.WriteByte(byte(m.flags(attested)))

	signCount := make([]byte, 4)
	binary.BigEndian.PutUint32(signCount, m.SignCount)
	buf.Write(signCount)

	if attested {
		buf.Write(m.AAGUID)

		credIDLen := make([]byte, 2)
		binary.BigEndian.PutUint16(credIDLen, uint16(len(m.CredentialID)))
		buf.Write(credIDLen)
		buf.Write(m.CredentialID)

		pubKeyBytes, err := m.PublicKeyBytes()
		if err != nil {
			return nil, err
		}
		buf.Write(pubKeyBytes)
	}

	return buf.Bytes(), nil
}

func (m *MockAuthenticator) clientData(challenge []byte, origin, ceremony string) []byte {
	clientData := struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		Origin    string `json:"origin"`
	}{
		Type:      ceremony,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	}
	jsonBytes, _ := json.Marshal(clientData)
	return jsonBytes
}

// sign produces an ASN.1 DER ECDSA signature over data, as WebAuthn requires.
func (m *MockAuthenticator) sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, m.privateKey, hash[:])
	if err != nil {
		return nil, err
	}
	return derSignature(r, s)
}

func derSignature(r, s *big.Int) ([]byte, error) {
	rBytes := r.Bytes()
	sBytes := s.Bytes()

	// Prepend a zero byte when the high bit is set so the INTEGER stays
	// positive.
	if len(rBytes) > 0 && rBytes[0] >= 0x80 {
		rBytes = append([]byte{0x00}, rBytes...)
	}
	if len(sBytes) > 0 && sBytes[0] >= 0x80 {
		sBytes = append([]byte{0x00}, sBytes...)
	}

	rLen := len(rBytes)
	sLen := len(sBytes)
	seqLen := 2 + rLen + 2 + sLen

	sig := make([]byte, 0, 2+seqLen)
	sig = append(sig, 0x30)         // SEQUENCE
	sig = append(sig, byte(seqLen)) // length
	sig = append(sig, 0x02)         // INTEGER (r)
	sig = append(sig, byte(rLen))
	sig = append(sig, rBytes...)
	sig = append(sig, 0x02) // INTEGER (s)
	sig = append(sig, byte(sLen))
	sig = append(sig, sBytes...)

	return sig, nil
}
