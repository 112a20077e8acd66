// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRPID   = "localhost"
	testOrigin = "http://localhost:5173"
	testLogin  = "15551234567"
)

type ceremonyFixture struct {
	svc        *Service
	creds      *MemoryCredentialStore
	challenges *MemoryChallengeStore
	auth       *MockAuthenticator
}

// newCeremonyFixture wires a service with the real go-webauthn verifier and
// a mock authenticator holding a real P-256 key.
func newCeremonyFixture(t *testing.T) *ceremonyFixture {
	t.Helper()

	creds := NewMemoryCredentialStore()
	challenges := NewMemoryChallengeStore()

	svc, err := NewService(ServiceParams{
		Config: &Config{
			RPDisplayName:  "DishDiff",
			RPID:           testRPID,
			AllowedOrigins: []string{testOrigin},
		},
		CredentialStore: creds,
		ChallengeStore:  challenges,
	})
	require.NoError(t, err)

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	return &ceremonyFixture{
		svc:        svc,
		creds:      creds,
		challenges: challenges,
		auth:       auth,
	}
}

// register runs the full registration ceremony for testLogin.
func (f *ceremonyFixture) register(t *testing.T) *CredentialSummary {
	t.Helper()
	ctx := context.Background()
	userID := []byte(testLogin)

	options, err := f.svc.BeginRegistration(ctx, userID, "Alice", "")
	require.NoError(t, err)
	require.NotEmpty(t, options.Response.Challenge)

	response, err := f.auth.Attest(options.Response.Challenge, userID, testOrigin)
	require.NoError(t, err)

	summary, err := f.svc.FinishRegistration(ctx, userID, "", response, CredentialMeta{Label: "iPhone"})
	require.NoError(t, err)
	return summary
}

// login runs the full authentication ceremony for testLogin.
func (f *ceremonyFixture) login(t *testing.T) (string, error) {
	t.Helper()
	ctx := context.Background()

	options, err := f.svc.BeginAuthentication(ctx, testLogin, "")
	require.NoError(t, err)

	response, err := f.auth.Assert(options.Response.Challenge, []byte(testLogin), testOrigin)
	require.NoError(t, err)

	return f.svc.FinishAuthentication(ctx, testLogin, "", response)
}

func TestRegistrationCeremony(t *testing.T) {
	f := newCeremonyFixture(t)

	summary := f.register(t)
	assert.Equal(t, "iPhone", summary.Label)
	assert.False(t, summary.CreatedAt.IsZero())

	// The new credential starts at the authenticator's counter.
	cred, err := f.creds.Get(context.Background(), []byte(testLogin), f.auth.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cred.Counter)
	assert.NotEmpty(t, cred.PublicKey)

	// The registration challenge was consumed.
	assert.Zero(t, f.challenges.Count())
}

func TestRegistrationRejectsWrongOrigin(t *testing.T) {
	f := newCeremonyFixture(t)
	ctx := context.Background()
	userID := []byte(testLogin)

	options, err := f.svc.BeginRegistration(ctx, userID, "Alice", "")
	require.NoError(t, err)

	response, err := f.auth.Attest(options.Response.Challenge, userID, "https://evil.example")
	require.NoError(t, err)

	_, err = f.svc.FinishRegistration(ctx, userID, "", response, CredentialMeta{})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Zero(t, f.creds.Count())
}

func TestRegistrationRejectsWrongChallenge(t *testing.T) {
	f := newCeremonyFixture(t)
	ctx := context.Background()
	userID := []byte(testLogin)

	_, err := f.svc.BeginRegistration(ctx, userID, "Alice", "")
	require.NoError(t, err)

	// Sign a challenge the server never issued.
	forged := make([]byte, 32)
	response, err := f.auth.Attest(forged, userID, testOrigin)
	require.NoError(t, err)

	_, err = f.svc.FinishRegistration(ctx, userID, "", response, CredentialMeta{})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestAuthenticationCeremony(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)

	token, err := f.login(t)
	require.NoError(t, err)

	// No minter configured, so the token is the encoded user handle.
	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte(testLogin)), token)

	cred, err := f.creds.Get(context.Background(), []byte(testLogin), f.auth.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cred.Counter)
	assert.False(t, cred.LastUsedAt.IsZero())
	assert.Zero(t, f.challenges.Count())
}

func TestAuthenticationCounterAdvancesAcrossLogins(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)

	for i := 1; i <= 3; i++ {
		_, err := f.login(t)
		require.NoError(t, err)

		cred, err := f.creds.Get(context.Background(), []byte(testLogin), f.auth.CredentialID)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), cred.Counter)
	}
}

func TestAuthenticationReplayRejected(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)
	ctx := context.Background()

	options, err := f.svc.BeginAuthentication(ctx, testLogin, "")
	require.NoError(t, err)

	response, err := f.auth.Assert(options.Response.Challenge, []byte(testLogin), testOrigin)
	require.NoError(t, err)

	_, err = f.svc.FinishAuthentication(ctx, testLogin, "", response)
	require.NoError(t, err)

	// Replaying the same signed assertion finds no pending challenge.
	_, err = f.svc.FinishAuthentication(ctx, testLogin, "", response)
	require.Error(t, err)
	assert.True(t, IsChallengeError(err))
}

func TestAuthenticationClonedAuthenticatorRejected(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)

	_, err := f.login(t)
	require.NoError(t, err)

	// A clone restored from backup reports a counter the server has
	// already seen.
	f.auth.SignCount = 0

	_, err = f.login(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClonedAuthenticator)
	assert.True(t, IsRejection(err))
}

func TestAuthenticationExpiredChallenge(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)
	ctx := context.Background()

	options, err := f.svc.BeginAuthentication(ctx, testLogin, "")
	require.NoError(t, err)

	response, err := f.auth.Assert(options.Response.Challenge, []byte(testLogin), testOrigin)
	require.NoError(t, err)

	// Shift the ledger clock past the TTL before Finish arrives.
	f.svc.ledger.now = func() time.Time {
		return time.Now().Add(5*time.Minute + time.Second)
	}

	_, err = f.svc.FinishAuthentication(ctx, testLogin, "", response)
	assert.ErrorIs(t, err, ErrChallengeExpired)
	assert.Zero(t, f.challenges.Count())
}

func TestBeginOverwritesPendingChallenge(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)
	ctx := context.Background()

	first, err := f.svc.BeginAuthentication(ctx, testLogin, "")
	require.NoError(t, err)

	second, err := f.svc.BeginAuthentication(ctx, testLogin, "")
	require.NoError(t, err)
	require.NotEqual(t, first.Response.Challenge, second.Response.Challenge)
	assert.Equal(t, 1, f.challenges.Count())

	// The assertion signed over the superseded challenge is rejected.
	response, err := f.auth.Assert(first.Response.Challenge, []byte(testLogin), testOrigin)
	require.NoError(t, err)

	_, err = f.svc.FinishAuthentication(ctx, testLogin, "", response)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestRegistrationExcludesExistingCredentials(t *testing.T) {
	f := newCeremonyFixture(t)
	f.register(t)
	ctx := context.Background()

	options, err := f.svc.BeginRegistration(ctx, []byte(testLogin), "Alice", "")
	require.NoError(t, err)

	require.Len(t, options.Response.CredentialExcludeList, 1)
	assert.Equal(t, f.auth.CredentialID, []byte(options.Response.CredentialExcludeList[0].CredentialID))
}
