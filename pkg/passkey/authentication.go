// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"encoding/base64"

	"github.com/go-webauthn/webauthn/protocol"
)

// BeginAuthentication starts the authentication ceremony for a login
// identifier. A user with no registered credentials fails with
// ErrNoCredentials before any challenge is written, so the caller gets no
// false "try again" signal.
func (s *Service) BeginAuthentication(ctx context.Context, login, host string) (*protocol.CredentialAssertion, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.BeginTimeout)
	defer cancel()

	userID, err := s.resolveUser(ctx, login)
	if err != nil {
		return nil, Wrap("begin authentication", err)
	}

	creds, err := s.listCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, Wrap("begin authentication", ErrNoCredentials)
	}

	value, err := s.issueChallenge(ctx, userID, CeremonyAuthentication)
	if err != nil {
		return nil, err
	}

	rp, err := newRelyingParty(s.config.RPDisplayName, s.resolver.RPID(host), s.resolver.Origins(host))
	if err != nil {
		return nil, Wrap("begin authentication", err)
	}

	user := &ceremonyUser{id: userID, name: login, credentials: creds}
	options, _, err := rp.BeginLogin(user)
	if err != nil {
		return nil, Wrap("begin authentication", err)
	}

	// The ledger's challenge is authoritative, not the library session's.
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, Wrap("begin authentication", err)
	}
	options.Response.Challenge = protocol.URLEncodedBase64(raw)

	return options, nil
}

// FinishAuthentication verifies a signed assertion response, enforces the
// signature-counter invariant, updates the matched credential, and mints a
// session token for the verified user. The pending challenge is consumed
// whatever the outcome, so a failed attempt can never be retried against
// the same challenge value.
func (s *Service) FinishAuthentication(ctx context.Context, login, host string, response *protocol.ParsedCredentialAssertionData) (string, error) {
	if !s.configured {
		return "", ErrNotConfigured
	}
	if response == nil {
		return "", Wrap("finish authentication", ErrInvalidRequest)
	}

	userID, err := s.resolveUser(ctx, login)
	if err != nil {
		return "", Wrap("finish authentication", err)
	}

	ch, err := s.pendingChallenge(ctx, userID, CeremonyAuthentication)
	if err != nil {
		return "", Wrap("finish authentication", err)
	}

	sctx, cancel := s.storeCtx(ctx)
	cred, err := s.creds.Get(sctx, userID, response.RawID)
	cancel()
	if err != nil {
		s.consumeChallenge(ctx, userID)
		return "", Wrap("finish authentication", mapDeadline(err))
	}

	expected := Expected{
		Challenge: ch.Value,
		Origins:   s.resolver.Origins(host),
		RPID:      s.resolver.RPID(host),
		UserID:    userID,
	}

	vctx, cancel := context.WithTimeout(ctx, s.config.VerifyTimeout)
	result, err := s.verifier.VerifyAuthentication(vctx, response, expected, cred)
	cancel()
	if err != nil {
		s.logger.Debug("authentication assertion rejected", "error", err)
		s.consumeChallenge(ctx, userID)
		return "", Wrap("finish authentication", ErrVerificationFailed)
	}

	// The reported counter decides trust, it is not merely recorded: a
	// counter that fails to advance past a non-zero stored value means the
	// credential may have been cloned, even though the signature verified.
	if result.CloneWarning || (cred.Counter > 0 && result.NewCounter <= cred.Counter) {
		s.logger.Warn("signature counter did not advance",
			"stored", cred.Counter, "reported", result.NewCounter)
		s.consumeChallenge(ctx, userID)
		return "", Wrap("finish authentication", ErrClonedAuthenticator)
	}

	cred.Counter = result.NewCounter
	cred.LastUsedAt = s.now().UTC()

	sctx, cancel = s.storeCtx(ctx)
	err = s.creds.Upsert(sctx, cred)
	cancel()
	if err != nil {
		s.consumeChallenge(ctx, userID)
		return "", Wrap("update credential", mapDeadline(err))
	}

	s.consumeChallenge(ctx, userID)

	token, err := s.mintToken(ctx, userID, login)
	if err != nil {
		return "", Wrap("mint session token", err)
	}
	return token, nil
}

// resolveUser maps a login identifier to the opaque user handle via the
// identity directory. Without a directory the identifier's bytes are used
// directly, which keeps the library usable in tests and single-tenant
// embeddings.
func (s *Service) resolveUser(ctx context.Context, login string) ([]byte, error) {
	if login == "" {
		return nil, ErrInvalidRequest
	}
	if s.directory == nil {
		return []byte(login), nil
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	userID, err := s.directory.Resolve(sctx, login)
	if err != nil {
		return nil, mapDeadline(err)
	}
	return userID, nil
}

// mintToken requests a session token from the session bridge, falling back
// to the base64-encoded user ID when no minter is configured.
func (s *Service) mintToken(ctx context.Context, userID []byte, login string) (string, error) {
	if s.minter == nil {
		return base64.RawURLEncoding.EncodeToString(userID), nil
	}
	return s.minter.Mint(ctx, userID, map[string]any{
		"method": "passkey",
		"login":  login,
	})
}
