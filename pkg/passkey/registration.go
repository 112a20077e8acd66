// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// BeginRegistration starts the registration ceremony for an already
// authenticated user. It issues a registration challenge and returns the
// credential creation options, with the user's existing credentials as the
// exclude list so an authenticator cannot be registered twice.
func (s *Service) BeginRegistration(ctx context.Context, userID []byte, name, host string) (*protocol.CredentialCreation, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if len(userID) == 0 || name == "" {
		return nil, Wrap("begin registration", ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.BeginTimeout)
	defer cancel()

	existing, err := s.listCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	exclude := make([]protocol.CredentialDescriptor, len(existing))
	for i, cred := range existing {
		exclude[i] = cred.Descriptor()
	}

	value, err := s.issueChallenge(ctx, userID, CeremonyRegistration)
	if err != nil {
		return nil, err
	}

	rp, err := newRelyingParty(s.config.RPDisplayName, s.resolver.RPID(host), s.resolver.Origins(host))
	if err != nil {
		return nil, Wrap("begin registration", err)
	}

	user := &ceremonyUser{id: userID, name: name, credentials: existing}
	options, _, err := rp.BeginRegistration(user, webauthn.WithExclusions(exclude))
	if err != nil {
		return nil, Wrap("begin registration", err)
	}

	// The ledger's challenge is authoritative, not the library session's.
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, Wrap("begin registration", err)
	}
	options.Response.Challenge = protocol.URLEncodedBase64(raw)

	return options, nil
}

// FinishRegistration verifies a signed attestation response and persists
// the new credential. It never mints a session token: registration only
// confirms a credential now exists for the already-authenticated caller.
// The pending challenge is consumed whatever the outcome.
func (s *Service) FinishRegistration(ctx context.Context, userID []byte, host string, response *protocol.ParsedCredentialCreationData, meta CredentialMeta) (*CredentialSummary, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if len(userID) == 0 || response == nil {
		return nil, Wrap("finish registration", ErrInvalidRequest)
	}

	ch, err := s.pendingChallenge(ctx, userID, CeremonyRegistration)
	if err != nil {
		return nil, Wrap("finish registration", err)
	}

	expected := Expected{
		Challenge: ch.Value,
		Origins:   s.resolver.Origins(host),
		RPID:      s.resolver.RPID(host),
		UserID:    userID,
	}

	vctx, cancel := context.WithTimeout(ctx, s.config.VerifyTimeout)
	result, err := s.verifier.VerifyRegistration(vctx, response, expected)
	cancel()
	if err != nil {
		s.logger.Debug("registration attestation rejected", "error", err)
		s.consumeChallenge(ctx, userID)
		return nil, Wrap("finish registration", ErrVerificationFailed)
	}

	now := s.now().UTC()
	cred := &Credential{
		ID:         result.CredentialID,
		UserID:     userID,
		PublicKey:  result.PublicKey,
		Counter:    result.Counter,
		DeviceType: result.DeviceType,
		BackedUp:   result.BackedUp,
		Transports: result.Transports,
		Label:      meta.Label,
		UserAgent:  meta.UserAgent,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	sctx, cancel := s.storeCtx(ctx)
	err = s.creds.Upsert(sctx, cred)
	cancel()
	if err != nil {
		s.consumeChallenge(ctx, userID)
		return nil, Wrap("store credential", mapDeadline(err))
	}

	s.consumeChallenge(ctx, userID)
	return cred.Summary(), nil
}

// issueChallenge writes a fresh challenge under the store deadline.
func (s *Service) issueChallenge(ctx context.Context, userID []byte, ceremony CeremonyType) (string, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	value, err := s.ledger.Issue(sctx, userID, ceremony)
	if err != nil {
		return "", mapDeadline(err)
	}
	return value, nil
}

// pendingChallenge fetches the user's pending challenge and checks it was
// issued for the given ceremony and is still fresh. A stale or mismatched
// challenge is consumed immediately so it cannot be retried.
func (s *Service) pendingChallenge(ctx context.Context, userID []byte, ceremony CeremonyType) (*Challenge, error) {
	sctx, cancel := s.storeCtx(ctx)
	ch, err := s.ledger.Peek(sctx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, mapDeadline(err)
	}

	if ch.Type != ceremony {
		s.consumeChallenge(ctx, userID)
		return nil, ErrChallengeMismatch
	}
	if !s.ledger.IsFresh(ch.IssuedAt) {
		s.consumeChallenge(ctx, userID)
		return nil, ErrChallengeExpired
	}
	return ch, nil
}
