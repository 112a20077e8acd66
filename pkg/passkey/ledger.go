// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// challengeBytes is the random length before base64url encoding.
const challengeBytes = 32

// ChallengeLedger issues and consumes the single pending ceremony challenge
// per user. A challenge is read once and then cleared; it is never accepted
// past its TTL regardless of correctness.
type ChallengeLedger struct {
	store ChallengeStore
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeLedger creates a ledger over the given store with the given TTL.
func NewChallengeLedger(store ChallengeStore, ttl time.Duration) *ChallengeLedger {
	return &ChallengeLedger{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a fresh random challenge value for the user, overwriting
// any pending challenge regardless of its type, and returns the value to
// embed in the ceremony options.
func (l *ChallengeLedger) Issue(ctx context.Context, userID []byte, ceremony CeremonyType) (string, error) {
	if !ceremony.Valid() {
		return "", Wrap("issue challenge", ErrInvalidRequest)
	}

	raw := make([]byte, challengeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", Wrap("issue challenge", err)
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	ch := &Challenge{
		Value:    value,
		Type:     ceremony,
		IssuedAt: l.now().UTC(),
	}
	if err := l.store.Put(ctx, userID, ch); err != nil {
		return "", Wrap("store challenge", err)
	}
	return value, nil
}

// Peek returns the pending challenge without clearing it.
func (l *ChallengeLedger) Peek(ctx context.Context, userID []byte) (*Challenge, error) {
	ch, err := l.store.Get(ctx, userID)
	if err != nil {
		return nil, Wrap("peek challenge", err)
	}
	return ch, nil
}

// Consume clears the pending challenge unconditionally. It is called after
// every verification attempt, success or failure, so a challenge can never
// be replayed.
func (l *ChallengeLedger) Consume(ctx context.Context, userID []byte) error {
	if err := l.store.Delete(ctx, userID); err != nil {
		return Wrap("consume challenge", err)
	}
	return nil
}

// IsFresh reports whether a challenge issued at the given time is still
// acceptable: its age must be within [0, TTL]. A negative age (clock skew)
// is rejected, not silently accepted.
func (l *ChallengeLedger) IsFresh(issuedAt time.Time) bool {
	age := l.now().Sub(issuedAt)
	return age >= 0 && age <= l.ttl
}
