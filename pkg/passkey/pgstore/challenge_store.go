// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dishdiff/dishdiff/pkg/passkey"
)

// ChallengeStore is the PostgreSQL-backed passkey.ChallengeStore. One row
// per user; issuing a new challenge overwrites the pending one.
type ChallengeStore struct {
	db *sql.DB
}

// NewChallengeStore returns a challenge store that uses the given db.
func NewChallengeStore(db *sql.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

// Put stores the challenge for a user, replacing any existing one.
func (s *ChallengeStore) Put(ctx context.Context, userID []byte, ch *passkey.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passkey_challenges (user_id, value, ceremony, issued_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			value     = EXCLUDED.value,
			ceremony  = EXCLUDED.ceremony,
			issued_at = EXCLUDED.issued_at`,
		userID, ch.Value, string(ch.Type), ch.IssuedAt)
	return err
}

// Get returns the pending challenge for a user.
func (s *ChallengeStore) Get(ctx context.Context, userID []byte) (*passkey.Challenge, error) {
	var (
		ch       passkey.Challenge
		ceremony string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, ceremony, issued_at
		FROM passkey_challenges
		WHERE user_id = $1`, userID).Scan(&ch.Value, &ceremony, &ch.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrChallengeNotFound
		}
		return nil, err
	}
	ch.Type = passkey.CeremonyType(ceremony)
	return &ch, nil
}

// Delete clears the pending challenge. Deleting a missing challenge is not
// an error.
func (s *ChallengeStore) Delete(ctx context.Context, userID []byte) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM passkey_challenges
		WHERE user_id = $1`, userID)
	return err
}
