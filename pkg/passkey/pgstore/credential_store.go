// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dishdiff/dishdiff/pkg/passkey"
)

// CredentialStore is the PostgreSQL-backed passkey.CredentialStore.
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore returns a credential store that uses the given db.
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

const credentialColumns = `credential_id, user_id, public_key, counter,
	device_type, backed_up, transports, label, user_agent, created_at, last_used_at`

// List returns all credentials for a user.
func (s *CredentialStore) List(ctx context.Context, userID []byte) ([]*passkey.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM passkey_credentials
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := make([]*passkey.Credential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// Get retrieves one credential by its ID under a user.
func (s *CredentialStore) Get(ctx context.Context, userID, credentialID []byte) (*passkey.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM passkey_credentials
		WHERE user_id = $1 AND credential_id = $2`, userID, credentialID)

	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

// Upsert creates or replaces a credential keyed by (user_id, credential_id).
// created_at is written once and never updated after.
func (s *CredentialStore) Upsert(ctx context.Context, cred *passkey.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passkey_credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, credential_id) DO UPDATE SET
			public_key   = EXCLUDED.public_key,
			counter      = EXCLUDED.counter,
			device_type  = EXCLUDED.device_type,
			backed_up    = EXCLUDED.backed_up,
			transports   = EXCLUDED.transports,
			label        = EXCLUDED.label,
			user_agent   = EXCLUDED.user_agent,
			last_used_at = EXCLUDED.last_used_at`,
		cred.ID, cred.UserID, cred.PublicKey, int64(cred.Counter),
		cred.DeviceType, cred.BackedUp, joinTransports(cred.Transports),
		cred.Label, cred.UserAgent, cred.CreatedAt, cred.LastUsedAt)
	return err
}

// Delete removes a credential by its ID under a user.
func (s *CredentialStore) Delete(ctx context.Context, userID, credentialID []byte) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM passkey_credentials
		WHERE user_id = $1 AND credential_id = $2`, userID, credentialID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return passkey.ErrCredentialNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*passkey.Credential, error) {
	var (
		cred       passkey.Credential
		counter    int64
		transports string
	)
	err := row.Scan(&cred.ID, &cred.UserID, &cred.PublicKey, &counter,
		&cred.DeviceType, &cred.BackedUp, &transports, &cred.Label,
		&cred.UserAgent, &cred.CreatedAt, &cred.LastUsedAt)
	if err != nil {
		return nil, err
	}
	cred.Counter = uint32(counter)
	cred.Transports = splitTransports(transports)
	return &cred, nil
}

// Transports are stored comma-joined: they are short, fixed-vocabulary hint
// strings that never contain commas.
func joinTransports(transports []string) string {
	return strings.Join(transports, ",")
}

func splitTransports(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
