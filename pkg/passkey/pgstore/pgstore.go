// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

// Package pgstore provides the PostgreSQL-backed credential and challenge
// stores used in production. Both stores rely on ON CONFLICT upserts so the
// ceremonies never need an in-process lock around read-then-write.
package pgstore

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Schema creates the passkey tables. Idempotent; run it at startup or ship
// it through the regular migration pipeline.
const Schema = `
CREATE TABLE IF NOT EXISTS passkey_credentials (
    user_id       BYTEA       NOT NULL,
    credential_id BYTEA       NOT NULL,
    public_key    BYTEA       NOT NULL,
    counter       BIGINT      NOT NULL DEFAULT 0,
    device_type   TEXT        NOT NULL DEFAULT '',
    backed_up     BOOLEAN     NOT NULL DEFAULT FALSE,
    transports    TEXT        NOT NULL DEFAULT '',
    label         TEXT        NOT NULL DEFAULT '',
    user_agent    TEXT        NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    last_used_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, credential_id)
);

CREATE TABLE IF NOT EXISTS passkey_challenges (
    user_id   BYTEA       PRIMARY KEY,
    value     TEXT        NOT NULL,
    ceremony  TEXT        NOT NULL,
    issued_at TIMESTAMPTZ NOT NULL
);
`

// Open opens a Postgres connection using the given DSN. Caller must call
// Close when done.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the passkey schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
