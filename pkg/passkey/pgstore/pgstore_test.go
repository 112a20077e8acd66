// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishdiff/dishdiff/pkg/passkey"
)

// testDB opens the database named by PASSKEY_TEST_DSN, skipping the test
// when it is unset so the suite stays runnable without Postgres.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("PASSKEY_TEST_DSN")
	if dsn == "" {
		t.Skip("PASSKEY_TEST_DSN not set")
	}

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	store := NewCredentialStore(db)
	ctx := context.Background()

	userID := []byte("pgstore-test-user")
	credID := []byte("pgstore-test-cred")
	t.Cleanup(func() { _ = store.Delete(ctx, userID, credID) })

	created := time.Now().UTC().Truncate(time.Microsecond)
	cred := &passkey.Credential{
		ID:         credID,
		UserID:     userID,
		PublicKey:  []byte("cose-key"),
		Counter:    0,
		DeviceType: "platform",
		BackedUp:   true,
		Transports: []string{"internal", "hybrid"},
		Label:      "iPhone",
		UserAgent:  "Mozilla/5.0",
		CreatedAt:  created,
		LastUsedAt: created,
	}
	require.NoError(t, store.Upsert(ctx, cred))

	got, err := store.Get(ctx, userID, credID)
	require.NoError(t, err)
	assert.Equal(t, cred.PublicKey, got.PublicKey)
	assert.Equal(t, []string{"internal", "hybrid"}, got.Transports)
	assert.Equal(t, "iPhone", got.Label)
	assert.True(t, created.Equal(got.CreatedAt))

	// A counter update must not move created_at.
	cred.Counter = 9
	cred.CreatedAt = created.Add(time.Hour)
	cred.LastUsedAt = created.Add(time.Hour)
	require.NoError(t, store.Upsert(ctx, cred))

	got, err = store.Get(ctx, userID, credID)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.Counter)
	assert.True(t, created.Equal(got.CreatedAt))

	list, err := store.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, userID, credID))
	_, err = store.Get(ctx, userID, credID)
	assert.ErrorIs(t, err, passkey.ErrCredentialNotFound)
	assert.ErrorIs(t, store.Delete(ctx, userID, credID), passkey.ErrCredentialNotFound)
}

func TestChallengeStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	store := NewChallengeStore(db)
	ctx := context.Background()

	userID := []byte("pgstore-test-user")
	t.Cleanup(func() { _ = store.Delete(ctx, userID) })

	_, err := store.Get(ctx, userID)
	assert.ErrorIs(t, err, passkey.ErrChallengeNotFound)

	issued := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Put(ctx, userID, &passkey.Challenge{
		Value:    "first",
		Type:     passkey.CeremonyRegistration,
		IssuedAt: issued,
	}))

	// Put replaces the pending challenge in place.
	require.NoError(t, store.Put(ctx, userID, &passkey.Challenge{
		Value:    "second",
		Type:     passkey.CeremonyAuthentication,
		IssuedAt: issued,
	}))

	ch, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "second", ch.Value)
	assert.Equal(t, passkey.CeremonyAuthentication, ch.Type)
	assert.True(t, issued.Equal(ch.IssuedAt))

	require.NoError(t, store.Delete(ctx, userID))
	_, err = store.Get(ctx, userID)
	assert.ErrorIs(t, err, passkey.ErrChallengeNotFound)

	// Deleting a missing challenge is not an error.
	assert.NoError(t, store.Delete(ctx, userID))
}
