// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"encoding/hex"
	"sync"
)

// MemoryCredentialStore is an in-memory implementation of CredentialStore.
// This is intended for development and testing only.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Credential
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byUser: make(map[string]map[string]*Credential),
	}
}

// List returns all credentials for a user, in map order.
func (s *MemoryCredentialStore) List(ctx context.Context, userID []byte) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := s.byUser[hex.EncodeToString(userID)]
	result := make([]*Credential, 0, len(creds))
	for _, c := range creds {
		clone := *c
		result = append(result, &clone)
	}
	return result, nil
}

// Get retrieves a credential by its ID under a user.
func (s *MemoryCredentialStore) Get(ctx context.Context, userID, credentialID []byte) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byUser[hex.EncodeToString(userID)][hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	clone := *cred
	return &clone, nil
}

// Upsert creates or replaces a credential keyed by (UserID, ID), preserving
// CreatedAt from an existing record.
func (s *MemoryCredentialStore) Upsert(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := hex.EncodeToString(cred.UserID)
	credKey := hex.EncodeToString(cred.ID)

	creds, ok := s.byUser[userKey]
	if !ok {
		creds = make(map[string]*Credential)
		s.byUser[userKey] = creds
	}

	clone := *cred
	if existing, ok := creds[credKey]; ok && !existing.CreatedAt.IsZero() {
		clone.CreatedAt = existing.CreatedAt
	}
	creds[credKey] = &clone

	return nil
}

// Delete removes a credential by its ID under a user.
func (s *MemoryCredentialStore) Delete(ctx context.Context, userID, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := hex.EncodeToString(userID)
	credKey := hex.EncodeToString(credentialID)

	if _, ok := s.byUser[userKey][credKey]; !ok {
		return ErrCredentialNotFound
	}
	delete(s.byUser[userKey], credKey)
	if len(s.byUser[userKey]) == 0 {
		delete(s.byUser, userKey)
	}
	return nil
}

// Count returns the total number of credentials in the store.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, creds := range s.byUser {
		n += len(creds)
	}
	return n
}

// Clear removes all credentials from the store.
func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[string]map[string]*Credential)
}

// MemoryChallengeStore is an in-memory implementation of ChallengeStore.
// This is intended for development and testing only.
type MemoryChallengeStore struct {
	mu     sync.RWMutex
	byUser map[string]*Challenge
}

// NewMemoryChallengeStore creates a new in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		byUser: make(map[string]*Challenge),
	}
}

// Put stores the challenge for a user, replacing any existing one.
func (s *MemoryChallengeStore) Put(ctx context.Context, userID []byte, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *ch
	s.byUser[hex.EncodeToString(userID)] = &clone
	return nil
}

// Get returns the pending challenge for a user.
func (s *MemoryChallengeStore) Get(ctx context.Context, userID []byte) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.byUser[hex.EncodeToString(userID)]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	clone := *ch
	return &clone, nil
}

// Delete clears the pending challenge. Deleting a missing challenge is not
// an error.
func (s *MemoryChallengeStore) Delete(ctx context.Context, userID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byUser, hex.EncodeToString(userID))
	return nil
}

// Count returns the number of pending challenges in the store.
func (s *MemoryChallengeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}

// Clear removes all challenges from the store.
func (s *MemoryChallengeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser = make(map[string]*Challenge)
}
