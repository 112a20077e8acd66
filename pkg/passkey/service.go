// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Service provides passkey registration and authentication ceremonies.
// Each ceremony step is a stateless unit of work; the only shared mutable
// state lives in the stores.
type Service struct {
	config     *Config
	creds      CredentialStore
	ledger     *ChallengeLedger
	resolver   *RPResolver
	verifier   Verifier
	minter     SessionMinter     // optional
	directory  IdentityDirectory // optional
	logger     *slog.Logger
	now        func() time.Time
	configured bool
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the subsystem configuration (required).
	Config *Config

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// ChallengeStore is the challenge persistence layer (required).
	ChallengeStore ChallengeStore

	// Verifier is the ceremony-verification library. If nil, the
	// go-webauthn-backed default is used.
	Verifier Verifier

	// SessionMinter mints sign-in tokens after successful authentication.
	// If nil, the service returns the base64-encoded user ID.
	SessionMinter SessionMinter

	// IdentityDirectory resolves login identifiers to user handles. If
	// nil, the identifier's bytes are used as the handle directly.
	IdentityDirectory IdentityDirectory
}

// NewService creates a new passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if params.ChallengeStore == nil {
		return nil, fmt.Errorf("challenge store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	verifier := params.Verifier
	if verifier == nil {
		verifier = NewVerifier(params.Config.RPDisplayName)
	}

	return &Service{
		config:     params.Config,
		creds:      params.CredentialStore,
		ledger:     NewChallengeLedger(params.ChallengeStore, params.Config.ChallengeTTL),
		resolver:   NewRPResolver(params.Config),
		verifier:   verifier,
		minter:     params.SessionMinter,
		directory:  params.IdentityDirectory,
		logger:     slog.Default(),
		now:        time.Now,
		configured: true,
	}, nil
}

// WithLogger sets a custom logger for the service.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// ListCredentials returns the user's credential summaries, most recently
// used first.
func (s *Service) ListCredentials(ctx context.Context, userID []byte) ([]*CredentialSummary, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if len(userID) == 0 {
		return nil, Wrap("list credentials", ErrInvalidRequest)
	}

	creds, err := s.listCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(creds, func(i, j int) bool {
		return creds[i].LastUsedAt.After(creds[j].LastUsedAt)
	})

	summaries := make([]*CredentialSummary, len(creds))
	for i, c := range creds {
		summaries[i] = c.Summary()
	}
	return summaries, nil
}

// DeleteCredential removes one of the user's credentials.
func (s *Service) DeleteCredential(ctx context.Context, userID, credentialID []byte) error {
	if !s.configured {
		return ErrNotConfigured
	}
	if len(userID) == 0 || len(credentialID) == 0 {
		return Wrap("delete credential", ErrInvalidRequest)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.creds.Delete(ctx, userID, credentialID); err != nil {
		return Wrap("delete credential", mapDeadline(err))
	}
	return nil
}

// listCredentials fetches the user's credentials under the store deadline.
func (s *Service) listCredentials(ctx context.Context, userID []byte) ([]*Credential, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	creds, err := s.creds.List(ctx, userID)
	if err != nil {
		return nil, Wrap("list credentials", mapDeadline(err))
	}
	return creds, nil
}

// storeCtx bounds a storage call with the configured deadline.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// mapDeadline converts a context deadline expiry into the subsystem's
// timeout error. Callers convert it to a 504-equivalent at the boundary.
func mapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreTimeout
	}
	return err
}

// consumeChallenge clears the user's pending challenge, logging rather than
// failing: by this point the ceremony outcome is already decided.
func (s *Service) consumeChallenge(ctx context.Context, userID []byte) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.ledger.Consume(cctx, userID); err != nil {
		s.logger.Error("failed to consume challenge", "error", err)
	}
}
