// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

// Package passkey implements WebAuthn passkey registration and
// authentication for dishdiff accounts.
//
// The package runs the two ceremony flows end to end: Begin issues a
// single-use, short-lived challenge and returns the browser-facing
// options; Finish verifies the signed response against the expected
// challenge, origin set, and Relying Party ID, then persists or updates
// the credential. Authentication additionally enforces the signature
// counter invariant (a counter that fails to advance past a non-zero
// stored value is treated as a possible clone) and mints a session token
// through the configured SessionMinter.
//
// Persistence is abstracted behind CredentialStore and ChallengeStore.
// In-memory implementations are provided for development and tests; the
// pgstore subpackage provides the PostgreSQL-backed production pair.
//
// Basic usage:
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//		Config: &passkey.Config{
//			RPDisplayName: "DishDiff",
//			FallbackRPID:  "dishdiff.app",
//		},
//		CredentialStore: passkey.NewMemoryCredentialStore(),
//		ChallengeStore:  passkey.NewMemoryChallengeStore(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	options, err := svc.BeginAuthentication(ctx, login, r.Host)
package passkey
