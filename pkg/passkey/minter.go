// Copyright (c) 2026 DishDiff, Inc.
//
// This file is part of the dishdiff backend.
// SPDX-License-Identifier: Apache-2.0

package passkey

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTMinter is the default SessionMinter: it mints short-lived signed JWTs
// for verified users. Production deployments can substitute any session
// bridge by implementing SessionMinter.
type JWTMinter struct {
	privateKey crypto.PrivateKey
	method     jwt.SigningMethod
	issuer     string
	audience   []string
	expiresIn  time.Duration
	keyID      string
	now        func() time.Time
}

// JWTMinterConfig contains configuration for the JWT minter.
type JWTMinterConfig struct {
	// PrivateKey signs tokens (required). ECDSA P-256, Ed25519, and RSA
	// keys are supported.
	PrivateKey crypto.PrivateKey

	// Issuer is the JWT issuer claim (default: "dishdiff").
	Issuer string

	// Audience is the JWT audience claim (default: ["dishdiff"]).
	Audience []string

	// ExpiresIn is how long tokens are valid (default: 1 hour).
	ExpiresIn time.Duration

	// KeyID is the key identifier for the kid header (optional).
	KeyID string
}

// NewJWTMinter creates a new JWT minter with the given configuration.
func NewJWTMinter(config *JWTMinterConfig) (*JWTMinter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	var method jwt.SigningMethod
	switch config.PrivateKey.(type) {
	case *ecdsa.PrivateKey:
		method = jwt.SigningMethodES256
	case ed25519.PrivateKey:
		method = jwt.SigningMethodEdDSA
	case *rsa.PrivateKey:
		method = jwt.SigningMethodRS256
	default:
		return nil, fmt.Errorf("unsupported private key type %T", config.PrivateKey)
	}

	issuer := config.Issuer
	if issuer == "" {
		issuer = "dishdiff"
	}

	audience := config.Audience
	if len(audience) == 0 {
		audience = []string{"dishdiff"}
	}

	expiresIn := config.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	return &JWTMinter{
		privateKey: config.PrivateKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		expiresIn:  expiresIn,
		keyID:      config.KeyID,
		now:        time.Now,
	}, nil
}

// Mint creates a signed JWT for the verified user. Extra claims from the
// ceremony are merged in without overriding the registered claims.
func (m *JWTMinter) Mint(ctx context.Context, userID []byte, claims map[string]any) (string, error) {
	now := m.now()

	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["iss"] = m.issuer
	mapClaims["aud"] = m.audience
	mapClaims["sub"] = base64.RawURLEncoding.EncodeToString(userID)
	mapClaims["iat"] = now.Unix()
	mapClaims["nbf"] = now.Unix()
	mapClaims["exp"] = now.Add(m.expiresIn).Unix()
	mapClaims["jti"] = uuid.NewString()

	token := jwt.NewWithClaims(m.method, mapClaims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}

	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", Wrap("sign session token", err)
	}
	return signed, nil
}

// Issuer returns the configured issuer.
func (m *JWTMinter) Issuer() string {
	return m.issuer
}

// ExpiresIn returns the token lifetime.
func (m *JWTMinter) ExpiresIn() time.Duration {
	return m.expiresIn
}
