/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"perkle/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are carried by both token types. Refresh tokens also set ID (jti).
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (m *TokenManager) sign(claims Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("unable to sign %s token: %w", claims.Type, err)
	}
	return token, nil
}

// IssueAccess returns an access token for userId.
func (m *TokenManager) IssueAccess(userId string, now time.Time) (string, error) {
	return m.sign(Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	})
}

// IssueRefresh returns a refresh token with a fresh jti and its expiry.
func (m *TokenManager) IssueRefresh(userId string, now time.Time) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	expiresAt = now.Add(m.refreshTTL)
	token, err = m.sign(Claims{
		Type: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token, jti, expiresAt, err
}

// Parse verifies signature, expiry and token type.
func (m *TokenManager) Parse(token, wantType string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", store.ErrAuthInvalid)
		}
		return nil, fmt.Errorf("%w: %v", store.ErrAuthInvalid, err)
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: invalid token type", store.ErrAuthInvalid)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", store.ErrAuthInvalid)
	}
	if wantType == TokenTypeRefresh && claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh token has no id", store.ErrAuthInvalid)
	}
	return claims, nil
}

// HashTokenID is the stored form of a refresh token jti.
func HashTokenID(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])
}
