// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// JWTValidatorConfig configures a JWTValidator.
type JWTValidatorConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string

	// RefreshInterval bounds how often the JWKS is re-fetched. Default 15m.
	RefreshInterval time.Duration

	// WorkspaceClaim names the claim holding the workspace id.
	// Default "workspace_id", with "tenant_id" as a fallback.
	WorkspaceClaim string

	// PermissionsClaim names the claim holding permissions.
	// Default "permissions", with "scope" as a fallback.
	PermissionsClaim string
}

// JWTValidator validates JWT tokens against a provider's JWKS.
// The key set is cached and refreshed in the background.
type JWTValidator struct {
	cfg   JWTValidatorConfig
	cache *jwk.Cache
}

var _ TokenValidator = (*JWTValidator)(nil)

// NewJWTValidator registers the JWKS URL and performs the first fetch so a
// misconfigured provider fails at startup.
func NewJWTValidator(ctx context.Context, cfg JWTValidatorConfig) (*JWTValidator, error) {
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("jwks_url is required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Minute
	}
	if cfg.WorkspaceClaim == "" {
		cfg.WorkspaceClaim = "workspace_id"
	}
	if cfg.PermissionsClaim == "" {
		cfg.PermissionsClaim = "permissions"
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(cfg.RefreshInterval)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	if _, err := cache.Refresh(ctx, cfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", cfg.JWKSURL, err)
	}

	return &JWTValidator{cfg: cfg, cache: cache}, nil
}

// ValidateToken verifies signature, expiry, issuer and audience, then maps
// the token onto Claims.
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	keyset, err := v.cache.Get(ctx, v.cfg.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return v.claimsFromToken(token), nil
}

func (v *JWTValidator) claimsFromToken(token jwt.Token) *Claims {
	claims := &Claims{
		Subject: token.Subject(),
		Custom:  make(map[string]any),
	}

	private := token.PrivateClaims()

	if email, ok := private["email"].(string); ok {
		claims.Email = email
	}

	if ws, ok := private[v.cfg.WorkspaceClaim].(string); ok {
		claims.WorkspaceID = ws
	} else if ws, ok := private["tenant_id"].(string); ok {
		claims.WorkspaceID = ws
	}

	if raw, ok := private[v.cfg.PermissionsClaim]; ok {
		claims.Permissions = claimStrings(raw)
	} else if raw, ok := private["scope"]; ok {
		claims.Permissions = claimStrings(raw)
	}

	for key, value := range private {
		switch key {
		case "email", "tenant_id", "scope", v.cfg.WorkspaceClaim, v.cfg.PermissionsClaim:
			continue
		}
		claims.Custom[key] = value
	}

	return claims
}
