// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"fmt"
	"time"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
)

// AuthConfig configures how the API identifies callers.
//
// With JWT disabled every request runs as the development caller, which
// is convenient locally and must never be exposed publicly.
//
//	auth:
//	  enabled: true
//	  jwks_url: "https://auth.example.com/.well-known/jwks.json"
//	  issuer: "https://auth.example.com"
//	  audience: "copilot-api"
type AuthConfig struct {
	// Enabled requires a valid bearer JWT on /api routes.
	// Default: false
	Enabled bool `yaml:"enabled,omitempty"`

	JWKSURL  string `yaml:"jwks_url,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`

	// RefreshInterval is how often to refresh the JWKS.
	// Default: 15m
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`

	// WorkspaceClaim and PermissionsClaim name the token claims that carry
	// the caller's tenant and permissions.
	WorkspaceClaim   string `yaml:"workspace_claim,omitempty"`
	PermissionsClaim string `yaml:"permissions_claim,omitempty"`

	// Dev is the caller used when JWT is disabled.
	Dev DevCallerConfig `yaml:"dev,omitempty"`
}

// DevCallerConfig describes the fixed development caller.
type DevCallerConfig struct {
	// Default: "dev-workspace"
	WorkspaceID string `yaml:"workspace_id,omitempty"`

	// Default: "dev-user"
	UserID string `yaml:"user_id,omitempty"`

	// Default: every permission.
	Permissions []string `yaml:"permissions,omitempty"`
}

// SetDefaults applies default values to AuthConfig.
func (c *AuthConfig) SetDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 15 * time.Minute
	}
	if c.Dev.WorkspaceID == "" {
		c.Dev.WorkspaceID = "dev-workspace"
	}
	if c.Dev.UserID == "" {
		c.Dev.UserID = "dev-user"
	}
	if c.Dev.Permissions == nil {
		for _, p := range permission.All() {
			c.Dev.Permissions = append(c.Dev.Permissions, p.String())
		}
	}
}

// Validate checks the AuthConfig for errors.
func (c *AuthConfig) Validate() error {
	if _, err := permission.ParseSet(c.Dev.Permissions); err != nil {
		return fmt.Errorf("dev.permissions: %w", err)
	}
	if !c.Enabled {
		return nil
	}
	if c.JWKSURL == "" {
		return fmt.Errorf("jwks_url is required when auth is enabled")
	}
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required when auth is enabled")
	}
	if c.Audience == "" {
		return fmt.Errorf("audience is required when auth is enabled")
	}
	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("refresh_interval must be at least 1 minute")
	}
	return nil
}

// JWT returns the validator configuration.
func (c *AuthConfig) JWT() auth.JWTValidatorConfig {
	return auth.JWTValidatorConfig{
		JWKSURL:          c.JWKSURL,
		Issuer:           c.Issuer,
		Audience:         c.Audience,
		RefreshInterval:  c.RefreshInterval,
		WorkspaceClaim:   c.WorkspaceClaim,
		PermissionsClaim: c.PermissionsClaim,
	}
}

// DevCaller returns the development caller.
func (c *AuthConfig) DevCaller() (auth.Caller, error) {
	perms, err := permission.ParseSet(c.Dev.Permissions)
	if err != nil {
		return auth.Caller{}, err
	}
	return auth.NewCaller(c.Dev.UserID, c.Dev.WorkspaceID, perms.Slice()...), nil
}
