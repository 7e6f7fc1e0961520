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

// Package integrationtool provides the third-party integration tools.
//
// connect_integration does not talk to the provider: it returns the OAuth
// authorization route the UI should navigate to.
package integrationtool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

// Store is the subset of the tenant store the integration tools use.
type Store interface {
	GetIntegration(ctx context.Context, workspaceID, id string) (*store.Integration, error)
	FindIntegrationByProvider(ctx context.Context, workspaceID, provider string) (*store.Integration, error)
	ListIntegrations(ctx context.Context, workspaceID string, status store.IntegrationStatus) ([]*store.Integration, error)
	DeleteIntegration(ctx context.Context, workspaceID, id string) error
}

var _ Store = (*store.Store)(nil)

// Tools returns every integration tool bound to s.
func Tools(s Store) []tool.Tool {
	return []tool.Tool{
		NewConnectIntegration(),
		NewListIntegrations(s),
		NewDisconnectIntegration(s),
		NewCheckIntegrationStatus(s),
	}
}

// AuthorizeURL returns the route that starts the OAuth flow for provider.
func AuthorizeURL(provider, workspaceID string) string {
	step := "authorize"
	if provider == "microsoft" {
		step = "connect"
	}
	q := url.Values{"workspaceId": {workspaceID}}
	return fmt.Sprintf("/api/integrations/%s/%s?%s", provider, step, q.Encode())
}

type ConnectIntegrationArgs struct {
	Provider string `json:"provider" jsonschema:"required,description=Integration provider to connect,enum=gmail,enum=slack,enum=hubspot,enum=pipedrive,enum=microsoft" validate:"required,oneof=gmail slack hubspot pipedrive microsoft"`
}

// Authorization is the connect_integration payload.
type Authorization struct {
	AuthURL  string `json:"authUrl"`
	Provider string `json:"provider"`
}

// NewConnectIntegration returns the connect_integration tool.
func NewConnectIntegration() tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name: tool.ConnectIntegration,
		Description: "Connect an external integration like Gmail, Slack, HubSpot or Pipedrive, " +
			`for requests such as "Connect my Gmail account".`,
		Category:    tool.CategoryIntegrations,
		Permissions: []permission.Permission{permission.IntegrationsConnect},
	}, func(ctx context.Context, caller auth.Caller, args ConnectIntegrationArgs) (*tool.Result, error) {
		authURL := AuthorizeURL(args.Provider, caller.WorkspaceID)
		return tool.SucceedWithAction(
			fmt.Sprintf("Initiating %s connection. You'll be redirected to authorize.", strings.ToUpper(args.Provider)),
			Authorization{AuthURL: authURL, Provider: args.Provider},
			tool.Action{Type: tool.ActionNavigate, Target: authURL, Label: "Authorize " + args.Provider},
		), nil
	})
}

type ListIntegrationsArgs struct {
	Status string `json:"status,omitempty" jsonschema:"description=Filter by status,enum=all,enum=active,enum=expired,enum=error,default=all" validate:"oneof=all active expired error"`
}

func (a *ListIntegrationsArgs) SetDefaults() {
	if a.Status == "" {
		a.Status = "all"
	}
}

// IntegrationSummary is one list_integrations entry.
type IntegrationSummary struct {
	ID         string                  `json:"id"`
	Provider   string                  `json:"provider"`
	Status     store.IntegrationStatus `json:"status"`
	CreatedAt  time.Time               `json:"createdAt"`
	LastSyncAt *time.Time              `json:"lastSyncAt"`
}

// NewListIntegrations returns the list_integrations tool.
func NewListIntegrations(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.ListIntegrations,
		Description: `List connected integrations, for requests such as "What apps are integrated?".`,
		Category:    tool.CategoryIntegrations,
		Permissions: []permission.Permission{permission.IntegrationsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args ListIntegrationsArgs) (*tool.Result, error) {
		var status store.IntegrationStatus
		if args.Status != "all" {
			status = store.IntegrationStatus(args.Status)
		}

		list, err := s.ListIntegrations(ctx, caller.WorkspaceID, status)
		if err != nil {
			return nil, tool.ExecutionError("failed to list integrations", err)
		}

		out := make([]IntegrationSummary, 0, len(list))
		for _, in := range list {
			out = append(out, IntegrationSummary{
				ID:         in.ID,
				Provider:   in.Provider,
				Status:     in.Status,
				CreatedAt:  in.CreatedAt,
				LastSyncAt: in.LastSyncAt,
			})
		}

		msg := "No integrations connected yet"
		if len(out) > 0 {
			msg = fmt.Sprintf("You have %d integration(s) connected", len(out))
		}
		return tool.Succeed(msg, out), nil
	})
}

type DisconnectIntegrationArgs struct {
	IntegrationID string `json:"integrationId,omitempty" jsonschema:"description=Integration ID to disconnect" validate:"required_without=Provider"`
	Provider      string `json:"provider,omitempty" jsonschema:"description=Provider name when no ID is given,enum=gmail,enum=slack,enum=hubspot,enum=pipedrive,enum=microsoft" validate:"omitempty,oneof=gmail slack hubspot pipedrive microsoft"`
}

// NewDisconnectIntegration returns the disconnect_integration tool.
func NewDisconnectIntegration(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.DisconnectIntegration,
		Description: `Disconnect an integration and revoke access, for requests such as "Disconnect my Gmail".`,
		Category:    tool.CategoryIntegrations,
		Permissions: []permission.Permission{permission.IntegrationsDisconnect},
		Destructive: true,
	}, func(ctx context.Context, caller auth.Caller, args DisconnectIntegrationArgs) (*tool.Result, error) {
		var (
			in  *store.Integration
			err error
		)
		if args.IntegrationID != "" {
			in, err = s.GetIntegration(ctx, caller.WorkspaceID, args.IntegrationID)
		} else {
			in, err = s.FindIntegrationByProvider(ctx, caller.WorkspaceID, args.Provider)
		}
		if err != nil {
			return nil, storeError("disconnect integration", err)
		}

		if err := s.DeleteIntegration(ctx, caller.WorkspaceID, in.ID); err != nil {
			return nil, storeError("disconnect integration", err)
		}

		return tool.SucceedWithAction(
			fmt.Sprintf("Disconnected %s integration", strings.ToUpper(in.Provider)),
			nil,
			tool.Action{Type: tool.ActionDelete, Target: "integration-" + in.ID, Label: "Integration disconnected"},
		), nil
	})
}

type CheckIntegrationStatusArgs struct {
	Provider string `json:"provider" jsonschema:"required,description=Provider to check,enum=gmail,enum=slack,enum=hubspot,enum=pipedrive,enum=microsoft" validate:"required,oneof=gmail slack hubspot pipedrive microsoft"`
}

// IntegrationHealth is the check_integration_status payload.
type IntegrationHealth struct {
	Connected  bool                    `json:"connected"`
	Provider   string                  `json:"provider"`
	Status     store.IntegrationStatus `json:"status,omitempty"`
	CreatedAt  *time.Time              `json:"createdAt,omitempty"`
	LastSyncAt *time.Time              `json:"lastSyncAt,omitempty"`
	IsHealthy  bool                    `json:"isHealthy"`
}

// NewCheckIntegrationStatus returns the check_integration_status tool.
func NewCheckIntegrationStatus(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.CheckIntegrationStatus,
		Description: `Check the status and health of an integration, for requests such as "Is my Gmail connected?".`,
		Category:    tool.CategoryIntegrations,
		Permissions: []permission.Permission{permission.IntegrationsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args CheckIntegrationStatusArgs) (*tool.Result, error) {
		name := strings.ToUpper(args.Provider)

		in, err := s.FindIntegrationByProvider(ctx, caller.WorkspaceID, args.Provider)
		if errors.Is(err, store.ErrNotFound) {
			return tool.Succeed(name+" is not connected", IntegrationHealth{Provider: args.Provider}), nil
		}
		if err != nil {
			return nil, tool.ExecutionError("failed to check integration status", err)
		}

		health := IntegrationHealth{
			Connected:  true,
			Provider:   args.Provider,
			Status:     in.Status,
			CreatedAt:  &in.CreatedAt,
			LastSyncAt: in.LastSyncAt,
			IsHealthy:  in.Status == store.IntegrationActive,
		}
		msg := name + " is connected and healthy"
		if !health.IsHealthy {
			msg = fmt.Sprintf("%s is connected but has status: %s", name, in.Status)
		}
		return tool.Succeed(msg, health), nil
	})
}

func storeError(action string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return tool.NotFound("integration")
	}
	return tool.ExecutionError("failed to "+action, err)
}
