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

package store

import "time"

// Workspace is a tenant.
type Workspace struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	SubscriptionTier string    `json:"subscriptionTier"`
	CreatedAt        time.Time `json:"createdAt"`
}

type AgentType string

const (
	AgentTypeEmail          AgentType = "email"
	AgentTypeCRM            AgentType = "crm"
	AgentTypeWorkflow       AgentType = "workflow"
	AgentTypeDataEnrichment AgentType = "data-enrichment"
	AgentTypeCustom         AgentType = "custom"
)

type AgentStatus string

const (
	AgentStatusDraft    AgentStatus = "draft"
	AgentStatusActive   AgentStatus = "active"
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusPaused   AgentStatus = "paused"
	AgentStatusArchived AgentStatus = "archived"
)

// Agent is an automation configured in a workspace.
type Agent struct {
	ID             string         `json:"id"`
	WorkspaceID    string         `json:"workspaceId"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Type           AgentType      `json:"type"`
	Status         AgentStatus    `json:"status"`
	Config         map[string]any `json:"configuration,omitempty"`
	CreatedBy      string         `json:"createdBy"`
	ExecutionCount int            `json:"executionCount"`
	LastExecutedAt *time.Time     `json:"lastExecutedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// AgentFilter narrows ListAgents. A zero Status lists every status.
type AgentFilter struct {
	Status AgentStatus
	Limit  int
}

// AgentUpdate holds the fields to change. Nil fields are left untouched.
type AgentUpdate struct {
	Name        *string
	Description *string
	Status      *AgentStatus
	Config      map[string]any
}

// IsEmpty reports whether the update changes nothing.
func (u AgentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil && u.Config == nil
}

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Execution is one run of an agent.
type Execution struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	AgentID     string          `json:"agentId"`
	TriggeredBy string          `json:"triggeredBy"`
	Status      ExecutionStatus `json:"status"`
	DurationMs  int             `json:"durationMs"`
	TokensUsed  int             `json:"tokensUsed"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// ExecutionFilter narrows execution queries. A zero Since means all time.
type ExecutionFilter struct {
	AgentID string
	Since   time.Time
	Limit   int
}

type KnowledgeType string

const (
	KnowledgeDocument KnowledgeType = "document"
	KnowledgeURL      KnowledgeType = "url"
	KnowledgeImage    KnowledgeType = "image"
	KnowledgeText     KnowledgeType = "text"
)

type KnowledgeStatus string

const (
	KnowledgeProcessing KnowledgeStatus = "processing"
	KnowledgeReady      KnowledgeStatus = "ready"
	KnowledgeFailed     KnowledgeStatus = "failed"
)

// KnowledgeItem is a document in a workspace knowledge base.
type KnowledgeItem struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	Title       string          `json:"title"`
	Type        KnowledgeType   `json:"type"`
	Status      KnowledgeStatus `json:"status"`
	SourceURL   string          `json:"sourceUrl,omitempty"`
	Content     string          `json:"content,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// KnowledgeFilter narrows ListKnowledgeItems. Search is a case-insensitive
// substring match on title and content.
type KnowledgeFilter struct {
	Type   KnowledgeType
	Status KnowledgeStatus
	Search string
	Limit  int
}

type IntegrationStatus string

const (
	IntegrationActive  IntegrationStatus = "active"
	IntegrationExpired IntegrationStatus = "expired"
	IntegrationError   IntegrationStatus = "error"
)

// Integration is an OAuth connection to an external provider.
type Integration struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspaceId"`
	Provider    string            `json:"provider"`
	Status      IntegrationStatus `json:"status"`
	CreatedBy   string            `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastSyncAt  *time.Time        `json:"lastSyncAt,omitempty"`
}
