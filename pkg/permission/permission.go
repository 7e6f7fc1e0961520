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

// Package permission defines the closed permission vocabulary and the gate
// that decides whether a caller may run an operation.
//
// Permissions are compared with AND semantics: every required permission
// must be held. A denial always names the missing permissions.
package permission

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is a single capability such as "agents:create".
// Only the constants declared in this package are valid.
type Permission string

const (
	AgentsCreate Permission = "agents:create"
	AgentsRead   Permission = "agents:read"
	AgentsUpdate Permission = "agents:update"
	AgentsDelete Permission = "agents:delete"

	AnalyticsRead Permission = "analytics:read"

	KnowledgeCreate Permission = "knowledge:create"
	KnowledgeRead   Permission = "knowledge:read"
	KnowledgeDelete Permission = "knowledge:delete"

	IntegrationsConnect    Permission = "integrations:connect"
	IntegrationsRead       Permission = "integrations:read"
	IntegrationsDisconnect Permission = "integrations:disconnect"
)

var vocabulary = map[Permission]struct{}{
	AgentsCreate:           {},
	AgentsRead:             {},
	AgentsUpdate:           {},
	AgentsDelete:           {},
	AnalyticsRead:          {},
	KnowledgeCreate:        {},
	KnowledgeRead:          {},
	KnowledgeDelete:        {},
	IntegrationsConnect:    {},
	IntegrationsRead:       {},
	IntegrationsDisconnect: {},
}

// All returns every known permission in sorted order.
func All() []Permission {
	out := make([]Permission, 0, len(vocabulary))
	for p := range vocabulary {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// Valid reports whether p belongs to the vocabulary.
func (p Permission) Valid() bool {
	_, ok := vocabulary[p]
	return ok
}

func (p Permission) String() string {
	return string(p)
}

// Parse converts a string into a Permission, rejecting anything outside the
// vocabulary.
func Parse(s string) (Permission, error) {
	p := Permission(strings.TrimSpace(s))
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Set is an immutable-by-convention collection of permissions.
type Set map[Permission]struct{}

// NewSet builds a set from permissions. Invalid values are dropped.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		if p.Valid() {
			s[p] = struct{}{}
		}
	}
	return s
}

// ParseSet parses every string and fails on the first unknown permission.
// Use it where the input is trusted configuration.
func ParseSet(values []string) (Set, error) {
	s := make(Set, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		p, err := Parse(v)
		if err != nil {
			return nil, err
		}
		s[p] = struct{}{}
	}
	return s, nil
}

// FromStrings parses values leniently. Known permissions go into the set and
// the rest are returned so the caller can log them.
func FromStrings(values []string) (Set, []string) {
	s := make(Set, len(values))
	var unknown []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		p, err := Parse(v)
		if err != nil {
			unknown = append(unknown, v)
			continue
		}
		s[p] = struct{}{}
	}
	return s, unknown
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of permissions.
func (s Set) Len() int {
	return len(s)
}

// Slice returns the permissions sorted.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// Strings returns the permissions as sorted strings.
func (s Set) Strings() []string {
	perms := s.Slice()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func (s Set) String() string {
	return strings.Join(s.Strings(), ",")
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}
