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

// Package registry provides a name-keyed registry that can be sealed once
// startup registration is complete.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrSealed is returned by Register after Seal.
var ErrSealed = errors.New("registry is sealed")

type Registry[T any] interface {
	Register(name string, item T) error
	Get(name string) (T, bool)
	List() []T
	Names() []string
	Count() int
	Seal()
}

// BaseRegistry is a concurrency-safe Registry. Once sealed it rejects
// registration and only serves reads.
type BaseRegistry[T any] struct {
	mu     sync.RWMutex
	items  map[string]T
	sealed bool
}

var _ Registry[int] = (*BaseRegistry[int])(nil)

func NewBaseRegistry[T any]() *BaseRegistry[T] {
	return &BaseRegistry[T]{
		items: make(map[string]T),
	}
}

func (r *BaseRegistry[T]) Register(name string, item T) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("cannot register '%s': %w", name, ErrSealed)
	}
	if _, exists := r.items[name]; exists {
		return fmt.Errorf("item with name '%s' already registered", name)
	}

	r.items[name] = item
	return nil
}

func (r *BaseRegistry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[name]
	return item, exists
}

// List returns the items ordered by name.
func (r *BaseRegistry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.sortedNamesLocked()
	items := make([]T, 0, len(names))
	for _, name := range names {
		items = append(items, r.items[name])
	}
	return items
}

// Names returns the registered names, sorted.
func (r *BaseRegistry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNamesLocked()
}

func (r *BaseRegistry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// Seal stops further registration. It is idempotent.
func (r *BaseRegistry[T]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *BaseRegistry[T]) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sealed
}

func (r *BaseRegistry[T]) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
