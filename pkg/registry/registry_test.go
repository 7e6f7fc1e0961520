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

package registry

import (
	"errors"
	"sync"
	"testing"
)

// TestItem is a simple struct for testing
type TestItem struct {
	ID   string
	Name string
}

func TestBaseRegistry_Register(t *testing.T) {
	registry := NewBaseRegistry[TestItem]()

	tests := []struct {
		name    string
		item    TestItem
		wantErr bool
	}{
		{
			name:    "register valid item",
			item:    TestItem{ID: "test-1", Name: "Test Item 1"},
			wantErr: false,
		},
		{
			name:    "register item with empty name",
			item:    TestItem{ID: "", Name: "Test Item"},
			wantErr: true,
		},
		{
			name:    "register duplicate item",
			item:    TestItem{ID: "test-1", Name: "Test Item 2"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.item.ID, tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("BaseRegistry.Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_Get(t *testing.T) {
	registry := NewBaseRegistry[TestItem]()

	testItem := TestItem{ID: "test-1", Name: "Test Item 1"}
	if err := registry.Register("test-1", testItem); err != nil {
		t.Fatalf("Failed to register test item: %v", err)
	}

	tests := []struct {
		name     string
		itemID   string
		wantItem TestItem
		wantOk   bool
	}{
		{name: "get existing item", itemID: "test-1", wantItem: testItem, wantOk: true},
		{name: "get missing item", itemID: "nope", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := registry.Get(tt.itemID)
			if ok != tt.wantOk {
				t.Errorf("BaseRegistry.Get() ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.wantItem {
				t.Errorf("BaseRegistry.Get() = %v, want %v", got, tt.wantItem)
			}
		})
	}
}

func TestBaseRegistry_ListIsSorted(t *testing.T) {
	registry := NewBaseRegistry[TestItem]()
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := registry.Register(id, TestItem{ID: id}); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	items := registry.List()
	want := []string{"alpha", "bravo", "charlie"}
	if len(items) != len(want) {
		t.Fatalf("List() returned %d items, want %d", len(items), len(want))
	}
	for i, item := range items {
		if item.ID != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, item.ID, want[i])
		}
	}
	if registry.Count() != 3 {
		t.Errorf("Count() = %d, want 3", registry.Count())
	}
}

func TestBaseRegistry_Seal(t *testing.T) {
	registry := NewBaseRegistry[TestItem]()
	if err := registry.Register("a", TestItem{ID: "a"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	registry.Seal()
	registry.Seal()

	if !registry.Sealed() {
		t.Fatal("Sealed() = false after Seal")
	}
	err := registry.Register("b", TestItem{ID: "b"})
	if !errors.Is(err, ErrSealed) {
		t.Errorf("Register after Seal error = %v, want ErrSealed", err)
	}
	if _, ok := registry.Get("a"); !ok {
		t.Error("Get after Seal lost existing item")
	}
}

func TestBaseRegistry_ConcurrentReads(t *testing.T) {
	registry := NewBaseRegistry[TestItem]()
	_ = registry.Register("a", TestItem{ID: "a"})
	registry.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := registry.Get("a"); !ok {
				t.Error("concurrent Get failed")
			}
			_ = registry.List()
		}()
	}
	wg.Wait()
}
