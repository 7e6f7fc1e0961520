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


package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdProvider reads config from an etcd key and watches it.
type EtcdProvider struct {
	key    string
	client *clientv3.Client

	mu     sync.Mutex
	closed bool
}

// NewEtcdProvider creates a provider for opts.Path.
// Endpoints default to localhost:2379.
func NewEtcdProvider(opts ProviderConfig) (*EtcdProvider, error) {
	endpoints := opts.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"localhost:2379"}
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &EtcdProvider{key: opts.Path, client: client}, nil
}

// Type returns TypeEtcd.
func (p *EtcdProvider) Type() Type {
	return TypeEtcd
}

// Load reads the key.
func (p *EtcdProvider) Load(ctx context.Context) ([]byte, error) {
	resp, err := p.client.Get(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read etcd key %s: %w", p.key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key %s not found", p.key)
	}
	return resp.Kvs[0].Value, nil
}

// Watch signals on every put to the key.
func (p *EtcdProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	events := p.client.Watch(clientv3.WithRequireLeader(ctx), p.key)
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for resp := range events {
			if err := resp.Err(); err != nil {
				slog.Warn("Etcd watch failed", "key", p.key, "error", err)
				continue
			}
			for _, ev := range resp.Events {
				if ev.Type == clientv3.EventTypeDelete {
					slog.Warn("Etcd config key was deleted", "key", p.key)
					continue
				}
				slog.Debug("Etcd key changed", "key", p.key, "revision", ev.Kv.ModRevision)
				notify(ch)
			}
		}
	}()

	slog.Info("Watching etcd key", "key", p.key)
	return ch, nil
}

// Close closes the etcd client, which also ends active watches.
func (p *EtcdProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}

var _ Provider = (*EtcdProvider)(nil)
