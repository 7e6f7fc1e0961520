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
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
)

const consulWaitTime = 5 * time.Minute

// ConsulProvider reads config from a Consul KV key and watches it with
// blocking queries.
type ConsulProvider struct {
	key string
	kv  *api.KV

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// NewConsulProvider creates a provider for opts.Path on the first endpoint.
// Without endpoints the Consul client defaults apply (CONSUL_HTTP_ADDR or
// 127.0.0.1:8500).
func NewConsulProvider(opts ProviderConfig) (*ConsulProvider, error) {
	cfg := api.DefaultConfig()
	if len(opts.Endpoints) > 0 {
		cfg.Address = opts.Endpoints[0]
	}
	cfg.WaitTime = consulWaitTime

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulProvider{
		key: strings.TrimPrefix(opts.Path, "/"),
		kv:  client.KV(),
	}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load reads the key.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.kv.Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch issues blocking queries and signals whenever the key index moves.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	_, meta, err := p.kv.Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}

	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, meta.LastIndex, ch)

	slog.Info("Watching consul key", "key", p.key)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, index uint64, ch chan<- struct{}) {
	defer close(ch)

	for ctx.Err() == nil {
		opts := (&api.QueryOptions{WaitIndex: index, WaitTime: consulWaitTime}).WithContext(ctx)
		_, meta, err := p.kv.Get(p.key, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Consul watch failed", "key", p.key, "error", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		// A lower index means the raft log was reset; start over.
		if meta.LastIndex < index {
			index = 0
			continue
		}
		if meta.LastIndex != index {
			index = meta.LastIndex
			slog.Debug("Consul key changed", "key", p.key, "index", index)
			notify(ch)
		}
	}
}

// Close stops an active watch.
func (p *ConsulProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

var _ Provider = (*ConsulProvider)(nil)
