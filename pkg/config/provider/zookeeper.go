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
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider reads config from a znode and re-arms a data watch
// after every event.
type ZookeeperProvider struct {
	path string
	conn *zk.Conn

	mu     sync.Mutex
	closed bool
}

// NewZookeeperProvider connects to the ensemble. Endpoints default to
// 127.0.0.1:2181.
func NewZookeeperProvider(opts ProviderConfig) (*ZookeeperProvider, error) {
	endpoints := opts.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"127.0.0.1:2181"}
	}

	logger := slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	conn, _, err := zk.Connect(endpoints, opts.Timeout, zk.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	return &ZookeeperProvider{path: opts.Path, conn: conn}, nil
}

// Type returns TypeZookeeper.
func (p *ZookeeperProvider) Type() Type {
	return TypeZookeeper
}

// Load reads the znode data.
func (p *ZookeeperProvider) Load(_ context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zookeeper path %s: %w", p.path, err)
	}
	return data, nil
}

// Watch signals whenever the znode data changes.
func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	_, _, events, err := p.conn.GetW(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to watch zookeeper path %s: %w", p.path, err)
	}

	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, events, ch)

	slog.Info("Watching zookeeper path", "path", p.path)
	return ch, nil
}

func (p *ZookeeperProvider) watchLoop(ctx context.Context, events <-chan zk.Event, ch chan<- struct{}) {
	defer close(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Type {
			case zk.EventNodeDataChanged, zk.EventNodeCreated:
				slog.Debug("Zookeeper node changed", "path", p.path)
				notify(ch)
			case zk.EventNodeDeleted:
				slog.Warn("Zookeeper config node was deleted", "path", p.path)
			case zk.EventNotWatching:
				if ev.Err == zk.ErrClosing || ev.Err == zk.ErrConnectionClosed {
					return
				}
				slog.Warn("Zookeeper watch lost", "path", p.path, "error", ev.Err)
			}
		}

		// Watches fire once; re-arm with ExistsW so a deleted node is
		// picked up again when it is recreated.
		var err error
		for {
			_, _, events, err = p.conn.ExistsW(p.path)
			if err == nil {
				break
			}
			if err == zk.ErrClosing || err == zk.ErrConnectionClosed {
				return
			}
			slog.Warn("Failed to re-arm zookeeper watch", "path", p.path, "error", err)
			if !sleep(ctx, time.Second) {
				return
			}
		}
	}
}

// Close closes the session.
func (p *ZookeeperProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.conn.Close()
	}
	return nil
}

var _ Provider = (*ZookeeperProvider)(nil)
