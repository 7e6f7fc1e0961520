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

// Package store persists tenant data: workspaces, agents, agent executions,
// knowledge items and integrations.
//
// Every tenant-scoped read and write takes the workspace id and filters on
// it in SQL. A row that exists in another workspace is reported as
// ErrNotFound, exactly like a row that does not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect is a normalized SQL dialect name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

var (
	// ErrNotFound is returned when a row does not exist in the caller's
	// workspace.
	ErrNotFound = errors.New("not found")

	// ErrMissingWorkspace is returned when a scoped call has no workspace id.
	ErrMissingWorkspace = errors.New("workspace id is required")
)

// Store is the SQL-backed tenant store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured database and, unless disabled, creates
// the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dialect := cfg.Dialect()
	pool := poolFor(cfg)
	db.SetMaxOpenConns(pool.maxOpen)
	db.SetMaxIdleConns(pool.maxIdle)
	db.SetConnMaxLifetime(pool.maxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == DialectSQLite {
		if _, err := db.ExecContext(pingCtx, "PRAGMA busy_timeout=10000"); err != nil {
			slog.Warn("Failed to set busy timeout", "error", err)
		}
		if _, err := db.ExecContext(pingCtx, "PRAGMA foreign_keys=ON"); err != nil {
			slog.Warn("Failed to enable foreign keys", "error", err)
		}
	}

	s, err := New(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	if cfg.ShouldAutoMigrate() {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	slog.Debug("Database opened", "driver", cfg.DriverName(), "database", cfg.Database)
	return s, nil
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// poolFor returns the connection pool limits for cfg. SQLite only supports
// one writer at a time, so it gets a single connection that is never
// recycled: a :memory: database lives exactly as long as its connection.
func poolFor(cfg Config) poolSettings {
	if cfg.Dialect() == DialectSQLite {
		return poolSettings{maxOpen: 1, maxIdle: 1}
	}
	return poolSettings{maxOpen: cfg.MaxConns, maxIdle: cfg.MaxIdle, maxLifetime: time.Hour}
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case DialectSQLite, DialectPostgres, DialectMySQL:
	case "sqlite3":
		dialect = DialectSQLite
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

// expectOne maps a zero-row update or delete to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func requireWorkspace(workspaceID string) error {
	if strings.TrimSpace(workspaceID) == "" {
		return ErrMissingWorkspace
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func likePattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}
