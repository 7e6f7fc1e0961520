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

package store

import "fmt"

// Config holds configuration for the tenant database.
// Supports PostgreSQL, MySQL, and SQLite.
type Config struct {
	// Driver specifies the database driver: "postgres", "mysql", or "sqlite".
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Host is the database server hostname (not required for SQLite).
	Host string `yaml:"host,omitempty"`

	// Port is the database server port (not required for SQLite).
	Port int `yaml:"port,omitempty"`

	// Database is the database name, or the file path for SQLite.
	// Default: "copilot.db"
	Database string `yaml:"database"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// SSLMode for PostgreSQL connections.
	SSLMode string `yaml:"ssl_mode,omitempty"`

	// MaxConns is the maximum number of open connections.
	MaxConns int `yaml:"max_conns,omitempty"`

	// MaxIdle is the maximum number of idle connections.
	MaxIdle int `yaml:"max_idle,omitempty"`

	// AutoMigrate creates missing tables on Open.
	// Default: true
	AutoMigrate *bool `yaml:"auto_migrate,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Database == "" && c.Dialect() == DialectSQLite {
		c.Database = "copilot.db"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}

	if c.Port == 0 {
		switch c.Driver {
		case "postgres":
			c.Port = 5432
		case "mysql":
			c.Port = 3306
		}
	}

	if c.Driver == "postgres" && c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.AutoMigrate == nil {
		t := true
		c.AutoMigrate = &t
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite", "sqlite3":
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("invalid driver %q (valid: postgres, mysql, sqlite)", c.Driver)
	}

	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Dialect() != DialectSQLite && c.Host == "" {
		return fmt.Errorf("host is required for %s", c.Driver)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must be non-negative")
	}
	if c.MaxIdle < 0 {
		return fmt.Errorf("max_idle must be non-negative")
	}
	return nil
}

// ShouldAutoMigrate reports whether Open creates the schema.
func (c *Config) ShouldAutoMigrate() bool {
	return c.AutoMigrate == nil || *c.AutoMigrate
}

// DSN returns the connection string for the database.
func (c *Config) DSN() string {
	switch c.Dialect() {
	case DialectPostgres:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s", c.Host, c.Port, c.Database)
		if c.Username != "" {
			dsn += fmt.Sprintf(" user=%s", c.Username)
		}
		if c.Password != "" {
			dsn += fmt.Sprintf(" password=%s", c.Password)
		}
		if c.SSLMode != "" {
			dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
		}
		return dsn
	case DialectMySQL:
		// Timestamps are scanned into time.Time only with parseTime.
		if c.Username != "" {
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
				c.Username, c.Password, c.Host, c.Port, c.Database)
		}
		return fmt.Sprintf("tcp(%s:%d)/%s?parseTime=true", c.Host, c.Port, c.Database)
	case DialectSQLite:
		return c.Database
	default:
		return ""
	}
}

// DriverName returns the name registered with database/sql.
func (c *Config) DriverName() string {
	if c.Driver == "sqlite" {
		return "sqlite3"
	}
	return c.Driver
}

// Dialect returns the normalized SQL dialect.
func (c *Config) Dialect() Dialect {
	switch c.Driver {
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "postgres":
		return DialectPostgres
	case "mysql":
		return DialectMySQL
	default:
		return Dialect(c.Driver)
	}
}
