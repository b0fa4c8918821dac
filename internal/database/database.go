// Package database defines the engine a session uses to talk to its
// database, and the registry of backend adapters.
package database

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/telemetry"
	"github.com/nosyt-lien/preql/internal/types"
)

// Rows is a fully read result set.
type Rows struct {
	Columns []string
	Values  [][]interface{}
}

// Len returns the number of rows.
func (r *Rows) Len() int { return len(r.Values) }

// Result is the outcome of a statement run for its effect.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Engine executes SQL for one session. Work happens inside an implicit
// transaction opened on first use and ended by Commit or Rollback.
type Engine interface {
	// Query runs a statement and reads every row.
	Query(ctx context.Context, query string, args ...interface{}) (*Rows, error)

	// Exec runs a statement for its effect.
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// Commit makes pending work durable.
	Commit(ctx context.Context) error

	// Rollback discards pending work.
	Rollback(ctx context.Context) error

	// ListTables returns the user tables, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// ImportTableType reflects the type of an existing table. Relation
	// targets are left unresolved; see types.Schema.Link.
	ImportTableType(ctx context.Context, name string) (*types.Collection, error)

	// Dialect returns the SQL dialect of the backend.
	Dialect() sqlgen.Dialect

	// Version returns the server version, if known.
	Version() *version.Version

	// Close rolls back pending work and releases the connection.
	Close() error
}

// Config holds database connection configuration.
type Config struct {
	URI            string
	ConnectTimeout time.Duration
	Telemetry      *telemetry.Collector
}

// Option configures Open.
type Option func(*Config)

// WithConnectTimeout bounds the initial connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithTelemetry reports every executed statement to col.
func WithTelemetry(col *telemetry.Collector) Option {
	return func(c *Config) { c.Telemetry = col }
}

// Opener connects an adapter for a parsed URI.
type Opener func(ctx context.Context, u *url.URL, cfg Config) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register makes an adapter available for the given URI schemes.
func Register(open Opener, schemes ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, s := range schemes {
		registry[s] = open
	}
}

// Schemes returns the registered URI schemes.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open connects to the database at uri using the adapter registered for its
// scheme.
func Open(ctx context.Context, uri string, opts ...Option) (Engine, error) {
	cfg := Config{URI: uri, ConnectTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	open, ok := registry[u.Scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme %q (known: %s)", u.Scheme, strings.Join(Schemes(), ", "))
	}
	return open(ctx, u, cfg)
}

// ParseURI parses a database URI. File based schemes such as
// `sqlite://:memory:` or `duck://data/app.db` keep their path verbatim in
// Opaque.
func ParseURI(uri string) (*url.URL, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("invalid database uri %q: missing scheme", uri)
	}
	scheme = strings.ToLower(scheme)
	switch scheme {
	case "sqlite", "sqlite3", "duck", "duckdb":
		// Paths are not URL syntax; keep them verbatim.
		return &url.URL{Scheme: scheme, Opaque: rest}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid database uri %q: %w", uri, err)
	}
	u.Scheme = scheme
	return u, nil
}
