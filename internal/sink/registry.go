package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/upk240z/zipimport/internal/db"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

// Options configure a sink.
type Options struct {
	ConnectionString string

	// Table is the destination table, optionally schema-qualified ("zip.address").
	Table string

	// Auth applies to PostgreSQL destinations only.
	Auth zipimport.AuthConfig

	// AppName is reported to servers that support it (PostgreSQL application_name).
	AppName string

	Logger zipimport.Logger
}

// Factory opens a connected sink.
type Factory func(ctx context.Context, opts Options) (zipimport.Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under scheme. Registering the same
// scheme twice replaces the earlier factory.
func Register(scheme string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(scheme)] = f
}

// Schemes returns the registered schemes in sorted order.
func Schemes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open selects the backend for opts.ConnectionString and connects it.
func Open(ctx context.Context, opts Options) (zipimport.Sink, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("sink: logger is required: %w", zipimport.ErrInvalidConfig)
	}
	if _, err := splitTable(opts.Table); err != nil {
		return nil, err
	}

	scheme := SchemeOf(opts.ConnectionString)

	mu.RLock()
	f, ok := factories[scheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("scheme %q (supported: %s): %w",
			scheme, strings.Join(Schemes(), ", "), zipimport.ErrUnsupportedBackend)
	}

	opts.Logger.Verbose("opening %s sink for table %s", scheme, opts.Table)
	return f(ctx, opts)
}

// SchemeOf returns the registry key for a connection string. ADO.NET-style
// strings are PostgreSQL; "file:" paths are SQLite.
func SchemeOf(connStr string) string {
	lower := strings.ToLower(strings.TrimSpace(connStr))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "file:"):
		return "sqlite"
	}
	if i := strings.Index(lower, "://"); i > 0 {
		return lower[:i]
	}
	if db.IsPostgreSQL(connStr) {
		return "postgres"
	}
	return ""
}

// splitTable splits a possibly schema-qualified table name into its parts.
func splitTable(table string) ([]string, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("table name is required: %w", zipimport.ErrInvalidConfig)
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("table name %q has too many parts: %w", table, zipimport.ErrInvalidConfig)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("table name %q has an empty part: %w", table, zipimport.ErrInvalidConfig)
		}
	}
	return parts, nil
}
