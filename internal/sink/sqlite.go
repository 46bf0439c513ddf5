package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// SQLite has no TRUNCATE; DELETE without WHERE uses the truncate optimization.
var sqliteDialect = dialect{
	name:        "sqlite",
	quote:       quoteDouble,
	placeholder: questionMark,
	truncate:    "DELETE FROM %s",
}

func init() {
	Register("sqlite", openSQLite)
}

// sqliteDSN strips the sqlite:// prefix; file: URIs are passed through.
func sqliteDSN(connStr string) string {
	if strings.HasPrefix(strings.ToLower(connStr), "sqlite://") {
		return connStr[len("sqlite://"):]
	}
	return connStr
}

func openSQLite(ctx context.Context, opts Options) (zipimport.Sink, error) {
	dsn := sqliteDSN(opts.ConnectionString)
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: database path is empty: %w", zipimport.ErrInvalidConfig)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w: %w", zipimport.ErrConnectionFailed, err)
	}
	// One connection keeps :memory: databases and the prepared statement on the same handle.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w: %w", dsn, zipimport.ErrConnectionFailed, err)
	}

	s, err := newSQLSink(conn, sqliteDialect, opts.Table, opts.Logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
