package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

var sqlServerDialect = dialect{
	name: "sqlserver",
	quote: func(ident string) string {
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	},
	placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	truncate:    "TRUNCATE TABLE %s",
}

func init() {
	Register("sqlserver", openSQLServer)
}

func openSQLServer(ctx context.Context, opts Options) (zipimport.Sink, error) {
	cfg, err := msdsn.Parse(opts.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("sqlserver dsn: %w: %w", zipimport.ErrInvalidConfig, err)
	}

	conn, err := sql.Open("sqlserver", opts.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: open: %w: %w", zipimport.ErrConnectionFailed, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlserver: ping %s: %w: %w", cfg.Host, zipimport.ErrConnectionFailed, err)
	}

	s, err := newSQLSink(conn, sqlServerDialect, opts.Table, opts.Logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}
