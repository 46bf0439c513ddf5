package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// dialect captures the SQL differences between database/sql backends.
type dialect struct {
	name string

	// quote quotes one identifier part.
	quote func(ident string) string

	// placeholder returns the bind marker for the 1-based argument n.
	placeholder func(n int) string

	// truncate is a format string taking the quoted table name.
	truncate string
}

func (d dialect) qualified(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = d.quote(p)
	}
	return strings.Join(quoted, ".")
}

// insertStatement builds the single-row INSERT. Nullable columns are bound
// through NULLIF(x, '') so an empty string is stored as NULL.
func (d dialect) insertStatement(table string) string {
	cols := make([]string, len(zipimport.Columns))
	vals := make([]string, len(zipimport.Columns))
	for i, c := range zipimport.Columns {
		cols[i] = d.quote(c)
		ph := d.placeholder(i + 1)
		if zipimport.NullableColumns[c] {
			ph = "NULLIF(" + ph + ", '')"
		}
		vals[i] = ph
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(vals, ", "))
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func questionMark(int) string { return "?" }

// SQLSink is a zipimport.Sink on top of database/sql.
// It is not safe for concurrent use.
type SQLSink struct {
	db      *sql.DB
	dialect dialect
	table   string
	insert  string
	logger  zipimport.Logger
	stmt    *sql.Stmt
}

func newSQLSink(db *sql.DB, d dialect, table string, logger zipimport.Logger) (*SQLSink, error) {
	parts, err := splitTable(table)
	if err != nil {
		return nil, err
	}
	qualified := d.qualified(parts)
	return &SQLSink{
		db:      db,
		dialect: d,
		table:   qualified,
		insert:  d.insertStatement(qualified),
		logger:  logger,
	}, nil
}

// Truncate removes every row from the destination table.
func (s *SQLSink) Truncate(ctx context.Context) error {
	query := fmt.Sprintf(s.dialect.truncate, s.table)
	s.logger.Verbose("%s: %s", s.dialect.name, query)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w: %w", query, zipimport.ErrTruncateFailed, err)
	}
	return nil
}

// Prepare prepares the insert statement. Calling it again is a no-op.
func (s *SQLSink) Prepare(ctx context.Context) error {
	if s.stmt != nil {
		return nil
	}
	s.logger.Verbose("%s: prepare %s", s.dialect.name, s.insert)
	stmt, err := s.db.PrepareContext(ctx, s.insert)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w: %w", s.table, zipimport.ErrPersistFailed, err)
	}
	s.stmt = stmt
	return nil
}

// prepared returns the insert statement, preparing it if Prepare was not called.
func (s *SQLSink) prepared(ctx context.Context) (*sql.Stmt, error) {
	if err := s.Prepare(ctx); err != nil {
		return nil, err
	}
	return s.stmt, nil
}

// InsertRow inserts one row as its own statement.
func (s *SQLSink) InsertRow(ctx context.Context, row zipimport.Row) error {
	stmt, err := s.prepared(ctx)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
		return fmt.Errorf("insert code %s: %w: %w", row.Code, zipimport.ErrPersistFailed, err)
	}
	return nil
}

// InsertBatch inserts rows in one transaction. On any failure the whole
// batch is rolled back.
func (s *SQLSink) InsertBatch(ctx context.Context, rows []zipimport.Row) (err error) {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := s.prepared(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w: %w", zipimport.ErrPersistFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.StmtContext(ctx, stmt)
	defer txStmt.Close()

	for i, row := range rows {
		if _, err = txStmt.ExecContext(ctx, row.Args()...); err != nil {
			return fmt.Errorf("batch row %d (code %s): %w: %w", i+1, row.Code, zipimport.ErrPersistFailed, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d rows: %w: %w", len(rows), zipimport.ErrPersistFailed, err)
	}
	return nil
}

// Close releases the prepared statement and the connection pool.
func (s *SQLSink) Close() error {
	if s.stmt != nil {
		_ = s.stmt.Close()
	}
	return s.db.Close()
}
