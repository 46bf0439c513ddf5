package sink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upk240z/zipimport/internal/db"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

func init() {
	Register("postgres", openPostgres)
	Register("postgresql", openPostgres)
}

// PostgresSink writes through a pgx pool. Batches use COPY inside a transaction.
type PostgresSink struct {
	pool   *pgxpool.Pool
	closer io.Closer // Cloud SQL dialer, if any
	table  pgx.Identifier
	insert string
	logger zipimport.Logger
}

func openPostgres(ctx context.Context, opts Options) (zipimport.Sink, error) {
	config, err := db.ParseConnectionString(opts.ConnectionString)
	if err != nil {
		return nil, err
	}
	config.Auth = opts.Auth
	if config.AppName == "" {
		config.AppName = opts.AppName
	}

	connector, err := db.NewConnector(config, opts.Logger)
	if err != nil {
		return nil, err
	}

	opts.Logger.Verbose("connecting to %s:%d/%s (%s)", config.Host, config.Port, config.Database, config.Auth.Method)
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	s, err := NewPostgresSink(pool, opts.Table, opts.Logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if c, ok := connector.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// NewPostgresSink wraps an open pool.
func NewPostgresSink(pool *pgxpool.Pool, table string, logger zipimport.Logger) (*PostgresSink, error) {
	parts, err := splitTable(table)
	if err != nil {
		return nil, err
	}
	ident := pgx.Identifier(parts)
	return &PostgresSink{
		pool:   pool,
		table:  ident,
		insert: postgresInsert(ident),
		logger: logger,
	}, nil
}

func postgresInsert(table pgx.Identifier) string {
	cols := make([]string, len(zipimport.Columns))
	vals := make([]string, len(zipimport.Columns))
	for i, c := range zipimport.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		ph := fmt.Sprintf("$%d", i+1)
		if zipimport.NullableColumns[c] {
			ph = "NULLIF(" + ph + ", '')"
		}
		vals[i] = ph
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.Sanitize(), strings.Join(cols, ", "), strings.Join(vals, ", "))
}

func (s *PostgresSink) Truncate(ctx context.Context) error {
	query := "TRUNCATE TABLE " + s.table.Sanitize()
	s.logger.Verbose("postgres: %s", query)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w: %w", query, zipimport.ErrTruncateFailed, err)
	}
	return nil
}

// Prepare checks the INSERT against the table on one pooled connection.
// The statement is named by its SQL text, so later Exec calls on that
// connection reuse it.
func (s *PostgresSink) Prepare(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w: %w", zipimport.ErrPersistFailed, err)
	}
	defer conn.Release()

	s.logger.Verbose("postgres: prepare %s", s.insert)
	if _, err := conn.Conn().Prepare(ctx, s.insert, s.insert); err != nil {
		return fmt.Errorf("prepare insert into %s: %w: %w", s.table.Sanitize(), zipimport.ErrPersistFailed, err)
	}
	return nil
}

// InsertRow runs the cached INSERT statement for one row.
func (s *PostgresSink) InsertRow(ctx context.Context, row zipimport.Row) error {
	if _, err := s.pool.Exec(ctx, s.insert, row.Args()...); err != nil {
		return fmt.Errorf("insert code %s: %w: %w", row.Code, zipimport.ErrPersistFailed, err)
	}
	return nil
}

// InsertBatch copies rows in one transaction; empty nullable values are sent as NULL.
func (s *PostgresSink) InsertBatch(ctx context.Context, rows []zipimport.Row) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w: %w", zipimport.ErrPersistFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CopyFrom(ctx, s.table, zipimport.Columns, pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("copy batch of %d rows: %w: %w", len(rows), zipimport.ErrPersistFailed, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy batch: wrote %d of %d rows: %w", n, len(rows), zipimport.ErrPersistFailed)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch of %d rows: %w: %w", len(rows), zipimport.ErrPersistFailed, err)
	}
	return nil
}

// Close closes the pool, then the Cloud SQL dialer if one was used.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
