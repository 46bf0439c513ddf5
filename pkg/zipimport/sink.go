package zipimport

import "context"

// Sink is the destination of an import run: a single table that is emptied
// and then refilled.
//
// Implementations are not required to be safe for concurrent use; a run
// drives its sink from one goroutine.
type Sink interface {
	// Truncate removes every row from the destination table.
	Truncate(ctx context.Context) error

	// Prepare checks the insert statement against the destination table
	// before any row is sent. A failure means no row can be written.
	Prepare(ctx context.Context) error

	// InsertRow writes one row as its own statement.
	InsertRow(ctx context.Context, row Row) error

	// InsertBatch writes rows as one unit. Either all rows are applied or none.
	InsertBatch(ctx context.Context, rows []Row) error

	// Close releases the connection held by the sink.
	Close() error
}
