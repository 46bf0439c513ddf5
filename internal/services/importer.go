package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/upk240z/zipimport/internal/files/filesystem"
	"github.com/upk240z/zipimport/internal/record"
	"github.com/upk240z/zipimport/internal/sink"
	"github.com/upk240z/zipimport/internal/source"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

// SinkOpener connects a destination. sink.Open is the production implementation.
type SinkOpener func(ctx context.Context, opts sink.Options) (zipimport.Sink, error)

// ImportService runs one import: truncate the destination, count the source
// lines, then stream every line through parse, filter and persist.
//
// Thread-Safety: NOT safe for concurrent Import() calls on the same instance.
type ImportService struct {
	openSink SinkOpener
	fsys     filesystem.FileSystemProvider
	logger   zipimport.Logger
	progress io.Writer
	now      func() time.Time
}

// NewImportService creates an ImportService. progress receives one line per
// processed record; diagnostics go to logger. Panics on nil dependencies.
func NewImportService(openSink SinkOpener, fsys filesystem.FileSystemProvider, logger zipimport.Logger, progress io.Writer) *ImportService {
	if openSink == nil {
		panic("openSink cannot be nil")
	}
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	return &ImportService{
		openSink: openSink,
		fsys:     fsys,
		logger:   logger,
		progress: progress,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock used for the validity threshold and timestamps.
func (s *ImportService) WithClock(now func() time.Time) *ImportService {
	s.now = now
	return s
}

// Import executes the run described by cfg. The returned RunState is never
// nil; on error its Phase is PhaseAborted and the counters show how far the
// run got.
func (s *ImportService) Import(ctx context.Context, cfg zipimport.ImportConfig) (*zipimport.RunState, error) {
	started := s.now()
	state := &zipimport.RunState{
		RunID:            uuid.New(),
		Phase:            zipimport.PhaseInit,
		CurrentYearMonth: record.YearMonthOf(started),
		StartedAt:        started,
	}

	if err := cfg.Validate(); err != nil {
		return s.abort(state, err)
	}

	s.logger.Verbose("run %s: %s -> %s (mode=%s, on-malformed=%s, threshold=%d)",
		state.RunID, cfg.SourcePath, cfg.Table, cfg.Mode, cfg.OnMalformed, state.CurrentYearMonth)

	snk, err := s.openSink(ctx, sink.Options{
		ConnectionString: cfg.ConnectionString,
		Table:            cfg.Table,
		Auth:             cfg.Auth,
		AppName:          fmt.Sprintf("%s-%s", zipimport.ApplicationName, state.RunID.String()[:8]),
		Logger:           s.logger,
	})
	if err != nil {
		return s.abort(state, err)
	}
	defer func() {
		if err := snk.Close(); err != nil {
			s.logger.Error("closing destination: %v", err)
		}
	}()

	// Nothing destructive happens before the source is known to be readable.
	if err := source.CheckReadable(s.fsys, cfg.SourcePath); err != nil {
		return s.abort(state, err)
	}

	state.Phase = zipimport.PhaseLoading
	if err := snk.Truncate(ctx); err != nil {
		return s.abort(state, err)
	}
	if err := snk.Prepare(ctx); err != nil {
		return s.abort(state, err)
	}

	state.Phase = zipimport.PhaseCounting
	total, err := source.CountLines(s.fsys, cfg.SourcePath)
	if err != nil {
		return s.abort(state, err)
	}
	state.TotalLines = total
	s.logger.Info("total rows: %d", total)

	state.Phase = zipimport.PhaseStreaming
	if err := s.stream(ctx, snk, cfg, state); err != nil {
		return s.abort(state, err)
	}

	state.Phase = zipimport.PhaseDone
	state.FinishedAt = s.now()
	s.logger.Verbose("run %s finished in %s", state.RunID, state.FinishedAt.Sub(state.StartedAt).Round(time.Millisecond))
	return state, nil
}

func (s *ImportService) abort(state *zipimport.RunState, err error) (*zipimport.RunState, error) {
	phase := state.Phase
	state.AbortedIn = phase
	state.Phase = zipimport.PhaseAborted
	state.FinishedAt = s.now()
	return state, fmt.Errorf("%s: %w", phase, err)
}

// stream handles the source one line at a time, in file order.
func (s *ImportService) stream(ctx context.Context, snk zipimport.Sink, cfg zipimport.ImportConfig, state *zipimport.RunState) error {
	r, err := source.Open(s.fsys, cfg.SourcePath)
	if err != nil {
		return err
	}
	defer r.Close()

	filter := record.Filter{Threshold: state.CurrentYearMonth}
	batch := newBatcher(snk, cfg.BatchSize, state)

	for r.Scan() {
		line := r.Line()
		code, err := s.handle(ctx, line, filter, snk, batch, cfg, state)
		if err != nil {
			return err
		}
		state.Processed++
		s.printProgress(code, state)
	}
	if err := r.Err(); err != nil {
		return err
	}

	if cfg.Mode == zipimport.ModeBatch {
		return batch.flush(ctx)
	}
	return nil
}

// handle parses, filters and persists one line. It returns the record code
// for the progress line, and an error only when the run must stop.
func (s *ImportService) handle(
	ctx context.Context,
	line source.Line,
	filter record.Filter,
	snk zipimport.Sink,
	batch *batcher,
	cfg zipimport.ImportConfig,
	state *zipimport.RunState,
) (string, error) {
	row, err := record.Parse(line.Text)
	if err == nil {
		var keep bool
		keep, err = filter.Keep(row)
		if err == nil && !keep {
			state.Skipped++
			return row.Code, nil
		}
	}
	if err != nil {
		if cfg.OnMalformed == zipimport.MalformedAbort {
			return "", fmt.Errorf("line %d: %w", line.Number, err)
		}
		state.Malformed++
		s.logger.Error("line %d: %v", line.Number, err)
		return record.Split(line.Text)[zipimport.FieldCode], nil
	}

	if cfg.Mode == zipimport.ModeBatch {
		return row.Code, batch.add(ctx, row)
	}

	if err := snk.InsertRow(ctx, row); err != nil {
		state.Failed++
		s.logger.Error("line %d: %v", line.Number, err)
		return row.Code, nil
	}
	state.Loaded++
	return row.Code, nil
}

func (s *ImportService) printProgress(code string, state *zipimport.RunState) {
	fmt.Fprintf(s.progress, "%s (%d/%d) %6.2f%%\n", code, state.Processed, state.TotalLines, state.Percent())
}

// batcher buffers rows for batch mode. A failed batch is fatal.
type batcher struct {
	snk   zipimport.Sink
	size  int
	rows  []zipimport.Row
	state *zipimport.RunState
}

func newBatcher(snk zipimport.Sink, size int, state *zipimport.RunState) *batcher {
	if size <= 0 {
		size = zipimport.DefaultBatchSize
	}
	return &batcher{snk: snk, size: size, rows: make([]zipimport.Row, 0, size), state: state}
}

func (b *batcher) add(ctx context.Context, row zipimport.Row) error {
	b.rows = append(b.rows, row)
	if len(b.rows) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	if err := b.snk.InsertBatch(ctx, b.rows); err != nil {
		b.state.Failed += len(b.rows)
		return err
	}
	b.state.Loaded += len(b.rows)
	b.rows = b.rows[:0]
	return nil
}
