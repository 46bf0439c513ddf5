package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/upk240z/zipimport/internal/files/filesystem"
	"github.com/upk240z/zipimport/internal/logging"
	"github.com/upk240z/zipimport/internal/sink"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

const sourcePath = "/data/zip.csv"

// fakeSink records every call. Rows whose code is in failCodes are rejected.
type fakeSink struct {
	truncateErr error
	prepareErr  error
	failCodes   map[string]bool

	calls   []string
	rows    []zipimport.Row
	batches [][]zipimport.Row
	closed  bool
}

func (f *fakeSink) Truncate(ctx context.Context) error {
	f.calls = append(f.calls, "truncate")
	if f.truncateErr != nil {
		return fmt.Errorf("TRUNCATE TABLE zip: %w: %w", zipimport.ErrTruncateFailed, f.truncateErr)
	}
	f.rows = nil
	return nil
}

func (f *fakeSink) Prepare(ctx context.Context) error {
	f.calls = append(f.calls, "prepare")
	if f.prepareErr != nil {
		return fmt.Errorf("prepare insert into zip: %w: %w", zipimport.ErrPersistFailed, f.prepareErr)
	}
	return nil
}

func (f *fakeSink) InsertRow(ctx context.Context, row zipimport.Row) error {
	f.calls = append(f.calls, "insert:"+row.Code)
	if f.failCodes[row.Code] {
		return fmt.Errorf("insert code %s: %w", row.Code, zipimport.ErrPersistFailed)
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSink) InsertBatch(ctx context.Context, rows []zipimport.Row) error {
	f.calls = append(f.calls, fmt.Sprintf("batch:%d", len(rows)))
	for _, r := range rows {
		if f.failCodes[r.Code] {
			return fmt.Errorf("batch row code %s: %w", r.Code, zipimport.ErrPersistFailed)
		}
	}
	cp := append([]zipimport.Row(nil), rows...)
	f.batches = append(f.batches, cp)
	f.rows = append(f.rows, cp...)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSink) codes() []string {
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Code
	}
	return out
}

// srcLine builds a source line with the given code, end of validity and city kana.
func srcLine(code, end, cityKana string) string {
	fields := make([]string, 45)
	fields[zipimport.FieldCode] = code
	fields[zipimport.FieldZipcode] = "1000001"
	fields[zipimport.FieldCityKana] = cityKana
	fields[zipimport.FieldCity] = "千代田区"
	fields[zipimport.FieldStartYM] = "200001"
	fields[zipimport.FieldEndYM] = end
	return strings.Join(fields, ",")
}

func sjisFile(t *testing.T, lines ...string) []byte {
	t.Helper()
	encoded, err := japanese.ShiftJIS.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	return []byte(encoded)
}

type harness struct {
	svc      *ImportService
	fsys     *filesystem.MemoryFileSystem
	sink     *fakeSink
	logger   *logging.MemoryLogger
	progress *bytes.Buffer
	opened   int
}

func newHarness(t *testing.T, content []byte) *harness {
	t.Helper()
	h := &harness{
		fsys:     filesystem.NewMemoryFileSystem(),
		sink:     &fakeSink{failCodes: map[string]bool{}},
		logger:   logging.NewMemoryLogger(),
		progress: &bytes.Buffer{},
	}
	if content != nil {
		h.fsys.AddFile(sourcePath, content)
	}
	opener := func(ctx context.Context, opts sink.Options) (zipimport.Sink, error) {
		h.opened++
		return h.sink, nil
	}
	h.svc = NewImportService(opener, h.fsys, h.logger, h.progress).
		WithClock(func() time.Time { return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.Local) })
	return h
}

func rowConfig() zipimport.ImportConfig {
	return zipimport.ImportConfig{
		SourcePath:       sourcePath,
		ConnectionString: "sqlite://:memory:",
		Table:            "zip",
		Mode:             zipimport.ModeRow,
		BatchSize:        zipimport.DefaultBatchSize,
		OnMalformed:      zipimport.MalformedAbort,
	}
}

func TestImport_LoadsValidRecords(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "000000", "ﾁﾖﾀﾞｸ"),
		srcLine("13102", "202312", "ﾁﾕｳｵｳｸ"),
		srcLine("13103", "202401", "ﾐﾅﾄｸ"),
	))

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	assert.Equal(t, zipimport.PhaseDone, state.Phase)
	assert.Equal(t, 3, state.TotalLines)
	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, 2, state.Loaded)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 202401, state.CurrentYearMonth)

	require.Len(t, h.sink.rows, 2)
	assert.Equal(t, "999999", h.sink.rows[0].EndYM)
	assert.Equal(t, "チヨダク", h.sink.rows[0].CityKana)
	assert.Equal(t, "千代田区", h.sink.rows[0].City)
	assert.Equal(t, "13103", h.sink.rows[1].Code)

	assert.Equal(t, []string{"truncate", "prepare", "insert:13101", "insert:13103"}, h.sink.calls)
	assert.True(t, h.sink.closed)
	assert.True(t, h.logger.Contains(logging.LevelInfo, "total rows: 3"))
}

func TestImport_ProgressLines(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		srcLine("13102", "199912", ""),
		srcLine("13103", "999999", ""),
	))

	_, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	assert.Equal(t,
		"13101 (1/3)  33.33%\n"+
			"13102 (2/3)  66.67%\n"+
			"13103 (3/3) 100.00%\n",
		h.progress.String())
}

func TestImport_ProcessedNeverExceedsTotal(t *testing.T) {
	lines := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		end := "999999"
		if i%3 == 0 {
			end = "201001"
		}
		lines = append(lines, srcLine(fmt.Sprintf("%05d", i), end, "ｱ"))
	}
	h := newHarness(t, sjisFile(t, lines...))

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	progress := strings.Split(strings.TrimSpace(h.progress.String()), "\n")
	require.Len(t, progress, 50)
	for i, p := range progress {
		assert.Contains(t, p, fmt.Sprintf("(%d/50)", i+1))
	}
	assert.Equal(t, state.TotalLines, state.Processed)
	assert.Equal(t, state.Processed, state.Loaded+state.Skipped)
}

func TestImport_TruncateFailureStopsBeforeCounting(t *testing.T) {
	h := newHarness(t, sjisFile(t, srcLine("13101", "999999", "")))
	h.sink.truncateErr = errors.New("permission denied for table zip")

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrTruncateFailed)
	assert.Equal(t, zipimport.PhaseAborted, state.Phase)
	assert.Zero(t, state.TotalLines)
	assert.Zero(t, state.Processed)

	// CheckReadable opened the file once; counting and streaming never did.
	assert.Equal(t, 1, h.fsys.Opens(sourcePath))
	assert.Empty(t, h.progress.String())
	assert.False(t, h.logger.Contains(logging.LevelInfo, "total rows"))
	assert.Equal(t, []string{"truncate"}, h.sink.calls)
	assert.Equal(t, zipimport.PhaseLoading, state.AbortedIn)
	assert.False(t, state.Streamed())
}

func TestImport_PrepareFailureAbortsBeforeCounting(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		srcLine("13102", "999999", ""),
	))
	h.sink.prepareErr = errors.New("table zip has no column named chome")

	for _, mode := range []zipimport.Mode{zipimport.ModeRow, zipimport.ModeBatch} {
		t.Run(string(mode), func(t *testing.T) {
			h.sink.calls = nil
			h.progress.Reset()
			cfg := rowConfig()
			cfg.Mode = mode

			state, err := h.svc.Import(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, zipimport.ErrPersistFailed)
			assert.Equal(t, zipimport.ExitFailure, zipimport.ExitCodeForError(err))
			assert.Equal(t, zipimport.PhaseAborted, state.Phase)
			assert.Equal(t, zipimport.PhaseLoading, state.AbortedIn)
			assert.Zero(t, state.TotalLines)
			assert.Zero(t, state.Failed)
			assert.Equal(t, []string{"truncate", "prepare"}, h.sink.calls)
			assert.Empty(t, h.progress.String())
		})
	}
	assert.False(t, h.logger.Contains(logging.LevelInfo, "total rows"))
}

func TestImport_ThresholdFixedAcrossMonthBoundary(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "202401", ""),
		srcLine("13102", "202312", ""),
	))
	calls := 0
	h.svc.WithClock(func() time.Time {
		calls++
		if calls == 1 {
			return time.Date(2024, time.January, 31, 23, 59, 0, 0, time.Local)
		}
		return time.Date(2024, time.February, 1, 0, 0, 1, 0, time.Local)
	})

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	assert.Equal(t, 202401, state.CurrentYearMonth)
	assert.Equal(t, []string{"13101"}, h.sink.codes())
	assert.Equal(t, 1, state.Skipped)
	assert.True(t, state.FinishedAt.After(state.StartedAt))
}

func TestImport_MissingSourceTouchesNothing(t *testing.T) {
	h := newHarness(t, nil)

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrSourceUnreadable)
	assert.Equal(t, zipimport.PhaseAborted, state.Phase)
	assert.Empty(t, h.sink.calls, "destination must not be truncated")
}

func TestImport_InvalidConfigFailsBeforeConnecting(t *testing.T) {
	h := newHarness(t, sjisFile(t, srcLine("13101", "999999", "")))

	cfg := rowConfig()
	cfg.ConnectionString = ""
	cfg.Table = ""

	_, err := h.svc.Import(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrInvalidConfig)
	assert.Zero(t, h.opened)
	assert.Zero(t, h.fsys.Opens(sourcePath))
}

func TestImport_SinkOpenFailure(t *testing.T) {
	h := newHarness(t, sjisFile(t, srcLine("13101", "999999", "")))
	h.svc.openSink = func(ctx context.Context, opts sink.Options) (zipimport.Sink, error) {
		return nil, fmt.Errorf("dial: %w", zipimport.ErrConnectionFailed)
	}

	state, err := h.svc.Import(context.Background(), rowConfig())
	assert.ErrorIs(t, err, zipimport.ErrConnectionFailed)
	assert.Equal(t, zipimport.PhaseAborted, state.Phase)
	assert.Zero(t, h.fsys.Opens(sourcePath))
}

func TestImport_SinkOptions(t *testing.T) {
	h := newHarness(t, sjisFile(t, srcLine("13101", "999999", "")))
	var got sink.Options
	h.svc.openSink = func(ctx context.Context, opts sink.Options) (zipimport.Sink, error) {
		got = opts
		return h.sink, nil
	}

	cfg := rowConfig()
	cfg.Table = "geo.zip"
	cfg.Auth = zipimport.AuthConfig{Method: zipimport.AuthMethodAWSIAM, AWSRegion: "ap-northeast-1"}
	state, err := h.svc.Import(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "sqlite://:memory:", got.ConnectionString)
	assert.Equal(t, "geo.zip", got.Table)
	assert.Equal(t, cfg.Auth, got.Auth)
	assert.Equal(t, "zipimport-"+state.RunID.String()[:8], got.AppName)
	assert.NotNil(t, got.Logger)
}

func TestImport_MalformedAbortsByDefault(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		"13102,too,few,fields",
		srcLine("13103", "999999", ""),
	))

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, zipimport.PhaseAborted, state.Phase)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, zipimport.PhaseStreaming, state.AbortedIn)
	assert.True(t, state.Streamed())
	assert.Equal(t, []string{"13101"}, h.sink.codes())
}

func TestImport_NonNumericEndIsMalformed(t *testing.T) {
	h := newHarness(t, sjisFile(t, srcLine("13101", "20XX01", "")))

	_, err := h.svc.Import(context.Background(), rowConfig())
	assert.ErrorIs(t, err, zipimport.ErrMalformedRecord)
	assert.Empty(t, h.sink.rows)
}

func TestImport_MalformedSkipPolicy(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		"13102,too,few,fields",
		srcLine("13103", "abc", ""),
		srcLine("13104", "999999", ""),
	))

	cfg := rowConfig()
	cfg.OnMalformed = zipimport.MalformedSkip
	state, err := h.svc.Import(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, state.Malformed)
	assert.Equal(t, 4, state.Processed)
	assert.Equal(t, []string{"13101", "13104"}, h.sink.codes())
	assert.True(t, h.logger.Contains(logging.LevelError, "line 2:"))
	assert.True(t, h.logger.Contains(logging.LevelError, "line 3:"))
	assert.Contains(t, h.progress.String(), "13102 (2/4)")
}

func TestImport_RowModeFailureContinues(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		srcLine("13102", "999999", ""),
		srcLine("13103", "999999", ""),
	))
	h.sink.failCodes["13102"] = true

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	assert.Equal(t, zipimport.PhaseDone, state.Phase)
	assert.Equal(t, 1, state.Failed)
	assert.Equal(t, 2, state.Loaded)
	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, []string{"13101", "13103"}, h.sink.codes())
	assert.True(t, h.logger.Contains(logging.LevelError, "line 2"))
}

func TestImport_BatchMode(t *testing.T) {
	lines := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		lines = append(lines, srcLine(fmt.Sprintf("%05d", i), "999999", ""))
	}
	lines = append(lines, srcLine("99999", "200001", ""))
	h := newHarness(t, sjisFile(t, lines...))

	cfg := rowConfig()
	cfg.Mode = zipimport.ModeBatch
	cfg.BatchSize = 3
	state, err := h.svc.Import(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"truncate", "prepare", "batch:3", "batch:3", "batch:1"}, h.sink.calls)
	assert.Equal(t, 7, state.Loaded)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 8, state.Processed)
	assert.Equal(t, []string{"00001", "00002", "00003", "00004", "00005", "00006", "00007"}, h.sink.codes())
}

func TestImport_BatchFailureAborts(t *testing.T) {
	lines := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		lines = append(lines, srcLine(fmt.Sprintf("%05d", i), "999999", ""))
	}
	h := newHarness(t, sjisFile(t, lines...))
	h.sink.failCodes["00005"] = true

	cfg := rowConfig()
	cfg.Mode = zipimport.ModeBatch
	cfg.BatchSize = 2
	state, err := h.svc.Import(context.Background(), cfg)
	require.Error(t, err)

	assert.ErrorIs(t, err, zipimport.ErrPersistFailed)
	assert.Equal(t, zipimport.PhaseAborted, state.Phase)
	assert.Equal(t, 4, state.Loaded)
	assert.Equal(t, 2, state.Failed)
	assert.Equal(t, []string{"truncate", "prepare", "batch:2", "batch:2", "batch:2"}, h.sink.calls)
	assert.True(t, h.sink.closed)
}

func TestImport_RerunIsIdempotent(t *testing.T) {
	h := newHarness(t, sjisFile(t,
		srcLine("13101", "999999", ""),
		srcLine("13102", "202312", ""),
		srcLine("13103", "202402", ""),
	))

	_, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)
	first := h.sink.codes()

	_, err = h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)

	assert.Equal(t, first, h.sink.codes())
	assert.Equal(t, []string{"13101", "13103"}, h.sink.codes())
}

func TestImport_CRLFSource(t *testing.T) {
	content := sjisFile(t, srcLine("13101", "999999", "ｼﾔﾗ"))
	content = bytes.ReplaceAll(content, []byte("\n"), []byte("\r\n"))
	h := newHarness(t, content)

	_, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)
	require.Len(t, h.sink.rows, 1)
	assert.Equal(t, "999999", h.sink.rows[0].EndYM)
	assert.Equal(t, "シヤラ", h.sink.rows[0].CityKana)
}

func TestImport_EmptySource(t *testing.T) {
	h := newHarness(t, []byte{})

	state, err := h.svc.Import(context.Background(), rowConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, state.TotalLines)
	assert.Equal(t, []string{"truncate", "prepare"}, h.sink.calls)
	assert.Empty(t, h.progress.String())
}

func TestNewImportService_PanicsOnNil(t *testing.T) {
	opener := func(ctx context.Context, opts sink.Options) (zipimport.Sink, error) { return nil, nil }
	fsys := filesystem.NewMemoryFileSystem()
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewImportService(nil, fsys, logger, &bytes.Buffer{}) })
	assert.Panics(t, func() { NewImportService(opener, nil, logger, &bytes.Buffer{}) })
	assert.Panics(t, func() { NewImportService(opener, fsys, nil, &bytes.Buffer{}) })
	assert.Panics(t, func() { NewImportService(opener, fsys, logger, nil) })
}
