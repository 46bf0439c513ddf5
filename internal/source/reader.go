package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding"

	"github.com/upk240z/zipimport/internal/files/filesystem"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

// MaxLineBytes bounds a single source line. Reference file lines are a few
// hundred bytes.
const MaxLineBytes = 1 << 20

// Line is one decoded and cleaned source line.
type Line struct {
	Number int // 1-based
	Text   string
}

// LineReader yields decoded lines one at a time, in file order.
type LineReader struct {
	closer  io.Closer
	scanner *bufio.Scanner
	dec     *encoding.Decoder
	line    Line
	err     error
}

// Open opens path on fsys for a single decoding pass.
// The caller must Close the reader.
func Open(fsys filesystem.FileSystemProvider, path string) (*LineReader, error) {
	rc, err := fsys.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, zipimport.ErrSourceUnreadable, err)
	}
	r := NewLineReader(rc)
	r.closer = rc
	return r, nil
}

// NewLineReader decodes lines from r. Closing the LineReader does not close r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		scanner: newScanner(r),
		dec:     SourceEncoding.NewDecoder(),
	}
}

// Scan advances to the next line. It returns false at end of input or on a
// read error; Err distinguishes the two.
func (r *LineReader) Scan() bool {
	if r.err != nil || !r.scanner.Scan() {
		return false
	}
	r.line = Line{
		Number: r.line.Number + 1,
		Text:   Clean(Decode(r.dec, r.scanner.Bytes())),
	}
	return true
}

// Line returns the most recent line read by Scan.
func (r *LineReader) Line() Line {
	return r.line
}

// Err returns the first read error, wrapped with ErrSourceUnreadable.
func (r *LineReader) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("read line %d: %w: %w", r.line.Number+1, zipimport.ErrSourceUnreadable, err)
	}
	return r.err
}

// Close releases the underlying file, if Open created it.
func (r *LineReader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// CountLines counts the lines of path using the same splitting rules as
// LineReader. The file is opened, read to the end and closed.
func CountLines(fsys filesystem.FileSystemProvider, path string) (int, error) {
	rc, err := fsys.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w: %w", path, zipimport.ErrSourceUnreadable, err)
	}
	defer rc.Close()

	sc := newScanner(rc)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("count lines of %s: %w: %w", path, zipimport.ErrSourceUnreadable, err)
	}
	return n, nil
}

// CheckReadable opens and immediately closes path.
func CheckReadable(fsys filesystem.FileSystemProvider, path string) error {
	rc, err := fsys.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", path, zipimport.ErrSourceUnreadable, err)
	}
	return rc.Close()
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	sc.Split(scanLF)
	return sc
}

// scanLF splits on LF bytes only. Unlike bufio.ScanLines it keeps a
// trailing CR; Clean trims it after decoding.
func scanLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
