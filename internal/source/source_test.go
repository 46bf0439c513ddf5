package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/upk240z/zipimport/internal/files/filesystem"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

func sjis(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(b)
}

func readAll(t *testing.T, r *LineReader) []Line {
	t.Helper()
	var lines []Line
	for r.Scan() {
		lines = append(lines, r.Line())
	}
	require.NoError(t, r.Err())
	return lines
}

func TestLineReader_DecodesShiftJIS(t *testing.T) {
	content := sjis(t, "13101,\"100  \",\"1000000\",\"ﾄｳｷｮｳﾄ\",\"東京都\"\r\n01101,千代田区\r\n")

	lines := readAll(t, NewLineReader(strings.NewReader(string(content))))

	require.Len(t, lines, 2)
	assert.Equal(t, Line{Number: 1, Text: `13101,"100","1000000","ﾄｳｷｮｳﾄ","東京都"`}, lines[0])
	assert.Equal(t, Line{Number: 2, Text: "01101,千代田区"}, lines[1])
}

func TestLineReader_RemovesIdeographicSpaces(t *testing.T) {
	content := sjis(t, "  東京都　千代田区 丸の内　\n")

	lines := readAll(t, NewLineReader(strings.NewReader(string(content))))

	require.Len(t, lines, 1)
	assert.Equal(t, "東京都千代田区丸の内", lines[0].Text)
}

func TestLineReader_MalformedBytesAreReplaced(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"truncated lead byte", []byte{'a', ',', 0x82}},
		{"invalid single byte", []byte{'a', ',', 0x80, 'b'}},
		{"invalid trail byte", []byte{'a', ',', 0x81, 0x7f, 'b'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(string(tt.raw) + "\nnext\n"))

			lines := readAll(t, r)
			require.Len(t, lines, 2, "a bad sequence must not stop the stream")
			assert.True(t, strings.HasPrefix(lines[0].Text, "a,"))
			assert.Contains(t, lines[0].Text, "\uFFFD")
			assert.Equal(t, "next", lines[1].Text)
		})
	}
}

func TestLineReader_LastLineWithoutNewline(t *testing.T) {
	lines := readAll(t, NewLineReader(strings.NewReader("a\nb")))

	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[1].Text)
}

func TestLineReader_KeepsBlankLines(t *testing.T) {
	lines := readAll(t, NewLineReader(strings.NewReader("a\n\r\nb\n")))

	require.Len(t, lines, 3)
	assert.Equal(t, "", lines[1].Text)
	assert.Equal(t, 3, lines[2].Number)
}

func TestCountLines_MatchesReader(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"a\n",
		"a\nb",
		"a\r\nb\r\n",
		"a\n\nb\n",
	}

	for _, in := range inputs {
		mfs := filesystem.NewMemoryFileSystem()
		mfs.AddFile("src.csv", []byte(in))

		n, err := CountLines(mfs, "src.csv")
		require.NoError(t, err)

		r, err := Open(mfs, "src.csv")
		require.NoError(t, err)
		lines := readAll(t, r)
		require.NoError(t, r.Close())

		assert.Equal(t, len(lines), n, "input %q", in)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem()

	_, err := Open(mfs, "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, zipimport.ErrSourceUnreadable))

	_, err = CountLines(mfs, "missing.csv")
	assert.True(t, errors.Is(err, zipimport.ErrSourceUnreadable))

	err = CheckReadable(mfs, "missing.csv")
	assert.True(t, errors.Is(err, zipimport.ErrSourceUnreadable))
}

func TestLineReader_LineTooLong(t *testing.T) {
	long := strings.Repeat("x", MaxLineBytes+1)
	r := NewLineReader(strings.NewReader(long + "\n"))

	for r.Scan() {
	}
	err := r.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, zipimport.ErrSourceUnreadable))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a,b", Clean(" a , b \r"))
	assert.Equal(t, "ab", Clean("a　b"))
	assert.Equal(t, "", Clean("\t 　 \r"))
}
