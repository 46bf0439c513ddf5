package source

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// SourceEncoding is the character encoding of the reference file.
var SourceEncoding encoding.Encoding = japanese.ShiftJIS

var spaceRemover = strings.NewReplacer(" ", "", "\u3000", "")

// Decode converts one raw Shift-JIS line to UTF-8. Invalid sequences are
// replaced with U+FFFD.
func Decode(dec *encoding.Decoder, raw []byte) string {
	out, err := dec.Bytes(raw)
	if err != nil {
		// The Shift-JIS decoder substitutes instead of failing; keep the
		// line usable if a future decoder does not.
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

// Clean removes ASCII spaces and U+3000 ideographic spaces, then trims
// surrounding whitespace (including the CR of CRLF line endings).
func Clean(s string) string {
	return strings.TrimSpace(spaceRemover.Replace(s))
}
