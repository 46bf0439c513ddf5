// Package source reads the postal-code reference file.
//
// The file is Shift-JIS (Windows-31J) text with one record per LF-terminated
// line. A LineReader yields each line decoded to UTF-8 with ASCII and
// ideographic spaces removed. Malformed byte sequences decode to U+FFFD;
// decoding never fails a line.
//
// Reading is single pass. CountLines performs the separate counting pass
// used for progress reporting; it splits lines exactly like LineReader.
package source
