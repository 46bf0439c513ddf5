// Package record turns cleaned source lines into importable rows and decides
// which rows are still valid.
//
// Parse splits a line into positional fields, rewrites the open-ended
// validity sentinel and widens the two katakana fields. Filter compares a
// row's end of validity against the year-month fixed at run start.
package record
