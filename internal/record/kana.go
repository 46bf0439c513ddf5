package record

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// soundMarks maps every form of the voiced and semi-voiced marks to the
// combining mark NFC joins with a base letter.
var soundMarks = map[rune]rune{
	'\uFF9E': '\u3099', // halfwidth ﾞ
	'\uFF9F': '\u309A', // halfwidth ﾟ
	'\u309B': '\u3099', // spacing ゛
	'\u309C': '\u309A', // spacing ゜
	'\u3099': '\u3099',
	'\u309A': '\u309A',
}

// spacingMark is written for a mark that has nothing to join.
var spacingMark = map[rune]rune{
	'\u3099': '\u309B',
	'\u309A': '\u309C',
}

// Widen converts half-width text to full-width.
//
// width.Widen maps each narrow rune to its wide form (ｼ → シ, A → Ａ). A
// sound mark that follows a letter it can voice is then joined into it
// (ｶﾞ → ガ); any other mark is kept as the spacing ゛ or ゜. Letter size is
// preserved: ﾔ becomes ヤ, not ャ.
func Widen(s string) string {
	if s == "" {
		return s
	}
	return joinSoundMarks(width.Widen.String(s))
}

func joinSoundMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune = -1
	for _, r := range s {
		comb, isMark := soundMarks[r]
		if !isMark {
			if prev >= 0 {
				b.WriteRune(prev)
			}
			prev = r
			continue
		}
		if prev >= 0 {
			if c := norm.NFC.String(string([]rune{prev, comb})); utf8.RuneCountInString(c) == 1 {
				prev, _ = utf8.DecodeRuneInString(c)
				continue
			}
			b.WriteRune(prev)
		}
		prev = -1
		b.WriteRune(spacingMark[comb])
	}
	if prev >= 0 {
		b.WriteRune(prev)
	}
	return b.String()
}
