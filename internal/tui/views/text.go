package views

import (
	"strings"
	"unicode"
)

// cleanText prepares backend text for tview cells. tcell mis-measures emoji
// sequences built from skin tone modifiers, joiners and variation selectors,
// so those are dropped and the base emoji is kept. Tabs become spaces and
// other control characters except newline are removed.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r), zeroWidth(r):
			return -1
		}
		return r
	}, s)
}

func zeroWidth(r rune) bool {
	return (r >= 0x1F3FB && r <= 0x1F3FF) ||
		r == 0x200D ||
		(r >= 0xFE00 && r <= 0xFE0F) ||
		(r >= 0xE0100 && r <= 0xE01EF)
}
