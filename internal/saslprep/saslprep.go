// Package saslprep implements the SASLprep profile (RFC 4013) of the
// stringprep algorithm, as required for SCRAM usernames, authorization
// identities and passwords.
package saslprep

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

var errProhibited = errors.New("saslprep: prohibited code point")

// Code points mapped to nothing (RFC 3454 table B.1).
var mappedToNothing = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x00AD, 0x00AD, 1},
		{0x034F, 0x034F, 1},
		{0x1806, 0x1806, 1},
		{0x180B, 0x180D, 1},
		{0x200B, 0x200D, 1},
		{0x2060, 0x2060, 1},
		{0xFE00, 0xFE0F, 1},
		{0xFEFF, 0xFEFF, 1},
	},
}

// String applies the SASLprep profile to s. It maps non-ASCII spaces to
// ASCII space, drops "mapped to nothing" code points, and rejects
// control, private-use, non-character and surrogate code points.
func String(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", errors.New("saslprep: invalid UTF-8")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(mappedToNothing, r):
			// dropped
		case r != ' ' && unicode.Is(unicode.Zs, r):
			b.WriteRune(' ')
		case unicode.IsControl(r),
			unicode.Is(unicode.Co, r),
			utf16.IsSurrogate(r),
			isNonCharacter(r):
			return "", errProhibited
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isNonCharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	return r&0xFFFE == 0xFFFE
}
