package kconf

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Unescape decodes the KConfig escaping grammar.
//
// It never fails: unknown escapes are kept verbatim, an invalid "\x" sequence
// is kept as the two characters `\x`, and a trailing lone backslash is kept.
// "\;" and "\," are list separators and pass through undecoded.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			b.WriteByte('\\')
			break
		}

		i++
		switch next := s[i]; next {
		case 's':
			b.WriteByte(' ')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case 'x':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteRune(rune(unhex(s[i+1])<<4 | unhex(s[i+2])))
				i += 2
			} else {
				b.WriteString(`\x`)
			}
		default:
			// Covers "\;" and "\," as well as unknown escapes.
			b.WriteByte('\\')
			b.WriteByte(next)
		}
	}

	return b.String()
}

// Escape encodes s so that it can be written as a KConfig key, value or group
// name. Unescape(Escape(s)) == s for every s.
func Escape(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)

	last := len(s) - 1
	if r, size := utf8.DecodeLastRuneInString(s); r == ' ' {
		last = len(s) - size
	}

	var buf [utf8.UTFMax]byte
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == ' ' && (i == 0 || i == last):
			b.WriteString(`\s`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '=' || r == '[' || r == ']' || r < 32:
			n := utf8.EncodeRune(buf[:], r)
			for _, by := range buf[:n] {
				fmt.Fprintf(&b, `\x%02x`, by)
			}
		default:
			// Source bytes are copied so invalid UTF-8 survives.
			b.WriteString(s[i : i+size])
		}
		i += size
	}

	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
