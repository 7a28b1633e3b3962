// Package argsplit splits user supplied compiler arguments into tokens using
// shell-like quoting rules (no variable or glob expansion).
package argsplit

import (
	"strings"
	"unicode"
)

// Split tokenizes raw into arguments.
//
//   - tokens are separated by whitespace;
//   - '"' and '\'' open a quoted span, quotes are stripped from the token;
//   - '#' that starts a new word begins a comment and ends scanning,
//     '#' glued to a word is kept literally;
//   - a backslash before whitespace or '#' escapes that character;
//   - a trailing bare backslash is emitted as-is and ends scanning.
//
// Split never returns nil.
func Split(raw string) []string {
	out := make([]string, 0, 4)
	var (
		cur    strings.Builder
		inWord bool // quoted empty strings still produce a token
		quote  rune
	)
	flush := func() {
		if !inWord {
			return
		}
		out = append(out, cur.String())
		cur.Reset()
		inWord = false
	}

	rs := []rune(raw)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if quote != 0 {
			switch {
			case r == '\\' && i+1 < len(rs) && rs[i+1] == quote:
				cur.WriteRune(quote)
				i++
			case r == quote:
				quote = 0
			default:
				cur.WriteRune(r)
			}
			continue
		}

		switch {
		case r == '\\':
			if i+1 >= len(rs) {
				// вырожденный случай: одиночный обратный слеш в конце
				cur.WriteRune(r)
				inWord = true
				flush()
				return out
			}
			if next := rs[i+1]; unicode.IsSpace(next) || next == '#' {
				cur.WriteRune(next)
				inWord = true
				i++
				continue
			}
			cur.WriteRune(r)
			inWord = true
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			flush()
		case r == '#' && !inWord:
			return out
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return out
}
