package complete

import (
	"strings"
	"unicode/utf16"
)

// delimiters end a completion token. Dots and brackets are part of it.
const delimiters = " \t\f\v+-*/&|^?@!~(=<>,;{}%)"

// Token is the text completion works on and the number of closed index
// groups it contains.
type Token struct {
	Text       string
	ArrayLevel int
}

// ExtractToken cuts line at the cursor and reduces it to the completion
// token. character is a UTF-16 offset. Inside an unterminated index the
// token restarts after the innermost open bracket. A closing bracket
// without an opening one reports false.
func ExtractToken(line string, character int) (Token, bool) {
	text := line[:byteOffset(line, character)]
	if i := strings.LastIndexAny(text, delimiters); i >= 0 {
		text = text[i+1:]
	}
	for {
		var open []int
		groups := 0
		for i := 0; i < len(text); i++ {
			switch text[i] {
			case '[':
				open = append(open, i)
			case ']':
				if len(open) == 0 {
					return Token{}, false
				}
				open = open[:len(open)-1]
				if len(open) == 0 {
					groups++
				}
			}
		}
		if len(open) == 0 {
			return Token{Text: text, ArrayLevel: groups}, true
		}
		text = text[open[len(open)-1]+1:]
	}
}

// byteOffset converts a UTF-16 offset into a byte offset of s, clamped to
// the length of s.
func byteOffset(s string, character int) int {
	units := 0
	for i, r := range s {
		if units >= character {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(s)
}

// Line returns line n (0-based) of content without its terminator.
func Line(content string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		nl := strings.IndexByte(content, '\n')
		if nl < 0 {
			return "", false
		}
		content = content[nl+1:]
	}
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[:nl]
	}
	return strings.TrimSuffix(content, "\r"), true
}
