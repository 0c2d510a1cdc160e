package engine

import "strings"

// preprocessSource rewrites frep Lisp source into something zygomys reads:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keyword
//     arguments never collide with user bindings.
//  2. kebab-case identifiers become snake_case (rounded-box -> rounded_box);
//     zygomys would otherwise read the hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	s := source
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(s, i)
			out.WriteString(s[i:j])
			i = j
		case c == ';':
			out.WriteString("//")
			for i < len(s) && s[i] == ';' {
				i++
			}
			for i < len(s) && s[i] != '\n' {
				out.WriteByte(s[i])
				i++
			}
		case c == ':' && i+1 < len(s) && s[i+1] == '=':
			out.WriteString(":=")
			i += 2
		case c == ':' && i+1 < len(s) && isLetter(s[i+1]):
			j := i + 1
			for j < len(s) && isKWChar(s[j]) {
				j++
			}
			out.WriteByte('"')
			out.WriteString(kwPrefix)
			out.WriteString(s[i+1 : j])
			out.WriteByte('"')
			i = j
		case c == '-' && i > 0 && i+1 < len(s) && isIdentChar(s[i-1]) && isLetter(s[i+1]):
			out.WriteByte('_')
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal starting at i.
// Backslash escapes apply inside double quotes only.
func skipString(s string, i int) int {
	quote := s[i]
	j := i + 1
	for j < len(s) && s[j] != quote {
		if quote == '"' && s[j] == '\\' && j+1 < len(s) {
			j++
		}
		j++
	}
	if j < len(s) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isKWChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
