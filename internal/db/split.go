package db

import (
	"strings"
)

// SplitStatements splits input on semicolons that are outside string
// literals, quoted identifiers, dollar-quoted bodies and comments. Empty
// statements are dropped.
func SplitStatements(query string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			// E'...' strings honour backslash escapes
			escapes := i > 0 && (query[i-1] == 'E' || query[i-1] == 'e')
			end := scanQuoted(query, i, '\'', escapes)
			current.WriteString(query[i:end])
			i = end - 1
		case c == '"':
			end := scanQuoted(query, i, '"', false)
			current.WriteString(query[i:end])
			i = end - 1
		case c == '$':
			if tag, ok := dollarTag(query[i:]); ok {
				end := len(query)
				if j := strings.Index(query[i+len(tag):], tag); j >= 0 {
					end = i + len(tag) + j + len(tag)
				}
				current.WriteString(query[i:end])
				i = end - 1
			} else {
				current.WriteByte(c)
			}
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := len(query)
			if j := strings.IndexByte(query[i:], '\n'); j >= 0 {
				end = i + j
			}
			current.WriteString(query[i:end])
			i = end - 1
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := len(query)
			if j := strings.Index(query[i+2:], "*/"); j >= 0 {
				end = i + 2 + j + 2
			}
			current.WriteString(query[i:end])
			i = end - 1
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return statements
}

// scanQuoted returns the index just past the literal opening at start.
// A doubled quote is an escaped quote.
func scanQuoted(s string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

// dollarTag recognizes $$ or $tag$ at the start of s
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		isIdent := c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || (i > 1 && c >= '0' && c <= '9')
		if !isIdent {
			return "", false
		}
	}
	return "", false
}
