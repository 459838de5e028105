// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package capture extracts the game's flashVars parameter blob from login responses
// and turns it into the asset URL the projector is launched with.
package capture

import (
	"strings"
)

const (
	scriptAnchor  = "function swf"
	flashVarsAttr = "flashvars"
	valueAttr     = "value"
)

// FindFlashVars searches the login response for the flashVars attribute value.
// The text after the swf script marker is searched first, then the whole document and finally
// the whole document with backslash escapes resolved, since some pages encode the markup twice.
func FindFlashVars(html string) (string, bool) {
	if start := strings.Index(html, scriptAnchor); start >= 0 {
		if value, ok := findInText(html[start:]); ok {
			return value, true
		}
	}
	if value, ok := findInText(html); ok {
		return value, true
	}
	return findInText(Unescape(html))
}

// Unescape resolves \n, \r, \t, \\, \" and \' in the whole text. Unknown escapes are kept as they are.
func Unescape(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '\\' || i+1 >= len(text) {
			out.WriteByte(ch)
			continue
		}

		i++
		switch next := text[i]; next {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case '"', '\'', '\\':
			out.WriteByte(next)
		default:
			out.WriteByte('\\')
			out.WriteByte(next)
		}
	}
	return out.String()
}

func findInText(text string) (string, bool) {
	if value, ok := extractAttrValue(text, flashVarsAttr); ok {
		return value, true
	}
	return extractParamValue(text)
}

// extractAttrValue finds `attr = "value"` (case-insensitive name, single or double quotes, optionally
// backslash-escaped quotes) and returns the value with escapes resolved.
func extractAttrValue(text string, attr string) (string, bool) {
	for i := 0; i+len(attr) < len(text); i++ {
		if !hasPrefixFold(text[i:], attr) {
			continue
		}

		j := skipSpace(text, i+len(attr))
		if j >= len(text) || text[j] != '=' {
			continue
		}
		j = skipSpace(text, j+1)
		if j >= len(text) {
			return "", false
		}

		quote := text[j]
		escapedDelimiter := false
		if quote == '\\' && j+1 < len(text) && isQuote(text[j+1]) {
			quote = text[j+1]
			escapedDelimiter = true
			j++
		}
		if !isQuote(quote) {
			continue
		}

		return readQuoted(text[j+1:], quote, escapedDelimiter)
	}
	return "", false
}

// readQuoted reads up to the closing quote. When the opening quote was escaped itself,
// the escaped quote closes the value as well. Read as a literal quote instead, the value would run
// on to the next unescaped quote and swallow the attributes that follow.
func readQuoted(text string, quote byte, escapedDelimiter bool) (string, bool) {
	var out strings.Builder
	escape := false

	for j := 0; j < len(text); j++ {
		ch := text[j]
		if escape {
			escape = false
			if escapedDelimiter && ch == quote {
				return out.String(), true
			}
			switch ch {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			default:
				out.WriteByte(ch)
			}
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if ch == quote {
			return out.String(), true
		}
		out.WriteByte(ch)
	}
	return "", false
}

// extractParamValue handles the <param name="FlashVars" value="..."> form
func extractParamValue(text string) (string, bool) {
	offset := 0
	for {
		pos := indexFold(text[offset:], flashVarsAttr)
		if pos < 0 {
			return "", false
		}
		pos += offset
		offset = pos + len(flashVarsAttr)

		if !quotedAt(text, pos, offset) {
			continue
		}

		tagStart := strings.LastIndexByte(text[:pos], '<')
		tagEnd := strings.IndexByte(text[offset:], '>')
		if tagStart < 0 || tagEnd < 0 {
			continue
		}

		if value, ok := extractAttrValue(text[tagStart:offset+tagEnd], valueAttr); ok {
			return value, true
		}
	}
}

// quotedAt reports whether text[start:end] is enclosed in (possibly escaped) quotes
func quotedAt(text string, start, end int) bool {
	if start == 0 || end >= len(text) || !isQuote(text[start-1]) {
		return false
	}
	next := text[end]
	if next == '\\' && end+1 < len(text) {
		next = text[end+1]
	}
	return isQuote(next)
}

func indexFold(text, needle string) int {
	for i := 0; i+len(needle) <= len(text); i++ {
		if hasPrefixFold(text[i:], needle) {
			return i
		}
	}
	return -1
}

// hasPrefixFold compares ASCII case-insensitively; needle must be lower case
func hasPrefixFold(text, needle string) bool {
	if len(text) < len(needle) {
		return false
	}
	for k := 0; k < len(needle); k++ {
		ch := text[k]
		if 'A' <= ch && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if ch != needle[k] {
			return false
		}
	}
	return true
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && isSpace(text[pos]) {
		pos++
	}
	return pos
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isQuote(ch byte) bool {
	return ch == '"' || ch == '\''
}
