// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

const sampleLimit = 600

var sensitiveKeys = []string{"angel_uin", "angel_key", "skey", "pskey"}

// Redact replaces the values of the session tokens with '*', e.g. "angel_key=abc&x=1" becomes "angel_key=*&x=1".
// A value ends at '&', a quote or an angle bracket.
func Redact(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(text); {
		key, found := lo.Find(sensitiveKeys, func(key string) bool {
			end := i + len(key)
			return end < len(text) && text[end] == '=' && strings.HasPrefix(text[i:], key)
		})
		if !found {
			out.WriteByte(text[i])
			i++
			continue
		}

		out.WriteString(key)
		out.WriteString("=*")

		i += len(key) + 1
		for i < len(text) && !isValueEnd(text[i]) {
			i++
		}
	}
	return out.String()
}

// Sample returns a loggable excerpt: line breaks flattened, cut to 600 bytes, tokens redacted
func Sample(text string) string {
	sample := strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	if len(sample) > sampleLimit {
		cut := sampleLimit
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
	}
	return Redact(sample)
}

// RedactURL drops the whole query, e.g. for logging the observed login endpoint
func RedactURL(rawURL string) string {
	base, _, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}
	return base + "?REDACTED"
}

// RedactAssetURL keeps the query but masks its tokens
func RedactAssetURL(rawURL string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}
	return base + "?" + Redact(query)
}

func isValueEnd(ch byte) bool {
	return ch == '&' || ch == '"' || ch == '\'' || ch == '<' || ch == '>'
}
