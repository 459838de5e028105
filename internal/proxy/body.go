// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package proxy

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html/charset"
)

// decodeBody decompresses and converts the raw body to UTF-8, reading at most limit bytes of the result
func decodeBody(raw []byte, contentEncoding, contentType string, limit int) ([]byte, error) {
	var reader io.Reader = bytes.NewReader(raw)

	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
	case "gzip", "x-gzip":
		gzipReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	default:
		return nil, fmt.Errorf("unsupported content encoding '%s'", contentEncoding)
	}

	utf8Reader, err := charset.NewReader(reader, contentType)
	if err != nil {
		return nil, fmt.Errorf("could not decode charset of '%s': %w", contentType, err)
	}

	return io.ReadAll(io.LimitReader(utf8Reader, int64(limit)))
}
