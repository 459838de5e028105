// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	bos "github.com/siemens-healthineers/rocoknight/internal/os"
)

const (
	DefaultPathNeedle       = "/fcgi-bin/login3"
	DefaultMaxResponseBytes = 1_500_000

	dumpFileName = "login3_dump.html"
)

// Sink accepts the asset URL. It returns false if a URL is already pending or the projector is running.
type Sink interface {
	AcceptAssetURL(assetURL string) bool
}

type Options struct {
	PathNeedle       string
	AssetBaseURL     string
	MaxResponseBytes int
	// DumpDir receives the raw response of failed extractions; empty disables dumping
	DumpDir string
	Now     func() time.Time
}

// Processor inspects login responses and hands a valid asset URL to the sink
type Processor struct {
	options Options
	sink    Sink
}

var ErrNotObserved = errors.New("response not observed")

func NewProcessor(options Options, sink Sink) *Processor {
	if options.PathNeedle == "" {
		options.PathNeedle = DefaultPathNeedle
	}
	if options.AssetBaseURL == "" {
		options.AssetBaseURL = DefaultAssetBaseURL
	}
	if options.MaxResponseBytes <= 0 {
		options.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Processor{options: options, sink: sink}
}

// Observes reports whether responses of the given URL are inspected. Only the path is matched.
func (p *Processor) Observes(rawURL string) bool {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	return strings.Contains(strings.ToLower(path), strings.ToLower(p.options.PathNeedle))
}

func (p *Processor) MaxResponseBytes() int {
	return p.options.MaxResponseBytes
}

// HandleResponse extracts, validates and hands over the asset URL.
// It returns true if the sink accepted the URL; a rejected URL is not an error.
func (p *Processor) HandleResponse(rawURL string, body []byte) (bool, error) {
	if !p.Observes(rawURL) {
		return false, ErrNotObserved
	}
	if len(body) > p.options.MaxResponseBytes {
		body = body[:p.options.MaxResponseBytes]
	}
	html := string(body)

	slog.Info("login response observed", "url", RedactURL(rawURL), "bytes", len(body))

	value, found := FindFlashVars(html)
	if !found {
		slog.Info("flashVars not found in login response", "sample", Sample(html))
		p.dump(html)
		return false, ErrNoValue
	}

	if err := Validate(value); err != nil {
		slog.Info("flashVars rejected", "error", err, "sample", Sample(value))
		p.dump(html)
		return false, err
	}

	assetURL, err := BuildAssetURL(p.options.AssetBaseURL, value, p.options.Now())
	if err != nil {
		slog.Info("could not build asset URL", "error", err)
		return false, err
	}

	slog.Info("flashVars captured", "value", Redact(value))
	slog.Info("asset URL built", "url", RedactAssetURL(assetURL))

	if !p.sink.AcceptAssetURL(assetURL) {
		slog.Debug("asset URL ignored, another one is pending or the projector is running")
		return false, nil
	}
	return true, nil
}

func (p *Processor) dump(html string) {
	if p.options.DumpDir == "" {
		return
	}

	if err := bos.CreateDirIfNotExisting(p.options.DumpDir); err != nil {
		slog.Warn("could not dump login response", "error", err)
		return
	}

	path := filepath.Join(p.options.DumpDir, dumpFileName)
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		slog.Warn("could not dump login response", "error", fmt.Errorf("writing '%s': %w", path, err))
		return
	}
	slog.Info("login response dumped", "path", path)
}
