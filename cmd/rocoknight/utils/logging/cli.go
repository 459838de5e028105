// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"log/slog"

	"github.com/pterm/pterm"
)

type CliPtermHandler struct {
	pterm.SlogHandler
}

// NewCliHandler creates a new CLI log handler based on pterm package.
// The pterm log level is derived from the logger level at creation time.
func NewCliHandler() HandlerBuilder {
	return func(levelVar *slog.LevelVar) SlogHandler {
		logger := pterm.DefaultLogger.
			WithLevel(MapLogLevel(levelVar.Level())).
			WithMaxWidth(pterm.GetTerminalWidth())
		handler := pterm.NewSlogHandler(logger)

		return &CliPtermHandler{
			SlogHandler: *handler,
		}
	}
}

// MapLogLevel maps slog levels to the closest pterm level
func MapLogLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level > slog.LevelError:
		return pterm.LogLevelFatal
	case level == slog.LevelError:
		return pterm.LogLevelError
	case level >= slog.LevelWarn:
		return pterm.LogLevelWarn
	case level >= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level >= slog.LevelDebug:
		return pterm.LogLevelDebug
	default:
		return pterm.LogLevelTrace
	}
}

// Flush does nothing
func (h *CliPtermHandler) Flush() { /*empty*/ }

// Close does nothing
func (h *CliPtermHandler) Close() { /*empty*/ }
