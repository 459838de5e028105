// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"log/slog"

	bl "github.com/siemens-healthineers/rocoknight/internal/logging"

	slogmulti "github.com/samber/slog-multi"
)

// SlogHandler is a slog handler owning resources that must be flushed and released
type SlogHandler interface {
	slog.Handler
	Flush()
	Close()
}

// HandlerBuilder creates a handler bound to the logger's level
type HandlerBuilder func(levelVar *slog.LevelVar) SlogHandler

type Slogger struct {
	Logger   *slog.Logger
	LevelVar *slog.LevelVar
	handlers []SlogHandler
}

// NewSlogger wraps the current default logger; call SetHandlers to replace its handlers
func NewSlogger() *Slogger {
	return &Slogger{
		Logger:   slog.Default(),
		LevelVar: new(slog.LevelVar),
	}
}

// SetHandlers flushes and closes the current handlers and creates a new logger fanning out to the given ones
func (s *Slogger) SetHandlers(builders ...HandlerBuilder) *Slogger {
	s.Flush()
	s.Close()

	s.handlers = make([]SlogHandler, 0, len(builders))
	slogHandlers := make([]slog.Handler, 0, len(builders))

	for _, build := range builders {
		handler := build(s.LevelVar)
		s.handlers = append(s.handlers, handler)
		slogHandlers = append(slogHandlers, handler)
	}

	s.Logger = slog.New(slogmulti.Fanout(slogHandlers...))
	return s
}

func (s *Slogger) SetGlobally() *Slogger {
	slog.SetDefault(s.Logger)
	return s
}

func (s *Slogger) SetVerbosity(verbosity string) error {
	return bl.SetVerbosity(verbosity, s.LevelVar)
}

// LogFilePath returns the path of the file the logger writes to, or empty if it logs to no file
func (s *Slogger) LogFilePath() string {
	for _, handler := range s.handlers {
		if file, ok := handler.(*FileHandler); ok {
			return file.Path()
		}
	}
	return ""
}

func (s *Slogger) Flush() {
	for _, handler := range s.handlers {
		handler.Flush()
	}
}

func (s *Slogger) Close() {
	for _, handler := range s.handlers {
		handler.Close()
	}
}
