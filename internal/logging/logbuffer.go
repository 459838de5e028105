// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type BufferConfig struct {
	Limit     uint
	FlushFunc func(buffer []string)
}

type LogBuffer struct {
	buffer []string
	config BufferConfig
	lock   sync.Mutex
}

func NewLogBuffer(config BufferConfig) (*LogBuffer, error) {
	if config.Limit == 0 {
		return nil, errors.New("buffer limit must be greater than 0")
	}
	if config.FlushFunc == nil {
		return nil, errors.New("flush function must not be nil")
	}

	return &LogBuffer{
		config: config,
	}, nil
}

func (e *LogBuffer) Log(line string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.buffer = append(e.buffer, line)

	if len(e.buffer) >= int(e.config.Limit) {
		e.flush()
	}
}

func (e *LogBuffer) Flush() {
	e.lock.Lock()
	defer e.lock.Unlock()

	if len(e.buffer) > 0 {
		e.flush()
	}
}

// FlushPeriodically flushes pending lines every interval until the context is done.
// A final flush is performed on exit.
func (e *LogBuffer) FlushPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Flush()
			return
		case <-ticker.C:
			e.Flush()
		}
	}
}

// flush must not log through slog: the buffer may itself be fed by a slog handler.
func (e *LogBuffer) flush() {
	lines := e.buffer
	e.buffer = nil

	e.config.FlushFunc(lines)
}

// BufferHandler is a slog handler feeding formatted records into a LogBuffer.
type BufferHandler struct {
	buffer  *LogBuffer
	handler slog.Handler
}

// NewBufferHandler creates a handler that renders records as text lines and appends them to the given buffer.
func NewBufferHandler(buffer *LogBuffer, level slog.Leveler) *BufferHandler {
	writer := &lineWriter{buffer: buffer}
	options := &slog.HandlerOptions{Level: level, ReplaceAttr: ShortenSourceAttribute}

	return &BufferHandler{
		buffer:  buffer,
		handler: slog.NewTextHandler(writer, options),
	}
}

func (h *BufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *BufferHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.handler.Handle(ctx, record)
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{buffer: h.buffer, handler: h.handler.WithAttrs(attrs)}
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{buffer: h.buffer, handler: h.handler.WithGroup(name)}
}

func (h *BufferHandler) Flush() {
	h.buffer.Flush()
}

// Close does nothing
func (h *BufferHandler) Close() { /*empty*/ }

type lineWriter struct {
	buffer *LogBuffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	line := string(p)
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	w.buffer.Log(line)
	return len(p), nil
}
