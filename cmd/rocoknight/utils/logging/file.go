// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	base "github.com/siemens-healthineers/rocoknight/internal/logging"
)

// FileHandler writes JSON records to the launcher's log file. Records of one launcher run
// carry its pid, since the projector restarts several times per run but the launcher does not.
type FileHandler struct {
	slog.JSONHandler
	mu      sync.Mutex
	logFile *os.File
	path    string
}

const (
	componentAttributeName = "component"
	componentName          = "rocoknight"
	pidAttributeName       = "pid"
)

// NewFileHandler initializes the log file at the given path and creates an slog handler logging to this file
func NewFileHandler(filePath string) HandlerBuilder {
	return func(levelVar *slog.LevelVar) SlogHandler {
		logFile := base.InitializeLogFile(filePath)
		options := &slog.HandlerOptions{
			Level:       levelVar,
			AddSource:   true,
			ReplaceAttr: base.ShortenSourceAttribute,
		}
		attrs := []slog.Attr{
			slog.String(componentAttributeName, componentName),
			slog.Int(pidAttributeName, os.Getpid()),
		}
		jsonHandler := slog.NewJSONHandler(logFile, options).WithAttrs(attrs).(*slog.JSONHandler)

		return &FileHandler{
			JSONHandler: *jsonHandler,
			logFile:     logFile,
			path:        filePath,
		}
	}
}

// Path returns the log file path; it stays valid after Close
func (h *FileHandler) Path() string {
	return h.path
}

// Flush syncs the log file. Failures go to stderr; the launcher keeps running without its log.
func (h *FileHandler) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.logFile == nil {
		return
	}
	if err := h.logFile.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "could not sync log file '%s': %v\n", h.logFile.Name(), err)
	}
}

// Close closes the log file; further calls do nothing
func (h *FileHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.logFile == nil {
		return
	}
	if err := h.logFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "could not close log file '%s': %v\n", h.logFile.Name(), err)
	}
	h.logFile = nil
}
