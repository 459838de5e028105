// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/siemens-healthineers/rocoknight/internal/host"
	bos "github.com/siemens-healthineers/rocoknight/internal/os"
)

const logFileName = "rocoknight.log"

func SetVerbosity(verbosity string, levelVar *slog.LevelVar) error {
	level, err := parseLevel(verbosity)
	if err != nil {
		return err
	}

	levelVar.Set(level)

	slog.Info("logger level set", "level", level)

	return nil
}

// GlobalLogFilePath returns the path of the launcher's main log file.
// Falls back to the temp dir if no per-user data dir can be determined.
func GlobalLogFilePath() string {
	dir, err := host.LogDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "RocoKnight", "logs")
	}
	return LogFilePath(dir)
}

// LogFilePath returns the path of the launcher's main log file in the given dir
func LogFilePath(dir string) string {
	return filepath.Join(dir, logFileName)
}

func LevelToLowerString(level slog.Level) string {
	return strings.ToLower(level.String())
}

func ShortenSourceAttribute(_ []string, attribute slog.Attr) slog.Attr {
	if attribute.Key == slog.SourceKey {
		source, ok := attribute.Value.Any().(*slog.Source)
		if ok && source != nil {
			source.File = filepath.Base(source.File)
		}
	}
	return attribute
}

func parseLevel(input string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(input)); err != nil {
		parsedLevel, intErr := strconv.Atoi(input)
		if intErr != nil {
			return level, fmt.Errorf("cannot convert '%s' to log level: %w", input, errors.Join(err, intErr))
		}
		level = slog.Level(parsedLevel)
	}

	return level, nil
}

// InitializeLogFile creates the log directory and file if not existing
// Returns the log file handle
// path - The log file path
func InitializeLogFile(path string) *os.File {
	dir := filepath.Dir(path)

	if err := bos.CreateDirIfNotExisting(dir); err != nil {
		panic(err)
	}

	logFile, err := os.OpenFile(
		path,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		os.ModePerm,
	)
	if err != nil {
		panic(err)
	}

	return logFile
}

// TrimLogFile keeps the log file below maxSize by dropping its oldest trimSize bytes.
// Meant to run once at startup before the file is opened for appending.
func TrimLogFile(path string, maxSize, trimSize int64) error {
	if maxSize <= 0 || trimSize <= 0 {
		return nil
	}

	trimmed, err := bos.TrimFileHead(path, maxSize, trimSize)
	if err != nil {
		return fmt.Errorf("could not trim log file: %w", err)
	}
	if trimmed {
		slog.Debug("log file trimmed", "path", path, "max-size", maxSize)
	}
	return nil
}
