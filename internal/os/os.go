// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package os

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	bos "os"
	"path/filepath"
)

func CreateDirIfNotExisting(path string) error {
	if PathExists(path) {
		return nil
	}
	slog.Debug("Dir not existing, creating it", "path", path)

	if err := bos.MkdirAll(path, bos.ModePerm); err != nil {
		return fmt.Errorf("could not create directory '%s': %w", path, err)
	}
	return nil
}

func ExecutableDir() (string, error) {
	exePath, err := bos.Executable()
	if err != nil {
		return "", fmt.Errorf("could not determine executable: %w", err)
	}
	return filepath.Dir(exePath), nil
}

func PathExists(path string) bool {
	_, err := bos.Stat(path)
	if err == nil {
		slog.Debug("Path exists", "path", path)
		return true
	}

	if !errors.Is(err, fs.ErrNotExist) {
		slog.Error("could not check existence of path", "path", path, "error", err)
	}
	return false
}

// FirstExistingFile returns the first of the given paths pointing to a regular file.
func FirstExistingFile(paths ...string) (string, bool) {
	for _, path := range paths {
		info, err := bos.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// TrimFileHead drops the first trimSize bytes of the file when it grew beyond maxSize.
// The cut is moved forward to the next line break so that no partial line remains.
// Returns true if the file was trimmed.
func TrimFileHead(path string, maxSize, trimSize int64) (bool, error) {
	info, err := bos.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not stat '%s': %w", path, err)
	}
	if info.Size() <= maxSize {
		return false, nil
	}

	data, err := bos.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("could not read file '%s': %w", path, err)
	}

	cut := min(trimSize, int64(len(data)))
	if i := bytes.IndexByte(data[cut:], '\n'); i >= 0 {
		cut += int64(i) + 1
	} else {
		cut = int64(len(data))
	}

	if err := bos.WriteFile(path, data[cut:], info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("could not write file '%s': %w", path, err)
	}

	slog.Debug("File trimmed", "path", path, "removed-bytes", cut)
	return true, nil
}
