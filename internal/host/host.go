// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName  = "RocoKnight"
	logsDirName = "logs"

	localAppDataEnvVar = "LOCALAPPDATA"
)

// AppDataDir returns the per-user data directory of the launcher, i.e. '%LOCALAPPDATA%\RocoKnight'.
// Outside of Windows (or when the variable is not set) the user cache dir is used instead.
func AppDataDir() (string, error) {
	return appDataDir(os.Getenv, os.UserCacheDir)
}

// LogDir returns the directory holding the launcher's log files.
func LogDir() (string, error) {
	dir, err := AppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logsDirName), nil
}

// ResolveTildePrefix replaces the leading tilde ('~') in the given path with the current user's home directory.
func ResolveTildePrefix(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user home dir: %w", err)
	}
	return filepath.Clean(strings.Replace(path, "~", homeDir, 1)), nil
}

func appDataDir(getenv func(string) string, fallback func() (string, error)) (string, error) {
	if base := getenv(localAppDataEnvVar); base != "" {
		return filepath.Join(base, appDirName), nil
	}

	base, err := fallback()
	if err != nil {
		return "", fmt.Errorf("failed to determine app data dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}
