// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/siemens-healthineers/rocoknight/internal/host"
	bos "github.com/siemens-healthineers/rocoknight/internal/os"
)

const ProjectorFileName = "projector.exe"

var ErrProjectorNotFound = errors.New("projector executable not found")

// ProjectorLocator resolves the projector executable, either from the configured path or
// by searching the resource dirs relative to the launcher's executable.
type ProjectorLocator struct {
	configuredPath string
	searchDirs     []string
	executableDir  func() (string, error)
	pathExists     func(string) bool
}

func NewProjectorLocator(config ProjectorConfig) *ProjectorLocator {
	return &ProjectorLocator{
		configuredPath: config.Path,
		searchDirs:     config.SearchDirs,
		executableDir:  bos.ExecutableDir,
		pathExists:     bos.PathExists,
	}
}

func (l *ProjectorLocator) ProjectorPath() (string, error) {
	if l.configuredPath != "" {
		path, err := host.ResolveTildePrefix(l.configuredPath)
		if err != nil {
			return "", err
		}
		if !l.pathExists(path) {
			return "", fmt.Errorf("%w: configured path '%s' does not exist", ErrProjectorNotFound, path)
		}
		return path, nil
	}

	baseDir, err := l.executableDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProjectorNotFound, err)
	}

	candidates := make([]string, 0, len(l.searchDirs))
	for _, dir := range l.searchDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		candidate := filepath.Join(dir, ProjectorFileName)
		if l.pathExists(candidate) {
			slog.Debug("Projector found", "path", candidate)
			return candidate, nil
		}
		candidates = append(candidates, candidate)
	}

	return "", fmt.Errorf("%w, searched: %s", ErrProjectorNotFound, strings.Join(candidates, ", "))
}
