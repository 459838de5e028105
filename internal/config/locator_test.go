// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package config

import (
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ProjectorLocator", func() {
	baseDir := filepath.Join("app", "bin")

	newLocator := func(configured string, existing ...string) *ProjectorLocator {
		locator := NewProjectorLocator(ProjectorConfig{
			Path:       configured,
			SearchDirs: []string{"resources", filepath.Join("..", "resources")},
		})
		locator.executableDir = func() (string, error) { return baseDir, nil }
		locator.pathExists = func(path string) bool {
			for _, e := range existing {
				if e == path {
					return true
				}
			}
			return false
		}
		return locator
	}

	When("a path is configured", func() {
		It("returns it if it exists", func() {
			sut := newLocator("custom.exe", "custom.exe")

			Expect(sut.ProjectorPath()).To(Equal("custom.exe"))
		})

		It("returns an error if it does not exist", func() {
			sut := newLocator("custom.exe", filepath.Join(baseDir, "resources", ProjectorFileName))

			_, err := sut.ProjectorPath()

			Expect(err).To(MatchError(ErrProjectorNotFound))
			Expect(err).To(MatchError(ContainSubstring("custom.exe")))
		})
	})

	When("no path is configured", func() {
		It("returns the first match in the search dirs", func() {
			expected := filepath.Join("app", "resources", ProjectorFileName)
			sut := newLocator("", expected)

			Expect(sut.ProjectorPath()).To(Equal(expected))
		})

		It("lists the searched paths if nothing matches", func() {
			sut := newLocator("")

			_, err := sut.ProjectorPath()

			Expect(err).To(MatchError(ErrProjectorNotFound))
			Expect(err).To(MatchError(ContainSubstring(filepath.Join(baseDir, "resources", ProjectorFileName))))
		})

		It("returns an error if the executable dir is unknown", func() {
			sut := newLocator("")
			sut.executableDir = func() (string, error) { return "", errors.New("oops") }

			_, err := sut.ProjectorPath()

			Expect(err).To(MatchError(ContainSubstring("oops")))
		})
	})
})
