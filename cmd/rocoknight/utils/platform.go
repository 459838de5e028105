// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package utils

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Platform generates a user-readable platform message
func Platform() string {
	var s strings.Builder
	hi, err := host.Info()
	if err == nil {
		s.WriteString(fmt.Sprintf("%s %s", cases.Title(language.Und).String(hi.Platform), hi.PlatformVersion))
		slog.Debug("Host info", "info", hi)
	} else {
		slog.Warn("host.Info returned error", "error", err)
		s.WriteString(runtime.GOOS)
	}

	return s.String()
}
