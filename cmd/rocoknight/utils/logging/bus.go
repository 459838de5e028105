// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"log/slog"

	base "github.com/siemens-healthineers/rocoknight/internal/logging"
)

// NewBusHandler forwards log records to the debug log bus buffer, e.g. for streaming to the UI
func NewBusHandler(buffer *base.LogBuffer) HandlerBuilder {
	return func(levelVar *slog.LevelVar) SlogHandler {
		return base.NewBufferHandler(buffer, levelVar)
	}
}
