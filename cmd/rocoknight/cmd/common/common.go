// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/utils/logging"
	"github.com/siemens-healthineers/rocoknight/internal/config"
)

type FailureSeverity uint8
type ContextKey string

type CmdFailure struct {
	Severity          FailureSeverity `json:"severity"`
	Code              string          `json:"code"`
	Message           string          `json:"message"`
	SuppressCliOutput bool
}

// CmdContext carries what the root command prepared for its subcommands
type CmdContext struct {
	config   *config.Config
	logger   *logging.Slogger
	handlers []logging.HandlerBuilder
}

const (
	CliName = "rocoknight"

	SeverityWarning FailureSeverity = 3
	SeverityError   FailureSeverity = 4

	ContextKeyCmdContext ContextKey = "cmd-context"

	OutputFlagName      = "output"
	OutputFlagShorthand = "o"
	OutputFlagUsage     = "Show all logs in terminal"
)

var ErrCmdContextMissing = errors.New("command context missing")

func NewCmdContext(config *config.Config, logger *logging.Slogger, handlers ...logging.HandlerBuilder) *CmdContext {
	return &CmdContext{
		config:   config,
		logger:   logger,
		handlers: handlers,
	}
}

// CmdContextFrom returns the command context stored by the root command
func CmdContextFrom(ctx context.Context) (*CmdContext, error) {
	if ctx == nil {
		return nil, ErrCmdContextMissing
	}
	cmdContext, ok := ctx.Value(ContextKeyCmdContext).(*CmdContext)
	if !ok || cmdContext == nil {
		return nil, ErrCmdContextMissing
	}
	return cmdContext, nil
}

func (c *CmdContext) Config() *config.Config {
	return c.config
}

func (c *CmdContext) Logger() *logging.Slogger {
	return c.logger
}

// LogHandlers returns the handlers the root command set up, e.g. to extend them with further handlers
func (c *CmdContext) LogHandlers() []logging.HandlerBuilder {
	return append([]logging.HandlerBuilder(nil), c.handlers...)
}

func (c *CmdFailure) Error() string {
	return fmt.Sprintf("%s: %s", c.Code, c.Message)
}

func (s FailureSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}
