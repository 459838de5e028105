// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/common"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/utils/logging"
	"github.com/siemens-healthineers/rocoknight/internal/cli"

	"github.com/pterm/pterm"
)

func main() {
	exitCode := cli.ExitCodeSuccess

	logger := logging.NewSlogger()

	defer func() {
		if err := recover(); err != nil {
			exitCode = cli.ExitCodeFailure
			handleUnexpectedError(err)
		}

		if exitCode != cli.ExitCodeSuccess {
			printLogHint(logger.LogFilePath())
		}
		slog.Debug("launcher exiting", "exit-code", exitCode)

		logger.Flush()
		logger.Close()
		os.Exit(int(exitCode))
	}()

	rootCmd, err := cmd.CreateRootCmd(logger)
	if err != nil {
		exitCode = cli.ExitCodeFailure
		slog.Error("error occurred during root command creation", "error", err)
		return
	}

	err = rootCmd.Execute()
	if err == nil {
		return
	}

	exitCode = cli.ExitCodeFailure

	var cmdFailure *common.CmdFailure
	if !errors.As(err, &cmdFailure) {
		handleUnexpectedError(err)
		return
	}

	if !cmdFailure.SuppressCliOutput {
		switch cmdFailure.Severity {
		case common.SeverityWarning:
			pterm.Warning.Println(cmdFailure.Message)
		case common.SeverityError:
			pterm.Error.Println(cmdFailure.Message)
		default:
			slog.Warn("unknown cmd failure severity", "severity", cmdFailure.Severity)
		}
	}

	slog.Error("command failed",
		"severity", fmt.Sprintf("%d(%s)", cmdFailure.Severity, cmdFailure.Severity),
		"code", cmdFailure.Code,
		"message", cmdFailure.Message,
		"suppressCliOutput", cmdFailure.SuppressCliOutput)
}

func handleUnexpectedError(err any) {
	pterm.Error.Println(fmt.Errorf("%v", err))

	slog.Error("unexpected error", "error", err)
}

// printLogHint points to the launcher log, since projector and capture failures are only detailed there
func printLogHint(logFilePath string) {
	if logFilePath == "" {
		return
	}
	pterm.Info.Printfln("Details in the launcher log: %s", logFilePath)
}
