// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cmd

import (
	"context"
	"log/slog"

	cc "github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/common"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/extract"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/run"
	ve "github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/version"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/utils/logging"
	"github.com/siemens-healthineers/rocoknight/internal/cli"
	"github.com/siemens-healthineers/rocoknight/internal/config"
	bl "github.com/siemens-healthineers/rocoknight/internal/logging"

	"github.com/spf13/cobra"
)

func CreateRootCmd(logger *logging.Slogger) (*cobra.Command, error) {
	showLog := false
	configPath := ""

	cmd := &cobra.Command{
		Use:               cc.CliName,
		Short:             "rocoknight – launcher embedding the Roco Kingdom projector into a host window",
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return &cc.CmdFailure{
					Severity: cc.SeverityError,
					Code:     "invalid-config",
					Message:  err.Error(),
				}
			}

			if err := logger.SetVerbosity(cfg.Log.Verbosity); err != nil {
				return err
			}

			logFilePath := bl.LogFilePath(cfg.LogDir())
			trimErr := bl.TrimLogFile(logFilePath, int64(cfg.Log.MaxSizeBytes), int64(cfg.Log.TrimSizeBytes))

			logHandlers := []logging.HandlerBuilder{logging.NewFileHandler(logFilePath)}
			if showLog {
				logHandlers = append(logHandlers, logging.NewCliHandler())
			}
			logger.SetHandlers(logHandlers...).SetGlobally()

			if trimErr != nil {
				slog.Warn("Log file not trimmed", "error", trimErr)
			}
			slog.Debug("log level set", "level", cfg.Log.Verbosity)
			slog.Debug("config loaded", "config", cfg)

			cmd.SetContext(context.WithValue(cmd.Context(), cc.ContextKeyCmdContext, cc.NewCmdContext(cfg, logger, logHandlers...)))

			return nil
		},
	}

	cmd.AddCommand(run.NewCmd())
	cmd.AddCommand(extract.NewCmd())
	cmd.AddCommand(ve.VersionCmd)

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.BoolVarP(&showLog, cc.OutputFlagName, cc.OutputFlagShorthand, showLog, cc.OutputFlagUsage)
	persistentFlags.StringP(cli.VerbosityFlagName, cli.VerbosityFlagShorthand, bl.LevelToLowerString(slog.LevelInfo), cli.VerbosityFlagHelp())
	persistentFlags.StringVarP(&configPath, cli.ConfigFlagName, cli.ConfigFlagShorthand, configPath, cli.ConfigFlagUsage)

	return cmd, nil
}
