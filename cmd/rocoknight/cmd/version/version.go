// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package version

import (
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/common"

	"github.com/siemens-healthineers/rocoknight/internal/cli"
	ve "github.com/siemens-healthineers/rocoknight/internal/version"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var VersionCmd = &cobra.Command{
	Use:   cli.VersionFlagName,
	Short: cli.NewVersionFlagHint(common.CliName),
	RunE:  showVersion,
}

func init() {
	VersionCmd.Flags().SortFlags = false
	VersionCmd.Flags().PrintDefaults()
}

func showVersion(ccmd *cobra.Command, args []string) error {
	ve.GetVersion().Print(common.CliName, pterm.Printf)
	return nil
}
