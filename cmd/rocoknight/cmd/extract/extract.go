// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	cc "github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/common"
	"github.com/siemens-healthineers/rocoknight/internal/capture"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/net/html/charset"
)

// Result of extracting the asset URL from a saved login response
type Result struct {
	FlashVars string
	AssetURL  string
}

const (
	contentTypeFlagName  = "content-type"
	contentTypeFlagUsage = "content type of the saved response, e.g. 'text/html; charset=gbk'; sniffed if empty"
	revealFlagName       = "reveal"
	revealFlagUsage      = "print the asset URL without redacting the identity token"
)

var extractExample = `
  # Extract the asset URL from a login response dumped by 'rocoknight run --dump-login'
  rocoknight extract login3_dump.html

  # Print the complete URL, e.g. to start the projector manually
  rocoknight extract login3_dump.html --reveal
`

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract FILE",
		Short:   "Extracts the projector asset URL from a saved login response",
		Example: extractExample,
		Args:    cobra.ExactArgs(1),
		RunE:    runExtract,
	}

	flags := cmd.Flags()
	flags.String(contentTypeFlagName, "", contentTypeFlagUsage)
	flags.Bool(revealFlagName, false, revealFlagUsage)
	flags.SortFlags = false

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cmdContext, err := cc.CmdContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	contentType, err := cmd.Flags().GetString(contentTypeFlagName)
	if err != nil {
		return err
	}
	reveal, err := cmd.Flags().GetBool(revealFlagName)
	if err != nil {
		return err
	}

	path := args[0]
	slog.Info("Extracting asset URL", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return &cc.CmdFailure{
			Severity: cc.SeverityError,
			Code:     "file-not-readable",
			Message:  fmt.Sprintf("Could not read '%s': %v", path, err),
		}
	}

	result, err := Extract(raw, contentType, cmdContext.Config().Capture.AssetBaseURL, time.Now())
	if err != nil {
		return toCmdFailure(err)
	}

	pterm.Info.Printfln("flashVars: %s", capture.Redact(result.FlashVars))
	if reveal {
		pterm.Success.Println(result.AssetURL)
	} else {
		pterm.Success.Println(capture.RedactAssetURL(result.AssetURL))
	}
	return nil
}

// Extract decodes the raw response to UTF-8 and builds the asset URL from its flashVars value
func Extract(raw []byte, contentType string, baseURL string, now time.Time) (*Result, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	value, found := capture.FindFlashVars(string(decoded))
	if !found {
		return nil, capture.ErrNoValue
	}
	if err := capture.Validate(value); err != nil {
		return nil, err
	}

	if baseURL == "" {
		baseURL = capture.DefaultAssetBaseURL
	}
	assetURL, err := capture.BuildAssetURL(baseURL, value, now)
	if err != nil {
		return nil, err
	}
	return &Result{FlashVars: value, AssetURL: assetURL}, nil
}

func toCmdFailure(err error) *cc.CmdFailure {
	switch {
	case errors.Is(err, capture.ErrNoValue):
		return &cc.CmdFailure{
			Severity: cc.SeverityWarning,
			Code:     "no-login-value",
			Message:  "The file does not contain a login value. Is it the response of a successful login?",
		}
	case errors.Is(err, capture.ErrValidation):
		return &cc.CmdFailure{
			Severity: cc.SeverityWarning,
			Code:     "invalid-login-value",
			Message:  err.Error(),
		}
	default:
		return &cc.CmdFailure{
			Severity: cc.SeverityError,
			Code:     "extraction-failed",
			Message:  err.Error(),
		}
	}
}
