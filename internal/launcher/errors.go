// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package launcher

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ConfigError       ErrorKind = "config"
	LaunchError       ErrorKind = "launch"
	WindowNotFound    ErrorKind = "window_not_found"
	AttachError       ErrorKind = "attach"
	CaptureTimeout    ErrorKind = "capture_timeout"
	CaptureValidation ErrorKind = "capture_validation"
)

// Failure is a launch or capture failure. Message is shown to the user.
type Failure struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrLaunchInProgress = errors.New("launch already in progress")
	ErrNoAssetURL       = errors.New("no asset URL captured yet")
	ErrProjectorRunning = errors.New("projector is running, stop it first")
	ErrLaunchCancelled  = errors.New("launch cancelled by stop or reset")
	ErrResetRequired    = errors.New("launcher is in the error state, reset it first")
)

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, if any
func KindOf(err error) (ErrorKind, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind, true
	}
	return "", false
}
