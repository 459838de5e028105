// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

//go:build !windows

package nativewin

import "github.com/siemens-healthineers/rocoknight/internal/process"

type unsupportedAPI struct{}

func newPlatformAPI() windowAPI {
	return unsupportedAPI{}
}

func (unsupportedAPI) topLevelWindows(process.PID) ([]candidate, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedAPI) style(WindowID) (Style, error) { return 0, ErrUnsupportedPlatform }

func (unsupportedAPI) setStyle(WindowID, Style) error { return ErrUnsupportedPlatform }

func (unsupportedAPI) setParent(WindowID, WindowID) error { return ErrUnsupportedPlatform }

func (unsupportedAPI) frameChanged(WindowID) error { return ErrUnsupportedPlatform }

func (unsupportedAPI) move(WindowID, Rect) error { return ErrUnsupportedPlatform }

func (unsupportedAPI) raise(WindowID) error { return ErrUnsupportedPlatform }

func (unsupportedAPI) hide(WindowID) error { return ErrUnsupportedPlatform }
