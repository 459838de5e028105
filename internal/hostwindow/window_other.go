// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

//go:build !windows

package hostwindow

import (
	"context"

	"github.com/siemens-healthineers/rocoknight/internal/nativewin"
)

type Window struct {
	options Options
}

func New(options Options) *Window {
	options.setDefaults()
	return &Window{options: options}
}

func (w *Window) Run(context.Context) error {
	return ErrUnsupportedPlatform
}

func (w *Window) Window() (nativewin.WindowID, error) {
	return nativewin.WindowID{}, ErrUnsupportedPlatform
}

func (w *Window) ClientSize() (int32, int32, error) {
	return 0, 0, ErrUnsupportedPlatform
}

func (w *Window) Wake() {}

func (w *Window) IsMainThread() bool {
	return false
}
