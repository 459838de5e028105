// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package hostwindow owns the top-level window the projector is embedded into and runs its message loop.
package hostwindow

import (
	"errors"
	"math"
)

const (
	DefaultScreenShare = 0.4

	aspectWidth  = 12
	aspectHeight = 7
	minWidth     = 640
	minHeight    = 360
)

var (
	ErrUnsupportedPlatform = errors.New("host window is only supported on Windows")
	ErrNotCreated          = errors.New("host window not created yet")
)

type Options struct {
	Title        string
	ToolbarInset int32
	// ScreenShare is the share of the screen area the initial client area covers
	ScreenShare float64
	// OnWake runs on the message loop thread when Wake was called
	OnWake func()
	// OnResize runs on the message loop thread after the client area changed
	OnResize func()
}

// InitialClientSize computes the client size covering the given share of the screen at a 12:7 ratio,
// plus the toolbar inset on top.
func InitialClientSize(screenWidth, screenHeight int32, share float64, toolbarInset int32) (width int32, height int32) {
	if share <= 0 || share > 1 {
		share = DefaultScreenShare
	}

	area := float64(screenWidth) * float64(screenHeight) * share
	w := math.Sqrt(area * aspectWidth / aspectHeight)
	h := w * aspectHeight / aspectWidth

	width = max(int32(math.Round(w)), minWidth)
	height = max(int32(math.Round(h)), minHeight)
	return width, height + toolbarInset
}

func (o *Options) setDefaults() {
	if o.Title == "" {
		o.Title = "RocoKnight"
	}
	if o.ScreenShare <= 0 {
		o.ScreenShare = DefaultScreenShare
	}
	if o.OnWake == nil {
		o.OnWake = func() {}
	}
	if o.OnResize == nil {
		o.OnResize = func() {}
	}
}
