// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package nativewin embeds foreign top-level windows into a host window.
// It only performs native window operations and holds no state besides what is passed in.
package nativewin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/process"
)

// WindowID identifies a native window. It is never dereferenced, only handed back to the window APIs.
type WindowID struct {
	raw uintptr
}

// Style is a window style bitmask (GWL_STYLE)
type Style uint32

// Rect is a position and size in physical pixels of the parent's client area
type Rect struct {
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Bridge is the set of native window operations needed to embed the projector window
type Bridge interface {
	FindWindowByProcess(ctx context.Context, pid process.PID, timeout time.Duration) (WindowID, error)
	Attach(child, parent WindowID) (Style, error)
	Detach(child WindowID, original Style) error
	Reposition(child WindowID, rect Rect) error
	BringToTop(child WindowID) error
	Hide(child WindowID) error
}

const (
	StyleOverlappedWindow Style = 0x00CF0000
	StylePopup            Style = 0x80000000
	StyleChild            Style = 0x40000000
	StyleVisible          Style = 0x10000000

	topLevelStyles = StyleOverlappedWindow | StylePopup
	embeddedStyles = StyleChild | StyleVisible

	defaultPollInterval = 100 * time.Millisecond
)

var (
	ErrWindowNotFound      = errors.New("window not found")
	ErrUnsupportedPlatform = errors.New("native window embedding is only supported on Windows")
	ErrInvalidWindow       = errors.New("invalid window")

	errNoCandidate = errors.New("no candidate window yet")
)

// WindowIDFromRaw wraps a native window handle
func WindowIDFromRaw(raw uintptr) WindowID {
	return WindowID{raw: raw}
}

func (w WindowID) IsZero() bool {
	return w.raw == 0
}

func (w WindowID) String() string {
	return fmt.Sprintf("0x%x", w.raw)
}

func (w WindowID) LogValue() slog.Value {
	return slog.StringValue(w.String())
}

// EmbeddedStyle strips the top-level bits and sets the child bits
func EmbeddedStyle(original Style) Style {
	return original&^topLevelStyles | embeddedStyles
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}
