// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package nativewin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/siemens-healthineers/rocoknight/internal/process"
)

// candidate is a top-level window owned by the searched process
type candidate struct {
	id      WindowID
	visible bool
	owned   bool
}

type windowAPI interface {
	topLevelWindows(pid process.PID) ([]candidate, error)
	style(window WindowID) (Style, error)
	setStyle(window WindowID, style Style) error
	// setParent with a zero parent moves the window back to the desktop
	setParent(child, parent WindowID) error
	frameChanged(window WindowID) error
	move(window WindowID, rect Rect) error
	raise(window WindowID) error
	hide(window WindowID) error
}

// NativeBridge implements Bridge on top of the platform window API
type NativeBridge struct {
	api          windowAPI
	pollInterval time.Duration
}

func NewBridge() *NativeBridge {
	return &NativeBridge{
		api:          newPlatformAPI(),
		pollInterval: defaultPollInterval,
	}
}

// FindWindowByProcess polls the window enumeration until a top-level window of the given process appears
// or the timeout elapses. The projector creates its window some time after spawning.
func (b *NativeBridge) FindWindowByProcess(ctx context.Context, pid process.PID, timeout time.Duration) (WindowID, error) {
	attempts := 0
	var lastErr error
	policy := retrypolicy.Builder[WindowID]().
		HandleErrors(errNoCandidate).
		WithDelay(b.pollInterval).
		WithMaxRetries(-1).
		WithMaxDuration(timeout).
		Build()

	window, err := failsafe.NewExecutor[WindowID](policy).WithContext(ctx).Get(func() (WindowID, error) {
		attempts++
		candidates, err := b.api.topLevelWindows(pid)
		if err != nil {
			lastErr = err
			return WindowID{}, err
		}
		if found, ok := pickWindow(candidates); ok {
			lastErr = nil
			return found, nil
		}
		lastErr = errNoCandidate
		return WindowID{}, errNoCandidate
	})

	if err == nil && !window.IsZero() {
		slog.Debug("window found", "pid", pid, "window", window, "attempts", attempts)
		return window, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return WindowID{}, fmt.Errorf("searching window of process %s: %w", pid, ctxErr)
	}
	if lastErr != nil && !errors.Is(lastErr, errNoCandidate) {
		return WindowID{}, fmt.Errorf("searching window of process %s: %w", pid, lastErr)
	}
	return WindowID{}, fmt.Errorf("%w: process %s, waited %v", ErrWindowNotFound, pid, timeout)
}

// Attach reparents the child into the parent and turns it into a child window.
// Returns the original style needed to restore the window on Detach.
func (b *NativeBridge) Attach(child, parent WindowID) (Style, error) {
	if child.IsZero() || parent.IsZero() {
		return 0, ErrInvalidWindow
	}

	original, err := b.api.style(child)
	if err != nil {
		return 0, fmt.Errorf("reading style of window %s: %w", child, err)
	}
	if err := b.api.setParent(child, parent); err != nil {
		return 0, fmt.Errorf("reparenting window %s: %w", child, err)
	}
	if err := b.api.setStyle(child, EmbeddedStyle(original)); err != nil {
		return 0, fmt.Errorf("restyling window %s: %w", child, err)
	}
	if err := b.api.frameChanged(child); err != nil {
		return 0, fmt.Errorf("applying frame of window %s: %w", child, err)
	}

	slog.Debug("window attached", "child", child, "parent", parent, "original-style", fmt.Sprintf("0x%08x", uint32(original)))
	return original, nil
}

// Detach moves the child back to the desktop and restores its original style.
// Call it once per Attach.
func (b *NativeBridge) Detach(child WindowID, original Style) error {
	if child.IsZero() {
		return ErrInvalidWindow
	}

	var errs []error
	if err := b.api.setParent(child, WindowID{}); err != nil {
		errs = append(errs, fmt.Errorf("unparenting window %s: %w", child, err))
	}
	if err := b.api.setStyle(child, original); err != nil {
		errs = append(errs, fmt.Errorf("restoring style of window %s: %w", child, err))
	}
	if err := b.api.frameChanged(child); err != nil {
		errs = append(errs, fmt.Errorf("applying frame of window %s: %w", child, err))
	}

	slog.Debug("window detached", "child", child)
	return errors.Join(errs...)
}

func (b *NativeBridge) Reposition(child WindowID, rect Rect) error {
	if child.IsZero() {
		return ErrInvalidWindow
	}
	return b.api.move(child, rect)
}

func (b *NativeBridge) BringToTop(child WindowID) error {
	if child.IsZero() {
		return ErrInvalidWindow
	}
	return b.api.raise(child)
}

func (b *NativeBridge) Hide(child WindowID) error {
	if child.IsZero() {
		return ErrInvalidWindow
	}
	return b.api.hide(child)
}

// pickWindow prefers a visible ownerless window. An ownerless hidden one is accepted as well
// because the projector is started hidden.
func pickWindow(candidates []candidate) (WindowID, bool) {
	var hidden *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.owned || c.id.IsZero() {
			continue
		}
		if c.visible {
			return c.id, true
		}
		if hidden == nil {
			hidden = c
		}
	}
	if hidden != nil {
		return hidden.id, true
	}
	return WindowID{}, false
}
