// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package launcher

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const slowCommandThreshold = time.Second

// StartCapture begins a login capture session and shows the login surface
func (o *Orchestrator) StartCapture() error {
	return o.command("start_capture", func() error {
		_, err := o.startCaptureSession()
		return err
	})
}

func (o *Orchestrator) StopCapture() error {
	return o.command("stop_capture", func() error {
		o.stopCaptureSession()
		return nil
	})
}

// Launch launches and embeds the projector with the given asset URL.
// An empty URL relaunches the most recently launched one.
func (o *Orchestrator) Launch(assetURL string) error {
	return o.command("launch", func() error {
		if assetURL == "" {
			o.mu.Lock()
			assetURL = o.state.lastLaunchedURL
			o.mu.Unlock()
		}
		if assetURL == "" {
			return ErrNoAssetURL
		}
		return o.launchGuarded(assetURL)
	})
}

func (o *Orchestrator) Stop() error {
	return o.command("stop", func() error {
		o.stopProjector()
		return nil
	})
}

// Restart relaunches the most recently launched asset URL
func (o *Orchestrator) Restart() error {
	return o.command("restart", o.restart)
}

// ResetToIdle tears down everything and returns to the login screen. It is the only way out of the error state;
// capture and launch commands are rejected with ErrResetRequired until then.
func (o *Orchestrator) ResetToIdle() error {
	return o.command("reset_to_idle", func() error {
		o.stopProjector()
		return nil
	})
}

// Resize fits the projector window to the host window
func (o *Orchestrator) Resize() error {
	return o.command("resize", func() error {
		return o.deps.Scheduler.Call(func() error {
			o.refit(false)
			return nil
		})
	})
}

// HandleHostResized is called by the host window's message loop on size changes
func (o *Orchestrator) HandleHostResized() {
	o.refit(false)
}

// ChangeChannel relaunches the projector if one is embedded, otherwise resets to idle
func (o *Orchestrator) ChangeChannel() error {
	return o.command("change_channel", func() error {
		if _, running := o.ProjectorProcess(); running {
			return o.restart()
		}
		o.stopProjector()
		return nil
	})
}

func (o *Orchestrator) restart() error {
	o.mu.Lock()
	assetURL := o.state.lastLaunchedURL
	o.mu.Unlock()

	if assetURL == "" {
		return ErrNoAssetURL
	}
	return o.launchGuarded(assetURL)
}

func (o *Orchestrator) launchGuarded(assetURL string) error {
	if !o.launching.TryLock() {
		return ErrLaunchInProgress
	}
	defer o.launching.Unlock()

	o.mu.Lock()
	if o.state.status == StatusError {
		o.mu.Unlock()
		return ErrResetRequired
	}
	session := o.state.capture
	o.state.capture = nil
	o.state.status = StatusLaunching
	o.state.message = launchingMessage
	generation := o.state.generation
	event := o.updateLocked()
	o.mu.Unlock()

	if session != nil {
		session.Stop()
	}
	o.emit(event)

	return o.launchAndEmbed(assetURL, generation)
}

// command logs timing and recovers panics so that no command takes the application down
func (o *Orchestrator) command(name string, run func() error) (err error) {
	requestID := uuid.NewString()
	started := time.Now()

	slog.Debug("Command started", "command", name, "request-id", requestID)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Command panicked", "command", name, "request-id", requestID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s failed unexpectedly: %v", name, r)
		}

		elapsed := time.Since(started)
		if elapsed > slowCommandThreshold {
			slog.Warn("Slow command", "command", name, "request-id", requestID, "duration", elapsed)
		}
		if err != nil {
			slog.Info("Command failed", "command", name, "request-id", requestID, "duration", elapsed, "error", err)
			return
		}
		slog.Debug("Command finished", "command", name, "request-id", requestID, "duration", elapsed)
	}()

	return run()
}
