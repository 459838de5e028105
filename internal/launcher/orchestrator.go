// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package launcher sequences login capture, projector launch and window embedding.
// All state transitions go through the Orchestrator, which owns the application state.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/siemens-healthineers/rocoknight/internal/capture"
	"github.com/siemens-healthineers/rocoknight/internal/nativewin"
	"github.com/siemens-healthineers/rocoknight/internal/process"
)

// Host is the native window the projector is embedded into
type Host interface {
	Window() (nativewin.WindowID, error)
	ClientSize() (width int32, height int32, err error)
}

// LoginSurface is the login web view of the UI shell
type LoginSurface interface {
	ShowLogin()
	HideLogin()
}

type Locator interface {
	ProjectorPath() (string, error)
}

type Supervisor interface {
	Launch(executablePath string, argument string) (*process.Handle, error)
	Terminate(handle *process.Handle)
	IsAlive(handle *process.Handle) bool
}

// Scheduler runs native window calls on the main thread
type Scheduler interface {
	Post(task func()) error
	PostAfter(delay time.Duration, task func())
	Call(task func() error) error
}

// PostLaunchHook is notified about embedded projector processes. Failures never affect the launch.
type PostLaunchHook interface {
	Name() string
	OnProcessAttached(pid process.PID) error
	OnProcessDetached(pid process.PID)
}

type Observer func(event StatusEvent)

type Options struct {
	ToolbarInset        int32
	FindWindowTimeout   time.Duration
	CaptureTimeout      time.Duration
	CapturePollInterval time.Duration
	RefitDelays         []time.Duration
}

type Dependencies struct {
	Host       Host
	Login      LoginSurface
	Locator    Locator
	Supervisor Supervisor
	Bridge     nativewin.Bridge
	Scheduler  Scheduler
	Hooks      []PostLaunchHook
}

// Snapshot is a copy of the application state safe to hand out
type Snapshot struct {
	Status         Status          `json:"status"`
	Message        string          `json:"message,omitempty"`
	CaptureActive  bool            `json:"captureActive"`
	URLPending     bool            `json:"urlPending"`
	CanRestart     bool            `json:"canRestart"`
	ProjectorPID   uint32          `json:"projectorPid,omitempty"`
	ProjectorAlive bool            `json:"projectorAlive"`
	Rect           *nativewin.Rect `json:"rect,omitempty"`
}

type projectorHandle struct {
	process       *process.Handle
	window        nativewin.WindowID
	originalStyle nativewin.Style
}

type appState struct {
	status          Status
	message         string
	swfURL          string
	capture         *capture.Session
	projector       *projectorHandle
	lastRect        nativewin.Rect
	lastLaunchedURL string
	// bumped by stop and reset; a launch started in an older generation discards its result
	generation uint64
	// bumped on every state change that is published to observers
	sequence uint64
}

// statusUpdate is a status event stamped with the state change it was taken from
type statusUpdate struct {
	StatusEvent
	sequence uint64
}

type Orchestrator struct {
	mu        sync.Mutex
	state     appState
	launching sync.Mutex

	observersMu  sync.RWMutex
	observers    map[int]Observer
	nextObserver int

	// serializes delivery; updates older than the last delivered one are dropped
	emitMu      sync.Mutex
	lastEmitted uint64

	options Options
	deps    Dependencies

	ctx    context.Context
	cancel context.CancelFunc
}

const (
	DefaultToolbarInset      int32 = 36
	DefaultFindWindowTimeout       = 6 * time.Second

	foundValueMessage = "Found login value"
	launchingMessage  = "Launching projector"
	capturingMessage  = "Waiting for login"
)

var DefaultRefitDelays = []time.Duration{
	50 * time.Millisecond,
	150 * time.Millisecond,
	300 * time.Millisecond,
	600 * time.Millisecond,
	1200 * time.Millisecond,
	2000 * time.Millisecond,
}

func NewOrchestrator(options Options, deps Dependencies) *Orchestrator {
	if options.FindWindowTimeout <= 0 {
		options.FindWindowTimeout = DefaultFindWindowTimeout
	}
	if options.CaptureTimeout <= 0 {
		options.CaptureTimeout = capture.DefaultTimeout
	}
	if options.CapturePollInterval <= 0 {
		options.CapturePollInterval = capture.DefaultPollInterval
	}
	if options.RefitDelays == nil {
		options.RefitDelays = DefaultRefitDelays
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		state:     appState{status: StatusLogin},
		observers: map[int]Observer{},
		options:   options,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Subscribe registers an observer for status events; the returned func unregisters it
func (o *Orchestrator) Subscribe(observer Observer) (unsubscribe func()) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()

	id := o.nextObserver
	o.nextObserver++
	o.observers[id] = observer

	return func() {
		o.observersMu.Lock()
		defer o.observersMu.Unlock()
		delete(o.observers, id)
	}
}

func (o *Orchestrator) Status() StatusEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentLocked()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	snapshot := Snapshot{
		Status:        o.state.status,
		Message:       o.state.message,
		CaptureActive: o.state.capture != nil,
		URLPending:    o.state.swfURL != "",
		CanRestart:    o.state.lastLaunchedURL != "",
	}
	projector := o.state.projector
	if projector != nil {
		rect := o.state.lastRect
		snapshot.Rect = &rect
		snapshot.ProjectorPID = projector.process.PID().Raw()
	}
	o.mu.Unlock()

	if projector != nil {
		snapshot.ProjectorAlive = o.deps.Supervisor.IsAlive(projector.process)
	}
	return snapshot
}

// ProjectorProcess returns the embedded projector process, if any
func (o *Orchestrator) ProjectorProcess() (*process.Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.projector == nil {
		return nil, false
	}
	return o.state.projector.process, true
}

// AcceptAssetURL hands a captured asset URL over for launching. It is rejected while the
// projector is running or another URL is pending, so each capture cycle launches at most once.
// In the error state it is rejected as well until the launcher was reset.
func (o *Orchestrator) AcceptAssetURL(assetURL string) bool {
	o.mu.Lock()
	if o.state.status == StatusRunning || o.state.status == StatusError || o.state.swfURL != "" {
		o.mu.Unlock()
		return false
	}

	o.state.swfURL = assetURL
	o.state.status = StatusFoundValue
	o.state.message = foundValueMessage
	found := o.updateLocked()

	o.state.status = StatusLaunching
	o.state.message = launchingMessage
	launching := o.updateLocked()

	session := o.state.capture
	o.state.capture = nil
	generation := o.state.generation
	o.mu.Unlock()

	o.emit(found, launching)

	if session != nil {
		session.Stop()
	}

	go func() {
		_ = o.command("auto_launch", func() error {
			if !o.launching.TryLock() {
				slog.Warn("Captured asset URL dropped", "error", ErrLaunchInProgress)
				o.clearPendingURL(assetURL)
				return ErrLaunchInProgress
			}
			defer o.launching.Unlock()

			return o.launchAndEmbed(assetURL, generation)
		})
	}()
	return true
}

// launchAndEmbed must be called with the launch guard held
func (o *Orchestrator) launchAndEmbed(assetURL string, generation uint64) error {
	o.mu.Lock()
	previous := o.state.projector
	o.state.projector = nil
	o.state.lastRect = nativewin.Rect{}
	o.state.lastLaunchedURL = assetURL
	o.mu.Unlock()

	if previous != nil {
		slog.Info("Replacing embedded projector", "pid", previous.process.PID())
		o.teardown(previous)
	}

	path, err := o.deps.Locator.ProjectorPath()
	if err != nil {
		return o.fail(generation, &Failure{Kind: ConfigError, Message: "Projector executable not found", Err: err})
	}

	slog.Info("Launching projector", "path", path, "url", capture.RedactAssetURL(assetURL))

	handle, err := o.deps.Supervisor.Launch(path, assetURL)
	if err != nil {
		return o.fail(generation, &Failure{Kind: LaunchError, Message: "Failed to launch projector", Err: err})
	}

	window, err := o.deps.Bridge.FindWindowByProcess(o.ctx, handle.PID(), o.options.FindWindowTimeout)
	if err != nil {
		slog.Warn("Projector window not found, the process is left running", "pid", handle.PID(), "timeout", o.options.FindWindowTimeout)
		return o.fail(generation, &Failure{Kind: WindowNotFound, Message: "Projector window not found", Err: err})
	}

	var (
		originalStyle nativewin.Style
		rect          nativewin.Rect
	)
	err = o.deps.Scheduler.Call(func() error {
		if err := o.deps.Bridge.Hide(window); err != nil {
			slog.Debug("Could not hide projector window before embedding", "window", window, "error", err)
		}

		parent, err := o.deps.Host.Window()
		if err != nil {
			return fmt.Errorf("host window unavailable: %w", err)
		}

		originalStyle, err = o.deps.Bridge.Attach(window, parent)
		if err != nil {
			return err
		}

		rect, err = o.targetRect()
		if err != nil {
			slog.Warn("Host client size unavailable", "error", err)
			return nil
		}
		if err := o.deps.Bridge.Reposition(window, rect); err != nil {
			slog.Warn("Could not position projector window", "window", window, "error", err)
		}
		if err := o.deps.Bridge.BringToTop(window); err != nil {
			slog.Debug("Could not raise projector window", "window", window, "error", err)
		}
		return nil
	})
	if err != nil {
		o.deps.Supervisor.Terminate(handle)
		return o.fail(generation, &Failure{Kind: AttachError, Message: "Failed to embed projector window", Err: err})
	}

	projector := &projectorHandle{process: handle, window: window, originalStyle: originalStyle}

	o.mu.Lock()
	if o.state.generation != generation {
		o.mu.Unlock()
		slog.Info("Launch finished after stop or reset, tearing down", "pid", handle.PID())
		o.teardown(projector)
		return ErrLaunchCancelled
	}
	o.state.projector = projector
	o.state.lastRect = rect
	o.state.status = StatusRunning
	o.state.message = ""
	o.state.swfURL = ""
	running := o.updateLocked()
	o.mu.Unlock()

	slog.Info("Projector embedded", "pid", handle.PID(), "window", window, "rect", rect)

	o.emit(running)
	o.deps.Login.HideLogin()

	for _, delay := range o.options.RefitDelays {
		o.deps.Scheduler.PostAfter(delay, func() { o.refit(true) })
	}

	if len(o.deps.Hooks) > 0 {
		go o.runAttachHooks(handle.PID())
	}
	return nil
}

func (o *Orchestrator) runAttachHooks(pid process.PID) {
	for _, hook := range o.deps.Hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Post-launch hook panicked", "hook", hook.Name(), "panic", r)
				}
			}()
			if err := hook.OnProcessAttached(pid); err != nil {
				slog.Warn("Post-launch hook failed", "hook", hook.Name(), "pid", pid, "error", err)
				return
			}
			slog.Debug("Post-launch hook done", "hook", hook.Name(), "pid", pid)
		}()
	}
}

// teardown detaches the window on the main thread and kills the process
func (o *Orchestrator) teardown(projector *projectorHandle) {
	if projector == nil {
		return
	}

	pid := projector.process.PID()
	for _, hook := range o.deps.Hooks {
		hook.OnProcessDetached(pid)
	}

	err := o.deps.Scheduler.Call(func() error {
		return o.deps.Bridge.Detach(projector.window, projector.originalStyle)
	})
	if err != nil {
		slog.Warn("Could not detach projector window", "window", projector.window, "error", err)
	}

	o.deps.Supervisor.Terminate(projector.process)

	slog.Info("Projector stopped", "pid", pid)
}

// stopProjector tears down the projector and any capture and returns to the login screen
func (o *Orchestrator) stopProjector() {
	o.mu.Lock()
	projector := o.state.projector
	session := o.state.capture
	o.state.projector = nil
	o.state.capture = nil
	o.state.lastRect = nativewin.Rect{}
	o.state.swfURL = ""
	o.state.generation++
	o.state.status = StatusLogin
	o.state.message = ""
	event := o.updateLocked()
	o.mu.Unlock()

	if session != nil {
		session.Stop()
	}
	o.teardown(projector)

	o.emit(event)
	o.deps.Login.ShowLogin()
}

// refit must run on the main thread. Unless forced, unchanged geometry is not applied again.
func (o *Orchestrator) refit(force bool) {
	o.mu.Lock()
	projector := o.state.projector
	last := o.state.lastRect
	o.mu.Unlock()

	if projector == nil {
		return
	}

	rect, err := o.targetRect()
	if err != nil {
		slog.Debug("Host client size unavailable, skipping resize", "error", err)
		return
	}
	if !force && rect == last {
		return
	}

	if err := o.deps.Bridge.Reposition(projector.window, rect); err != nil {
		slog.Warn("Could not resize projector window", "window", projector.window, "error", err)
		return
	}

	o.mu.Lock()
	if o.state.projector == projector {
		o.state.lastRect = rect
	}
	o.mu.Unlock()
}

func (o *Orchestrator) targetRect() (nativewin.Rect, error) {
	width, height, err := o.deps.Host.ClientSize()
	if err != nil {
		return nativewin.Rect{}, err
	}
	return TargetRect(width, height, o.options.ToolbarInset), nil
}

func (o *Orchestrator) startCaptureSession() (*capture.Session, error) {
	o.mu.Lock()
	switch o.state.status {
	case StatusRunning:
		o.mu.Unlock()
		return nil, ErrProjectorRunning
	case StatusFoundValue, StatusLaunching:
		o.mu.Unlock()
		return nil, ErrLaunchInProgress
	case StatusError:
		o.mu.Unlock()
		return nil, ErrResetRequired
	}

	previous := o.state.capture
	session := capture.NewSession()
	o.state.capture = session
	o.state.swfURL = ""
	o.state.status = StatusCapturing
	o.state.message = capturingMessage
	event := o.updateLocked()
	o.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}

	o.emit(event)
	o.deps.Login.ShowLogin()

	slog.Info("Login capture started", "session", session.Token(), "timeout", o.options.CaptureTimeout)

	go capture.WatchTimeout(session, o.options.CaptureTimeout, o.options.CapturePollInterval, o.onCaptureTimeout)

	return session, nil
}

func (o *Orchestrator) onCaptureTimeout(token uuid.UUID) {
	o.mu.Lock()
	session := o.state.capture
	if session == nil || session.Token() != token || session.Stopped() ||
		o.state.status != StatusCapturing || o.state.swfURL != "" {
		o.mu.Unlock()
		return
	}

	failure := &Failure{
		Kind:    CaptureTimeout,
		Message: fmt.Sprintf("Login timed out (%ds). Please retry.", int(o.options.CaptureTimeout.Seconds())),
	}
	o.state.capture = nil
	o.state.status = StatusError
	o.state.message = failure.Message
	event := o.updateLocked()
	o.mu.Unlock()

	session.Stop()

	slog.Warn("Login capture timed out", "session", token, "kind", failure.Kind)
	o.emit(event)
}

func (o *Orchestrator) stopCaptureSession() {
	o.mu.Lock()
	session := o.state.capture
	o.state.capture = nil

	var events []statusUpdate
	if o.state.status == StatusCapturing {
		o.state.status = StatusLogin
		o.state.message = ""
		events = append(events, o.updateLocked())
	}
	o.mu.Unlock()

	if session != nil {
		session.Stop()
		slog.Info("Login capture stopped", "session", session.Token())
	}
	o.emit(events...)
}

// fail moves to the error state unless the launch was superseded by a stop or reset
func (o *Orchestrator) fail(generation uint64, failure *Failure) error {
	slog.Error("Launch failed", "kind", failure.Kind, "error", failure)

	o.mu.Lock()
	if o.state.generation != generation {
		o.mu.Unlock()
		return failure
	}
	o.state.status = StatusError
	o.state.message = failure.Error()
	o.state.swfURL = ""
	event := o.updateLocked()
	o.mu.Unlock()

	o.emit(event)
	return failure
}

func (o *Orchestrator) clearPendingURL(assetURL string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.swfURL == assetURL {
		o.state.swfURL = ""
	}
}

func (o *Orchestrator) currentLocked() StatusEvent {
	return StatusEvent{Status: o.state.status, Message: o.state.message}
}

// updateLocked stamps the current state with the next sequence number
func (o *Orchestrator) updateLocked() statusUpdate {
	o.state.sequence++
	return statusUpdate{StatusEvent: o.currentLocked(), sequence: o.state.sequence}
}

// emit delivers updates in the order their state changes happened. Two emitters racing after
// unlocking must not leave observers on the older status, so a stale update is dropped.
func (o *Orchestrator) emit(updates ...statusUpdate) {
	if len(updates) == 0 {
		return
	}

	o.observersMu.RLock()
	observers := lo.Values(o.observers)
	o.observersMu.RUnlock()

	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	for _, update := range updates {
		if update.sequence <= o.lastEmitted {
			slog.Debug("Stale status dropped", "status", update.Status, "sequence", update.sequence, "last", o.lastEmitted)
			continue
		}
		o.lastEmitted = update.sequence

		slog.Debug("Status changed", "status", update.Status, "message", update.Message)
		for _, observer := range observers {
			observer(update.StatusEvent)
		}
	}
}
