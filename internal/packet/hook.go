// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package packet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/siemens-healthineers/rocoknight/internal/process"
)

const hookName = "packet"

// Hook runs an interceptor for every embedded projector process
type Hook struct {
	open     Opener
	handlers []Handler
	mu       sync.Mutex
	sessions map[process.PID]*session
}

type session struct {
	interceptor *Interceptor
	divert      Divert
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewHook(open Opener, handlers ...Handler) *Hook {
	return &Hook{
		open:     open,
		handlers: handlers,
		sessions: make(map[process.PID]*session),
	}
}

func (h *Hook) Name() string {
	return hookName
}

func (h *Hook) OnProcessAttached(pid process.PID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[pid]; ok {
		return nil
	}

	divert, err := h.open(pid)
	if err != nil {
		return fmt.Errorf("could not open divert handle for process %s: %w", pid, err)
	}

	interceptor := NewInterceptor(pid, divert)
	for _, handler := range h.handlers {
		interceptor.RegisterHandler(handler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	current := &session{
		interceptor: interceptor,
		divert:      divert,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	h.sessions[pid] = current

	go func() {
		defer close(current.done)
		interceptor.Run(ctx)
	}()
	return nil
}

func (h *Hook) OnProcessDetached(pid process.PID) {
	h.mu.Lock()
	current, ok := h.sessions[pid]
	delete(h.sessions, pid)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.stop(pid, current)
}

// Inject sends a packet to the embedded projector's connection
func (h *Hook) Inject(packet Packet) error {
	current, ok := h.current()
	if !ok {
		return ErrNotRunning
	}
	return current.interceptor.Inject(packet)
}

// Stats returns the interceptor counters of the embedded projector, if any
func (h *Hook) Stats() (Stats, bool) {
	current, ok := h.current()
	if !ok {
		return Stats{}, false
	}
	return current.interceptor.Stats(), true
}

func (h *Hook) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[process.PID]*session)
	h.mu.Unlock()

	for pid, current := range sessions {
		h.stop(pid, current)
	}
}

func (h *Hook) current() (*session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions := lo.Values(h.sessions)
	if len(sessions) == 0 {
		return nil, false
	}
	return sessions[0], true
}

func (h *Hook) stop(pid process.PID, current *session) {
	current.cancel()
	if err := current.divert.Close(); err != nil {
		slog.Warn("Could not close divert handle", "pid", pid, "error", err)
	}
	<-current.done
}
