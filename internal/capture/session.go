// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout      = 180 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// Session is one login capture attempt. Stopping it cancels its timeout watcher.
type Session struct {
	token   uuid.UUID
	stopped atomic.Bool
}

func NewSession() *Session {
	return &Session{token: uuid.New()}
}

func (s *Session) Token() uuid.UUID {
	return s.token
}

func (s *Session) Stop() {
	s.stopped.Store(true)
}

func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// WatchTimeout sleeps in ticks until the timeout elapses or the session is stopped.
// onTimeout receives the session token so the receiver can ignore stale sessions.
func WatchTimeout(session *Session, timeout, tick time.Duration, onTimeout func(token uuid.UUID)) {
	deadline := time.Now().Add(timeout)

	for {
		if session.Stopped() {
			slog.Debug("capture watcher stopped", "session", session.token)
			return
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			slog.Debug("capture watcher timed out", "session", session.token, "timeout", timeout)
			onTimeout(session.token)
			return
		}

		time.Sleep(min(tick, remaining))
	}
}
