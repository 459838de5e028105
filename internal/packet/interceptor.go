// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package packet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/process"
)

type Action int

const (
	ActionForward Action = iota
	ActionModify
	ActionDrop
	ActionInject
)

const recvRetryDelay = 100 * time.Millisecond

// Decision is a handler's verdict on a packet. Packet holds the replacement for ActionModify
// and the additional packet for ActionInject.
type Decision struct {
	Action Action
	Packet Packet
}

// Handler inspects packets; the first handler not forwarding a packet decides its fate
type Handler interface {
	HandleOutbound(packet Packet) Decision
	HandleInbound(packet Packet) Decision
}

type Stats struct {
	Received  uint64 `json:"received"`
	Forwarded uint64 `json:"forwarded"`
	Modified  uint64 `json:"modified"`
	Dropped   uint64 `json:"dropped"`
	Injected  uint64 `json:"injected"`
	Errors    uint64 `json:"errors"`
}

type Interceptor struct {
	pid      process.PID
	divert   Divert
	mu       sync.RWMutex
	handlers []Handler

	received  atomic.Uint64
	forwarded atomic.Uint64
	modified  atomic.Uint64
	dropped   atomic.Uint64
	injected  atomic.Uint64
	errors    atomic.Uint64
}

// LogHandler logs every packet and forwards it
type LogHandler struct{}

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionModify:
		return "modify"
	case ActionDrop:
		return "drop"
	case ActionInject:
		return "inject"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

func Forward() Decision {
	return Decision{Action: ActionForward}
}

func Modify(replacement Packet) Decision {
	return Decision{Action: ActionModify, Packet: replacement}
}

func Drop() Decision {
	return Decision{Action: ActionDrop}
}

func Inject(additional Packet) Decision {
	return Decision{Action: ActionInject, Packet: additional}
}

func NewInterceptor(pid process.PID, divert Divert) *Interceptor {
	return &Interceptor{pid: pid, divert: divert}
}

func (i *Interceptor) RegisterHandler(handler Handler) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.handlers = append(i.handlers, handler)
}

// Run receives and processes packets until the divert handle stops or the context is done
func (i *Interceptor) Run(ctx context.Context) {
	slog.Info("Packet interceptor started", "pid", i.pid)
	defer slog.Info("Packet interceptor stopped", "pid", i.pid)

	for {
		data, err := i.divert.Recv(ctx)
		switch {
		case err == nil:
			if err := i.process(data); err != nil {
				i.errors.Add(1)
				slog.Warn("Could not process packet", "pid", i.pid, "error", err)
			}
		case errors.Is(err, ErrNotRunning), ctx.Err() != nil:
			return
		default:
			i.errors.Add(1)
			slog.Warn("Could not receive packet", "pid", i.pid, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(recvRetryDelay):
			}
		}
	}
}

// Inject sends an additional packet to the process' connection
func (i *Interceptor) Inject(packet Packet) error {
	if err := i.divert.Send(packet.Bytes()); err != nil {
		return fmt.Errorf("could not inject packet: %w", err)
	}
	i.injected.Add(1)

	slog.Info("Packet injected", "pid", i.pid, "packet", packet)
	return nil
}

func (i *Interceptor) Stats() Stats {
	return Stats{
		Received:  i.received.Load(),
		Forwarded: i.forwarded.Load(),
		Modified:  i.modified.Load(),
		Dropped:   i.dropped.Load(),
		Injected:  i.injected.Load(),
		Errors:    i.errors.Load(),
	}
}

func (i *Interceptor) process(data []byte) error {
	i.received.Add(1)

	packet, err := Parse(data)
	if err != nil {
		// unknown traffic passes unchanged
		i.forwarded.Add(1)
		return errors.Join(err, i.divert.Send(data))
	}

	decision := i.decide(packet)

	switch decision.Action {
	case ActionModify:
		i.modified.Add(1)
		slog.Debug("Packet modified", "pid", i.pid, "packet", packet)
		return i.divert.Send(decision.Packet.Bytes())
	case ActionDrop:
		i.dropped.Add(1)
		slog.Debug("Packet dropped", "pid", i.pid, "packet", packet)
		return nil
	case ActionInject:
		i.forwarded.Add(1)
		if err := i.divert.Send(data); err != nil {
			return err
		}
		return i.Inject(decision.Packet)
	default:
		i.forwarded.Add(1)
		return i.divert.Send(data)
	}
}

func (i *Interceptor) decide(packet Packet) Decision {
	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, handler := range i.handlers {
		if decision := handler.HandleOutbound(packet); decision.Action != ActionForward {
			return decision
		}
	}
	return Forward()
}

func (LogHandler) HandleOutbound(packet Packet) Decision {
	slog.Debug("Outbound packet", "packet", packet)
	return Forward()
}

func (LogHandler) HandleInbound(packet Packet) Decision {
	slog.Debug("Inbound packet", "packet", packet)
	return Forward()
}
