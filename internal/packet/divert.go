// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package packet

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/siemens-healthineers/rocoknight/internal/process"
)

const mockQueueSize = 32

var ErrNotRunning = errors.New("divert handle not running")

// Divert captures and re-injects the traffic of one process
type Divert interface {
	Recv(ctx context.Context) ([]byte, error)
	Send(data []byte) error
	Close() error
}

// Opener opens a divert handle for the given process
type Opener func(pid process.PID) (Divert, error)

// MockDivert stands in for a packet capture driver. Recv only yields packets passed to Feed,
// Send only records the packets.
type MockDivert struct {
	pid     process.PID
	mu      sync.Mutex
	running bool
	queue   chan []byte
	stopped chan struct{}
	sent    [][]byte
}

func OpenMock(pid process.PID) (Divert, error) {
	slog.Info("Opening packet divert handle (mock)", "pid", pid)

	return &MockDivert{
		pid:     pid,
		running: true,
		queue:   make(chan []byte, mockQueueSize),
		stopped: make(chan struct{}),
	}, nil
}

// Recv blocks until a fed packet is available, the handle is closed or the context is done
func (d *MockDivert) Recv(ctx context.Context) ([]byte, error) {
	if !d.isRunning() {
		return nil, ErrNotRunning
	}

	select {
	case data := <-d.queue:
		return data, nil
	case <-d.stopped:
		return nil, ErrNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *MockDivert) Send(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrNotRunning
	}
	d.sent = append(d.sent, append([]byte(nil), data...))

	slog.Debug("Packet sent (mock, not on the wire)", "pid", d.pid, "size", len(data))
	return nil
}

// Feed queues a packet as if it was captured
func (d *MockDivert) Feed(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- append([]byte(nil), data...):
		return nil
	default:
		return errors.New("mock divert queue full")
	}
}

func (d *MockDivert) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([][]byte(nil), d.sent...)
}

func (d *MockDivert) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false
	close(d.stopped)

	slog.Info("Packet divert handle closed (mock)", "pid", d.pid)
	return nil
}

func (d *MockDivert) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.running
}
