// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package mainthread queues work for the thread that owns the native windows.
// Native window calls must run on the thread running the host window's message loop; other goroutines post to it.
package mainthread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultCapacity = 256

var (
	ErrQueueFull = errors.New("main thread queue is full")

	errClosed = errors.New("main thread dispatcher closed")
)

type Options struct {
	// Capacity limits the number of pending tasks
	Capacity int
	// Wake notifies the message loop that tasks are pending, e.g. by posting a window message
	Wake func()
	// IsMainThread reports whether the caller runs on the main thread; Call runs inline then
	IsMainThread func() bool
}

type Dispatcher struct {
	mu       sync.Mutex
	pending  []func()
	capacity int
	closed   bool
	signal   chan struct{}
	wake     func()
	isMain   func() bool
}

func New(options Options) *Dispatcher {
	if options.Capacity <= 0 {
		options.Capacity = DefaultCapacity
	}
	if options.Wake == nil {
		options.Wake = func() {}
	}
	if options.IsMainThread == nil {
		options.IsMainThread = func() bool { return false }
	}

	return &Dispatcher{
		capacity: options.Capacity,
		signal:   make(chan struct{}, 1),
		wake:     options.Wake,
		isMain:   options.IsMainThread,
	}
}

// Post enqueues the task and wakes the loop. Tasks posted after Close are dropped.
func (d *Dispatcher) Post(task func()) error {
	err := d.enqueue(task)
	if errors.Is(err, errClosed) {
		slog.Debug("main thread closed, task dropped")
		return nil
	}
	return err
}

// enqueue checks for close and appends under one lock, so a queued task is always run by Drain or Close
func (d *Dispatcher) enqueue(task func()) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errClosed
	}
	if len(d.pending) >= d.capacity {
		d.mu.Unlock()
		slog.Warn("main thread queue full, task dropped", "capacity", d.capacity)
		return ErrQueueFull
	}
	d.pending = append(d.pending, task)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
	d.wake()
	return nil
}

// PostAfter posts the task once the delay elapsed
func (d *Dispatcher) PostAfter(delay time.Duration, task func()) {
	time.AfterFunc(delay, func() {
		if err := d.Post(task); err != nil {
			slog.Warn("delayed task dropped", "delay", delay, "error", err)
		}
	})
}

// Call runs the task on the main thread and waits for its result.
// It runs inline when called on the main thread or after the dispatcher was closed.
func (d *Dispatcher) Call(task func() error) error {
	if d.isMain() || d.isClosed() {
		return runGuarded(task)
	}

	done := make(chan error, 1)
	run := func() { done <- runGuarded(task) }

	err := d.enqueue(run)
	if errors.Is(err, errClosed) {
		run()
	} else if err != nil {
		return fmt.Errorf("posting to main thread: %w", err)
	}
	return <-done
}

// Drain runs all pending tasks. It must be called on the main thread.
func (d *Dispatcher) Drain() {
	for {
		d.mu.Lock()
		tasks := d.pending
		d.pending = nil
		d.mu.Unlock()

		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			runTask(task)
		}
	}
}

// Run drains the queue whenever tasks are posted until the context is done.
// It serves platforms and tests without a native message loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.signal:
			d.Drain()
		}
	}
}

// Close stops accepting tasks and runs the ones still pending so that waiting callers return
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	tasks := d.pending
	d.pending = nil
	d.mu.Unlock()

	slog.Debug("main thread dispatcher closed", "pending", len(tasks))

	for _, task := range tasks {
		runTask(task)
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("main thread task panicked", "panic", r)
		}
	}()
	task()
}

func runGuarded(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("main thread task panicked: %v", r)
		}
	}()
	return task()
}
