// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	gp "github.com/shirou/gopsutil/v3/process"
)

// PID identifies an operating system process. Only compare for equality.
type PID struct {
	value uint32
}

// Handle owns a launched process. It is created by Supervisor.Launch and only consumed by the supervisor
// and the platform bridges.
type Handle struct {
	pid     PID
	cmd     *exec.Cmd
	exited  chan struct{}
	exitErr error
}

// Stats is a snapshot of a running process for diagnostics
type Stats struct {
	PID        uint32    `json:"pid"`
	Name       string    `json:"name"`
	Executable string    `json:"executable"`
	RSSBytes   uint64    `json:"rssBytes"`
	CPUPercent float64   `json:"cpuPercent"`
	StartedAt  time.Time `json:"startedAt"`
}

// Supervisor spawns and kills the external projector process. It keeps no state besides the handles it returns.
type Supervisor struct {
	configure func(cmd *exec.Cmd)
	lookup    func(pid int32) (*gp.Process, error)
}

var ErrNotStarted = errors.New("process not started")

// PIDFromRaw wraps an operating system process id, e.g. one reported by the window enumeration
func PIDFromRaw(raw uint32) PID {
	return PID{value: raw}
}

// Raw returns the operating system process id for native calls
func (p PID) Raw() uint32 {
	return p.value
}

func (p PID) String() string {
	return fmt.Sprintf("%d", p.value)
}

func (p PID) IsZero() bool {
	return p.value == 0
}

func (p PID) LogValue() slog.Value {
	return slog.Uint64Value(uint64(p.value))
}

// NewHandle returns a handle for a process that was not started by a Supervisor.
// Liveness and termination then go through the process table instead of the owned child.
func NewHandle(pid PID) *Handle {
	return &Handle{pid: pid}
}

func (h *Handle) PID() PID {
	return h.pid
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		configure: configureDetached,
		lookup:    gp.NewProcess,
	}
}

// Launch spawns the executable with the given argument. Standard I/O is not inherited and the child
// has no console. It does not wait for the child to become ready.
func (s *Supervisor) Launch(executablePath string, argument string) (*Handle, error) {
	cmd := exec.Command(executablePath, argument)
	cmd.Dir = filepath.Dir(executablePath)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	s.configure(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start '%s': %w", executablePath, err)
	}

	handle := &Handle{
		pid:    PIDFromRaw(uint32(cmd.Process.Pid)),
		cmd:    cmd,
		exited: make(chan struct{}),
	}

	go func() {
		handle.exitErr = cmd.Wait()
		close(handle.exited)

		slog.Debug("process exited", "pid", handle.pid, "error", handle.exitErr)
	}()

	slog.Info("process started", "pid", handle.pid, "executable", executablePath)

	return handle, nil
}

// Terminate force-kills the process. Errors are swallowed, calling it on a dead handle is safe.
func (s *Supervisor) Terminate(handle *Handle) {
	if handle == nil {
		return
	}
	if handle.cmd == nil {
		s.terminateForeign(handle)
		return
	}
	if !s.IsAlive(handle) {
		slog.Debug("process already exited", "pid", handle.pid)
		return
	}

	if err := handle.cmd.Process.Kill(); err != nil {
		slog.Debug("could not kill process", "pid", handle.pid, "error", err)
		return
	}
	slog.Info("process terminated", "pid", handle.pid)
}

// IsAlive reports whether the process is still running without blocking
func (s *Supervisor) IsAlive(handle *Handle) bool {
	if handle == nil {
		return false
	}
	if handle.exited == nil {
		alive, err := gp.PidExists(int32(handle.pid.value))
		return err == nil && alive
	}

	select {
	case <-handle.exited:
		return false
	default:
		return true
	}
}

// Stats queries resource usage of the running process
func (s *Supervisor) Stats(handle *Handle) (*Stats, error) {
	if handle == nil {
		return nil, ErrNotStarted
	}

	proc, err := s.lookup(int32(handle.pid.value))
	if err != nil {
		return nil, fmt.Errorf("could not find process %s: %w", handle.pid, err)
	}

	stats := &Stats{PID: handle.pid.value}

	var errs []error
	if stats.Name, err = proc.Name(); err != nil {
		errs = append(errs, err)
	}
	if stats.Executable, err = proc.Exe(); err != nil {
		errs = append(errs, err)
	}
	if memory, err := proc.MemoryInfo(); err != nil {
		errs = append(errs, err)
	} else {
		stats.RSSBytes = memory.RSS
	}
	if stats.CPUPercent, err = proc.CPUPercent(); err != nil {
		errs = append(errs, err)
	}
	if created, err := proc.CreateTime(); err != nil {
		errs = append(errs, err)
	} else {
		stats.StartedAt = time.UnixMilli(created)
	}

	if len(errs) > 0 {
		slog.Debug("process stats incomplete", "pid", handle.pid, "error", errors.Join(errs...))
	}
	return stats, nil
}

func (s *Supervisor) terminateForeign(handle *Handle) {
	proc, err := s.lookup(int32(handle.pid.value))
	if err != nil {
		slog.Debug("process not found", "pid", handle.pid, "error", err)
		return
	}
	if err := proc.Kill(); err != nil {
		slog.Debug("could not kill process", "pid", handle.pid, "error", err)
		return
	}
	slog.Info("process terminated", "pid", handle.pid)
}
