// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package speed controls the game speed of the embedded projector. A hook DLL injected into the
// projector reads the multiplier from a named shared memory block written by the Controller.
package speed

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/samber/lo"
	bos "github.com/siemens-healthineers/rocoknight/internal/os"
	"github.com/siemens-healthineers/rocoknight/internal/process"
)

const (
	SharedMemoryName = "rocoknight-speed"
	SharedMemorySize = 64

	DLLName32 = "speed_hook_32.dll"
	DLLName64 = "speed_hook_64.dll"

	MaxMultiplier     = 16.0
	DefaultMultiplier = 1.0

	hookName = "speed"
)

var (
	ErrInvalidMultiplier   = fmt.Errorf("multiplier must be greater than 0 and at most %v", MaxMultiplier)
	ErrUnsupportedPlatform = errors.New("speed control is only supported on Windows")
	ErrClosed              = errors.New("speed control closed")
)

// Settings is the state shared with the hook DLL
type Settings struct {
	Multiplier float64 `json:"multiplier"`
	Enabled    bool    `json:"enabled"`
}

type Options struct {
	// DLLDir contains the hook DLLs; relative paths are resolved against the executable directory
	DLLDir     string
	Multiplier float64
	Enabled    bool
}

type sharedMemory interface {
	Write(settings Settings) error
	Close() error
}

type injector interface {
	Is32Bit(pid process.PID) (bool, error)
	Inject(pid process.PID, dllPath string) error
}

// Controller owns the shared memory block and injects the hook DLL into attached projectors.
// It implements the launcher's post-launch hook.
type Controller struct {
	mu         sync.Mutex
	settings   Settings
	memory     sharedMemory
	injector   injector
	dllDir     string
	pathExists func(path string) bool
	injected   map[process.PID]string
}

func Validate(multiplier float64) error {
	if !(multiplier > 0 && multiplier <= MaxMultiplier) {
		return fmt.Errorf("%w, got %v", ErrInvalidMultiplier, multiplier)
	}
	return nil
}

// NewController creates the shared memory block and publishes the initial settings
func NewController(options Options) (*Controller, error) {
	memory, injector, err := newPlatform()
	if err != nil {
		return nil, err
	}
	return newController(options, memory, injector, bos.PathExists)
}

func newController(options Options, memory sharedMemory, injector injector, pathExists func(string) bool) (*Controller, error) {
	settings := Settings{
		Multiplier: lo.Ternary(options.Multiplier == 0, DefaultMultiplier, options.Multiplier),
		Enabled:    options.Enabled,
	}
	if err := Validate(settings.Multiplier); err != nil {
		memory.Close()
		return nil, err
	}
	if err := memory.Write(settings); err != nil {
		memory.Close()
		return nil, fmt.Errorf("could not initialize shared memory: %w", err)
	}

	dllDir, err := resolveDLLDir(options.DLLDir)
	if err != nil {
		memory.Close()
		return nil, err
	}

	slog.Debug("Speed control initialized", "multiplier", settings.Multiplier, "enabled", settings.Enabled, "dll-dir", dllDir)

	return &Controller{
		settings:   settings,
		memory:     memory,
		injector:   injector,
		dllDir:     dllDir,
		pathExists: pathExists,
		injected:   make(map[process.PID]string),
	}, nil
}

func (c *Controller) Name() string {
	return hookName
}

// OnProcessAttached injects the hook DLL matching the bitness of the process
func (c *Controller) OnProcessAttached(pid process.PID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.memory == nil {
		return ErrClosed
	}
	if _, ok := c.injected[pid]; ok {
		slog.Debug("Speed hook already injected", "pid", pid)
		return nil
	}

	is32Bit, err := c.injector.Is32Bit(pid)
	if err != nil {
		return fmt.Errorf("could not determine bitness of process %s: %w", pid, err)
	}

	dllPath := filepath.Join(c.dllDir, lo.Ternary(is32Bit, DLLName32, DLLName64))
	if !c.pathExists(dllPath) {
		return fmt.Errorf("speed hook DLL not found: %s", dllPath)
	}

	if err := c.injector.Inject(pid, dllPath); err != nil {
		return fmt.Errorf("could not inject speed hook into process %s: %w", pid, err)
	}
	c.injected[pid] = dllPath

	slog.Info("Speed hook injected", "pid", pid, "dll", dllPath)
	return nil
}

func (c *Controller) OnProcessDetached(pid process.PID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.injected, pid)
}

func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings
}

// Apply validates and publishes new settings; the hook DLL picks them up on its next read
func (c *Controller) Apply(settings Settings) error {
	if err := Validate(settings.Multiplier); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.memory == nil {
		return ErrClosed
	}
	if err := c.memory.Write(settings); err != nil {
		return fmt.Errorf("could not write speed settings: %w", err)
	}
	c.settings = settings

	slog.Info("Speed settings applied", "multiplier", settings.Multiplier, "enabled", settings.Enabled)
	return nil
}

func (c *Controller) SetMultiplier(multiplier float64) error {
	settings := c.Settings()
	settings.Multiplier = multiplier
	return c.Apply(settings)
}

// Injected reports whether the hook DLL was injected into the process
func (c *Controller) Injected(pid process.PID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.injected[pid]
	return ok
}

// Close releases the shared memory. Injected DLLs keep their last read value.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.memory == nil {
		return nil
	}
	err := c.memory.Close()
	c.memory = nil
	return err
}

func resolveDLLDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	exeDir, err := bos.ExecutableDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve speed hook DLL dir: %w", err)
	}
	return filepath.Join(exeDir, dir), nil
}
