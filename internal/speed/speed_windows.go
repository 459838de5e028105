// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package speed

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/siemens-healthineers/rocoknight/internal/process"
	"golang.org/x/sys/windows"
)

const (
	injectAccess = windows.PROCESS_CREATE_THREAD |
		windows.PROCESS_VM_OPERATION |
		windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_READ |
		windows.PROCESS_QUERY_INFORMATION

	remoteThreadTimeoutMillis = 10_000
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procVirtualAllocEx     = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = kernel32.NewProc("VirtualFreeEx")
	procCreateRemoteThread = kernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread  = kernel32.NewProc("GetExitCodeThread")
	procLoadLibraryW       = kernel32.NewProc("LoadLibraryW")
)

// layout of the shared block as read by the hook DLL
type sharedLayout struct {
	multiplier float64
	enabled    uint32
	_          [52]byte
}

type fileMapping struct {
	handle windows.Handle
	view   uintptr
}

type remoteInjector struct{}

func newPlatform() (sharedMemory, injector, error) {
	memory, err := createFileMapping(SharedMemoryName)
	if err != nil {
		return nil, nil, err
	}
	return memory, remoteInjector{}, nil
}

func createFileMapping(name string) (*fileMapping, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	size := uint32(unsafe.Sizeof(sharedLayout{}))
	handle, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, size, namePtr)
	if err != nil {
		return nil, fmt.Errorf("CreateFileMapping failed: %w", err)
	}

	view, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("MapViewOfFile failed: %w", err)
	}

	slog.Debug("Speed shared memory created", "name", name, "size", size)

	return &fileMapping{handle: handle, view: view}, nil
}

func (m *fileMapping) Write(settings Settings) error {
	if m.view == 0 {
		return ErrClosed
	}
	layout := (*sharedLayout)(unsafe.Pointer(m.view))
	layout.multiplier = settings.Multiplier
	layout.enabled = 0
	if settings.Enabled {
		layout.enabled = 1
	}
	return nil
}

func (m *fileMapping) Close() error {
	var errs []error
	if m.view != 0 {
		if err := windows.UnmapViewOfFile(m.view); err != nil {
			errs = append(errs, fmt.Errorf("UnmapViewOfFile failed: %w", err))
		}
		m.view = 0
	}
	if m.handle != 0 {
		if err := windows.CloseHandle(m.handle); err != nil {
			errs = append(errs, fmt.Errorf("CloseHandle failed: %w", err))
		}
		m.handle = 0
	}
	return errors.Join(errs...)
}

// Is32Bit reports true for WOW64 processes on 64-bit builds and always on 32-bit builds
func (remoteInjector) Is32Bit(pid process.PID) (bool, error) {
	if unsafe.Sizeof(uintptr(0)) == 4 {
		return true, nil
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, pid.Raw())
	if err != nil {
		return false, fmt.Errorf("OpenProcess failed: %w", err)
	}
	defer windows.CloseHandle(handle)

	var isWow64 bool
	if err := windows.IsWow64Process(handle, &isWow64); err != nil {
		return false, fmt.Errorf("IsWow64Process failed: %w", err)
	}
	return isWow64, nil
}

// Inject loads the DLL into the process by running LoadLibraryW on a remote thread
func (remoteInjector) Inject(pid process.PID, dllPath string) error {
	if err := procLoadLibraryW.Find(); err != nil {
		return err
	}

	dllPathUTF16, err := windows.UTF16FromString(dllPath)
	if err != nil {
		return err
	}

	handle, err := windows.OpenProcess(injectAccess, false, pid.Raw())
	if err != nil {
		return fmt.Errorf("OpenProcess failed: %w", err)
	}
	defer windows.CloseHandle(handle)

	remoteStr, err := allocWrite(handle, unsafe.Slice((*byte)(unsafe.Pointer(&dllPathUTF16[0])), len(dllPathUTF16)*2))
	if err != nil {
		return err
	}
	defer procVirtualFreeEx.Call(uintptr(handle), remoteStr, 0, windows.MEM_RELEASE)

	thread, _, callErr := procCreateRemoteThread.Call(uintptr(handle), 0, 0, procLoadLibraryW.Addr(), remoteStr, 0, 0)
	if thread == 0 {
		return fmt.Errorf("CreateRemoteThread LoadLibraryW failed: %w", callErr)
	}
	defer windows.CloseHandle(windows.Handle(thread))

	event, err := windows.WaitForSingleObject(windows.Handle(thread), remoteThreadTimeoutMillis)
	if err != nil {
		return fmt.Errorf("waiting for remote thread failed: %w", err)
	}
	if event != windows.WAIT_OBJECT_0 {
		slog.Warn("Speed hook remote thread did not finish in time", "pid", pid, "timeout-ms", remoteThreadTimeoutMillis)
		return nil
	}

	var module uint32
	procGetExitCodeThread.Call(thread, uintptr(unsafe.Pointer(&module)))
	if module == 0 {
		return errors.New("LoadLibraryW returned NULL")
	}
	return nil
}

func allocWrite(handle windows.Handle, data []byte) (uintptr, error) {
	address, _, callErr := procVirtualAllocEx.Call(uintptr(handle), 0, uintptr(len(data)), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if address == 0 {
		return 0, fmt.Errorf("VirtualAllocEx failed: %w", callErr)
	}

	var written uintptr
	err := windows.WriteProcessMemory(handle, address, &data[0], uintptr(len(data)), &written)
	if err == nil && written != uintptr(len(data)) {
		err = fmt.Errorf("%d of %d bytes written", written, len(data))
	}
	if err != nil {
		procVirtualFreeEx.Call(uintptr(handle), address, 0, windows.MEM_RELEASE)
		return 0, fmt.Errorf("WriteProcessMemory failed: %w", err)
	}
	return address, nil
}
