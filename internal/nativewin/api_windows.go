// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package nativewin

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/siemens-healthineers/rocoknight/internal/process"
	"golang.org/x/sys/windows"
)

const (
	gwOwner = 4
	swHide  = 0

	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoZOrder     = 0x0004
	swpFrameChanged = 0x0020
	swpShowWindow   = 0x0040

	// applies the style change in place; geometry is left to move
	frameChangedFlags = swpFrameChanged | swpNoMove | swpNoSize | swpNoZOrder | swpShowWindow

	hwndTop = 0
)

var (
	gwlStyle = int32(-16)

	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindow                = user32.NewProc("GetWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowLong            = user32.NewProc(longPtrProcName("GetWindowLong"))
	procSetWindowLong            = user32.NewProc(longPtrProcName("SetWindowLong"))
	procSetParent                = user32.NewProc("SetParent")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procMoveWindow               = user32.NewProc("MoveWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetLastError             = kernel32.NewProc("SetLastError")

	// EnumWindows is synchronous, one enumeration at a time is enough
	enumLock     sync.Mutex
	enumPID      uint32
	enumFound    []candidate
	enumCallback = windows.NewCallback(enumWindowsProc)
)

type win32API struct{}

func newPlatformAPI() windowAPI {
	return win32API{}
}

// the Ptr variants only exist in 64-bit user32
func longPtrProcName(base string) string {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return base + "PtrW"
	}
	return base + "W"
}

func enumWindowsProc(hwnd uintptr, _ uintptr) uintptr {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid != enumPID {
		return 1
	}

	owner, _, _ := procGetWindow.Call(hwnd, gwOwner)
	visible, _, _ := procIsWindowVisible.Call(hwnd)

	enumFound = append(enumFound, candidate{
		id:      WindowIDFromRaw(hwnd),
		visible: visible != 0,
		owned:   owner != 0,
	})
	return 1
}

func (win32API) topLevelWindows(pid process.PID) ([]candidate, error) {
	enumLock.Lock()
	defer enumLock.Unlock()

	enumPID = pid.Raw()
	enumFound = nil

	ret, _, errno := procEnumWindows.Call(enumCallback, 0)
	if ret == 0 && !isSuccess(errno) {
		return nil, fmt.Errorf("EnumWindows: %w", errno)
	}

	found := enumFound
	enumFound = nil
	return found, nil
}

func (win32API) style(window WindowID) (Style, error) {
	procSetLastError.Call(0)

	// 0 is a legal style, only the last error tells failures apart
	ret, _, errno := procGetWindowLong.Call(window.raw, uintptr(gwlStyle))
	if ret == 0 && !isSuccess(errno) {
		return 0, fmt.Errorf("GetWindowLongPtr: %w", errno)
	}
	return Style(uint32(ret)), nil
}

func (win32API) setStyle(window WindowID, style Style) error {
	procSetLastError.Call(0)

	ret, _, errno := procSetWindowLong.Call(window.raw, uintptr(gwlStyle), uintptr(style))
	if ret == 0 && !isSuccess(errno) {
		return fmt.Errorf("SetWindowLongPtr: %w", errno)
	}
	return nil
}

func (win32API) setParent(child, parent WindowID) error {
	procSetLastError.Call(0)

	ret, _, errno := procSetParent.Call(child.raw, parent.raw)
	if ret == 0 && !isSuccess(errno) {
		return fmt.Errorf("SetParent: %w", errno)
	}
	return nil
}

func (win32API) frameChanged(window WindowID) error {
	ret, _, errno := procSetWindowPos.Call(window.raw, hwndTop, 0, 0, 0, 0, frameChangedFlags)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", errno)
	}
	return nil
}

func (win32API) move(window WindowID, rect Rect) error {
	ret, _, errno := procMoveWindow.Call(window.raw,
		uintptr(rect.X), uintptr(rect.Y), uintptr(rect.Width), uintptr(rect.Height),
		1)
	if ret == 0 {
		return fmt.Errorf("MoveWindow: %w", errno)
	}
	return nil
}

func (win32API) raise(window WindowID) error {
	ret, _, errno := procSetWindowPos.Call(window.raw, hwndTop, 0, 0, 0, 0, swpNoMove|swpNoSize|swpShowWindow)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", errno)
	}
	return nil
}

func (win32API) hide(window WindowID) error {
	// the return value is the previous visibility, not an error indicator
	procShowWindow.Call(window.raw, swHide)
	return nil
}

func isSuccess(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == 0
	}
	return err == nil
}
