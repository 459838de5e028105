// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package hostwindow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/siemens-healthineers/rocoknight/internal/nativewin"
	"golang.org/x/sys/windows"
)

const (
	wmDestroy = 0x0002
	wmSize    = 0x0005
	wmClose   = 0x0010
	wmApp     = 0x8000
	wmWake    = wmApp + 1

	sizeMinimized = 1

	wsOverlappedWindow = 0x00CF0000
	wsClipChildren     = 0x02000000

	cwUseDefault = 0x80000000

	smCxScreen = 0
	smCyScreen = 1

	swShow = 5

	idcArrow     = 32512
	colorWindow  = 5
	className    = "RocoKnightHost"
	wakeInFlight = 1
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassEx  = user32.NewProc("RegisterClassExW")
	procCreateWindowEx   = user32.NewProc("CreateWindowExW")
	procDefWindowProc    = user32.NewProc("DefWindowProcW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procUpdateWindow     = user32.NewProc("UpdateWindow")
	procGetMessage       = user32.NewProc("GetMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessage  = user32.NewProc("DispatchMessageW")
	procPostMessage      = user32.NewProc("PostMessageW")
	procPostQuitMessage  = user32.NewProc("PostQuitMessage")
	procGetClientRect    = user32.NewProc("GetClientRect")
	procAdjustWindowRect = user32.NewProc("AdjustWindowRect")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
	procLoadCursor       = user32.NewProc("LoadCursorW")
	procGetModuleHandle  = kernel32.NewProc("GetModuleHandleW")
	procSetLastError     = kernel32.NewProc("SetLastError")

	wndProcCallback = windows.NewCallback(wndProc)

	// the message loop serves exactly one host window
	active atomic.Pointer[Window]
)

type wndClassEx struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

type point struct {
	x, y int32
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
	private uint32
}

type rect struct {
	left, top, right, bottom int32
}

type Window struct {
	options  Options
	hwnd     atomic.Uintptr
	threadID atomic.Uint32
	waking   atomic.Int32
}

func New(options Options) *Window {
	options.setDefaults()
	return &Window{options: options}
}

// Run creates the window and runs the message loop on a locked OS thread until the window
// is closed or the context is done.
func (w *Window) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !active.CompareAndSwap(nil, w) {
		return fmt.Errorf("another host window is running")
	}
	defer active.Store(nil)

	w.threadID.Store(windows.GetCurrentThreadId())
	defer w.threadID.Store(0)

	hwnd, err := w.create()
	if err != nil {
		return err
	}
	w.hwnd.Store(hwnd)
	defer w.hwnd.Store(0)

	procShowWindow.Call(hwnd, swShow)
	procUpdateWindow.Call(hwnd)

	slog.Info("Host window created", "window", nativewin.WindowIDFromRaw(hwnd))

	stop := context.AfterFunc(ctx, func() {
		procPostMessage.Call(hwnd, wmClose, 0, 0)
	})
	defer stop()

	var m msg
	for {
		ret, _, callErr := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("GetMessage failed: %w", callErr)
		case 0:
			slog.Debug("Host window message loop finished")
			return ctx.Err()
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (w *Window) create() (uintptr, error) {
	classNamePtr, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return 0, err
	}
	titlePtr, err := windows.UTF16PtrFromString(w.options.Title)
	if err != nil {
		return 0, err
	}

	instance, _, _ := procGetModuleHandle.Call(0)
	cursor, _, _ := procLoadCursor.Call(0, idcArrow)

	class := wndClassEx{
		wndProc:    wndProcCallback,
		instance:   windows.Handle(instance),
		cursor:     windows.Handle(cursor),
		background: windows.Handle(colorWindow + 1),
		className:  classNamePtr,
	}
	class.size = uint32(unsafe.Sizeof(class))

	procSetLastError.Call(0)
	if ret, _, callErr := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&class))); ret == 0 {
		if callErr != windows.ERROR_CLASS_ALREADY_EXISTS {
			return 0, fmt.Errorf("RegisterClassEx failed: %w", callErr)
		}
	}

	width, height := w.outerSize()

	procSetLastError.Call(0)
	hwnd, _, callErr := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(classNamePtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		wsOverlappedWindow|wsClipChildren,
		cwUseDefault, cwUseDefault,
		uintptr(width), uintptr(height),
		0, 0,
		instance,
		0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowEx failed: %w", callErr)
	}
	return hwnd, nil
}

func (w *Window) outerSize() (int32, int32) {
	screenWidth, _, _ := procGetSystemMetrics.Call(smCxScreen)
	screenHeight, _, _ := procGetSystemMetrics.Call(smCyScreen)

	clientWidth, clientHeight := InitialClientSize(int32(screenWidth), int32(screenHeight), w.options.ScreenShare, w.options.ToolbarInset)

	bounds := rect{right: clientWidth, bottom: clientHeight}
	if ret, _, _ := procAdjustWindowRect.Call(uintptr(unsafe.Pointer(&bounds)), wsOverlappedWindow, 0); ret == 0 {
		return clientWidth, clientHeight
	}
	return bounds.right - bounds.left, bounds.bottom - bounds.top
}

func (w *Window) Window() (nativewin.WindowID, error) {
	hwnd := w.hwnd.Load()
	if hwnd == 0 {
		return nativewin.WindowID{}, ErrNotCreated
	}
	return nativewin.WindowIDFromRaw(hwnd), nil
}

func (w *Window) ClientSize() (int32, int32, error) {
	hwnd := w.hwnd.Load()
	if hwnd == 0 {
		return 0, 0, ErrNotCreated
	}

	var client rect
	procSetLastError.Call(0)
	if ret, _, callErr := procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&client))); ret == 0 {
		return 0, 0, fmt.Errorf("GetClientRect failed: %w", callErr)
	}
	return client.right - client.left, client.bottom - client.top, nil
}

// Wake makes the message loop call OnWake. Wakes coalesce until OnWake ran.
func (w *Window) Wake() {
	hwnd := w.hwnd.Load()
	if hwnd == 0 {
		return
	}
	if !w.waking.CompareAndSwap(0, wakeInFlight) {
		return
	}
	if ret, _, err := procPostMessage.Call(hwnd, wmWake, 0, 0); ret == 0 {
		w.waking.Store(0)
		slog.Warn("Could not wake host window", "error", err)
	}
}

func (w *Window) IsMainThread() bool {
	id := w.threadID.Load()
	return id != 0 && id == windows.GetCurrentThreadId()
}

func wndProc(hwnd uintptr, message uint32, wParam, lParam uintptr) (result uintptr) {
	w := active.Load()
	if w == nil || (w.hwnd.Load() != 0 && w.hwnd.Load() != hwnd) {
		ret, _, _ := procDefWindowProc.Call(hwnd, uintptr(message), wParam, lParam)
		return ret
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Host window message handler panicked", "message", message, "panic", r)
			result = 0
		}
	}()

	switch message {
	case wmWake:
		w.waking.Store(0)
		w.options.OnWake()
		return 0
	case wmSize:
		if wParam != sizeMinimized {
			w.options.OnResize()
		}
		return 0
	case wmClose:
		procDestroyWindow.Call(hwnd)
		return 0
	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}

	ret, _, _ := procDefWindowProc.Call(hwnd, uintptr(message), wParam, lParam)
	return ret
}
