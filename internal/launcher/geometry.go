// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package launcher

import "github.com/siemens-healthineers/rocoknight/internal/nativewin"

// TargetRect is the host client area below the toolbar. The height never drops below one pixel.
func TargetRect(clientWidth, clientHeight, toolbarInset int32) nativewin.Rect {
	return nativewin.Rect{
		X:      0,
		Y:      toolbarInset,
		Width:  max(clientWidth, 1),
		Height: max(clientHeight-toolbarInset, 1),
	}
}
