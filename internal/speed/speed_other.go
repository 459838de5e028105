// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

//go:build !windows

package speed

func newPlatform() (sharedMemory, injector, error) {
	return nil, nil, ErrUnsupportedPlatform
}
