// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

//go:build !windows

package process

import "os/exec"

func configureDetached(_ *exec.Cmd) { /*empty*/ }
