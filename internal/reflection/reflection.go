// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package reflection

import (
	"reflect"
	"runtime"
	"strings"
)

// GetFunctionName returns the bare name of a function or method value, e.g. "Launch" for (*Supervisor).Launch.
// Mocks use it to register expectations without string literals.
func GetFunctionName(function any) string {
	fullPath := runtime.FuncForPC(reflect.ValueOf(function).Pointer()).Name()
	name := fullPath[strings.LastIndex(fullPath, ".")+1:]

	// method values carry a "-fm" suffix
	name, _, _ = strings.Cut(name, "-")

	return name
}
