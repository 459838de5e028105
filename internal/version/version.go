// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package version

import (
	"fmt"
	"runtime"
)

// Version information set by link flags during build.
// We fall back to these default values when we build outside the build context (e.g. go run, go build, or go test).
var (
	version      = "0.0.0"                // value from VERSION file
	buildDate    = "1970-01-01T00:00:00Z" // output from `date -u +'%Y-%m-%dT%H:%M:%SZ'`
	gitCommit    = ""                     // output from `git rev-parse HEAD`
	gitTag       = ""                     // output from `git describe --tags HEAD` (if clean tree state)
	gitTreeState = ""                     // either 'clean' or 'dirty'
)

// Version contains base version information
type Version struct {
	Version      string `json:"version"`
	BuildDate    string `json:"buildDate"`
	GitCommit    string `json:"gitCommit,omitempty"`
	GitTag       string `json:"gitTag,omitempty"`
	GitTreeState string `json:"gitTreeState,omitempty"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

func (v Version) String() string {
	return v.Version
}

// GetVersion returns the version information
func GetVersion() Version {
	return Version{
		Version:      versionString(version, gitCommit, gitTag, gitTreeState),
		BuildDate:    buildDate,
		GitCommit:    gitCommit,
		GitTag:       gitTag,
		GitTreeState: gitTreeState,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Print prints the version for the given CLI. If no print function is provided, it defaults to fmt.Printf.
func (v Version) Print(cliName string, printFuncs ...func(format string, a ...any)) {
	printFunc := func(format string, a ...any) {
		fmt.Printf(format, a...)
	}
	if len(printFuncs) > 0 {
		printFunc = printFuncs[0]
	}

	printFunc("%s: %s\n", cliName, v)
	printFunc("  BuildDate: %s\n", v.BuildDate)
	printFunc("  GitCommit: %s\n", v.GitCommit)
	if v.GitTag != "" {
		printFunc("  GitTag: %s\n", v.GitTag)
	}
	printFunc("  GoVersion: %s\n", v.GoVersion)
	printFunc("  Platform: %s\n", v.Platform)
}

func versionString(base, commit, tag, treeState string) string {
	// a clean, tagged commit is an official release
	if commit != "" && tag != "" && treeState == "clean" {
		return tag
	}

	result := "v" + base
	if len(commit) < 7 {
		return result + "+unknown"
	}

	result += "+" + commit[0:7]
	if treeState != "clean" {
		result += ".dirty"
	}
	return result
}
