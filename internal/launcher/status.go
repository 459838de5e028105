// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package launcher

import (
	"fmt"
	"strings"
)

type Status int

const (
	StatusLogin Status = iota
	StatusCapturing
	StatusFoundValue
	StatusLaunching
	StatusRunning
	StatusError
)

var statusNames = map[Status]string{
	StatusLogin:      "login",
	StatusCapturing:  "capturing",
	StatusFoundValue: "found_value",
	StatusLaunching:  "launching",
	StatusRunning:    "running",
	StatusError:      "error",
}

// StatusEvent is emitted on every status transition
type StatusEvent struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for status, candidate := range statusNames {
		if candidate == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status '%s'", text)
}
