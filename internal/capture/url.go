// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const DefaultAssetBaseURL = "https://res.17roco.qq.com/main.swf"

var (
	ErrNoValue    = errors.New("flashVars value not found")
	ErrValidation = errors.New("flashVars value invalid")

	requiredMarkers = []string{"config=", "angel_uin="}
)

// Validate checks that the value carries the config pointer and the identity token
func Validate(value string) error {
	missing := lo.Filter(requiredMarkers, func(marker string, _ int) bool {
		return !strings.Contains(value, marker)
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// BuildAssetURL appends the parameter blob to the base URL behind a cache-busting nonce key
func BuildAssetURL(baseURL string, value string, now time.Time) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimLeft(strings.TrimSpace(value), "?"), "&")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty parameters", ErrValidation)
	}
	return fmt.Sprintf("%s?%s=&%s", baseURL, NonceKey(now), trimmed), nil
}

// NonceKey is the sub-second fraction of the given time as fixed-point decimal, e.g. "0.1234567890000000"
func NonceKey(now time.Time) string {
	return fmt.Sprintf("%.16f", float64(now.Nanosecond())/float64(time.Second))
}
