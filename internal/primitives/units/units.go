// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/alecthomas/units"
)

type BytesQuantity int64

const kibibyte = 1024.0

var byteUnits = []string{"B", "KiB", "MiB", "GiB"}

// ParseBytes parses base-2 byte sizes like "5MiB", "512Ki" or plain byte counts like "1500000".
func ParseBytes(input string) (BytesQuantity, error) {
	input = strings.TrimSpace(input)
	if strings.HasSuffix(input, "i") {
		input += "B"
	}
	if input != "" && strings.Trim(input, "0123456789") == "" {
		input += "B"
	}

	bytes, err := units.ParseBase2Bytes(input)
	if err != nil {
		return 0, fmt.Errorf("could not parse byte size '%s': %w", input, err)
	}
	if bytes < 0 {
		return 0, fmt.Errorf("byte size '%s' must not be negative", input)
	}
	return BytesQuantity(bytes), nil
}

func (quantity BytesQuantity) String() string {
	value := float64(quantity)
	for _, unit := range byteUnits {
		if math.Abs(value) < kibibyte {
			return format(value, unit)
		}
		value /= kibibyte
	}
	return format(value, "TiB")
}

func format(value float64, unit string) string {
	if value == math.Trunc(value) {
		return fmt.Sprintf("%.0f%s", value, unit)
	}
	return fmt.Sprintf("%.1f%s", value, unit)
}
