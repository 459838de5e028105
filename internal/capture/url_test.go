// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture_test

import (
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/capture"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("url", func() {
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

	Describe("Validate", func() {
		It("accepts values with config and identity", func() {
			Expect(capture.Validate("config=a&angel_uin=1")).To(Succeed())
		})

		DescribeTable("rejects incomplete values", func(value, missing string) {
			err := capture.Validate(value)

			Expect(err).To(MatchError(capture.ErrValidation))
			Expect(err).To(MatchError(ContainSubstring(missing)))
		},
			Entry("without config", "angel_uin=1", "config="),
			Entry("without identity", "config=a&angel_key=2", "angel_uin="),
		)
	})

	Describe("NonceKey", func() {
		It("formats the sub-second fraction with 16 decimals", func() {
			Expect(capture.NonceKey(now)).To(Equal("0.1234567890000000"))
		})
	})

	Describe("BuildAssetURL", func() {
		It("prefixes the nonce key and trims leading separators", func() {
			actual, err := capture.BuildAssetURL(capture.DefaultAssetBaseURL, "  ?&config=a&angel_uin=1 ", now)

			Expect(err).ToNot(HaveOccurred())
			Expect(actual).To(Equal("https://res.17roco.qq.com/main.swf?0.1234567890000000=&config=a&angel_uin=1"))
		})

		It("rejects empty values", func() {
			_, err := capture.BuildAssetURL(capture.DefaultAssetBaseURL, " ?& ", now)

			Expect(err).To(MatchError(capture.ErrValidation))
		})
	})
})
