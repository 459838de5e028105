// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

//go:build !windows

package hostwindow_test

import (
	"context"

	"github.com/siemens-healthineers/rocoknight/internal/hostwindow"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Window", func() {
	It("is not supported", func() {
		sut := hostwindow.New(hostwindow.Options{})

		Expect(sut.Run(context.Background())).To(MatchError(hostwindow.ErrUnsupportedPlatform))

		_, err := sut.Window()
		Expect(err).To(MatchError(hostwindow.ErrUnsupportedPlatform))
		Expect(sut.IsMainThread()).To(BeFalse())
	})
})
