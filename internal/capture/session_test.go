// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture_test

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/siemens-healthineers/rocoknight/internal/capture"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("session", func() {
	Describe("NewSession", func() {
		It("creates unique tokens", func() {
			Expect(capture.NewSession().Token()).ToNot(Equal(capture.NewSession().Token()))
		})
	})

	Describe("WatchTimeout", func() {
		It("reports the session token after the timeout", func() {
			session := capture.NewSession()
			tokens := make(chan uuid.UUID, 1)

			go capture.WatchTimeout(session, 20*time.Millisecond, time.Millisecond, func(token uuid.UUID) {
				tokens <- token
			})

			Eventually(tokens).Should(Receive(Equal(session.Token())))
		})

		It("never fires for a stopped session", func() {
			session := capture.NewSession()
			var fired atomic.Bool
			done := make(chan struct{})

			go func() {
				defer close(done)
				capture.WatchTimeout(session, 50*time.Millisecond, time.Millisecond, func(uuid.UUID) {
					fired.Store(true)
				})
			}()

			session.Stop()

			Eventually(done).Should(BeClosed())
			Consistently(fired.Load, 80*time.Millisecond).Should(BeFalse())
		})
	})
})
