// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package launcher

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("emit", func() {
	var (
		sut      *Orchestrator
		received []StatusEvent
	)

	BeforeEach(func() {
		received = nil
		sut = &Orchestrator{observers: map[int]Observer{}}
		sut.Subscribe(func(event StatusEvent) { received = append(received, event) })
	})

	update := func(status Status) statusUpdate {
		sut.mu.Lock()
		defer sut.mu.Unlock()
		sut.state.status = status
		return sut.updateLocked()
	}

	It("drops an update that was overtaken by a newer one", func() {
		capturing := update(StatusCapturing)
		login := update(StatusLogin)

		sut.emit(login)
		sut.emit(capturing)

		Expect(received).To(Equal([]StatusEvent{{Status: StatusLogin}}))
	})

	It("delivers updates of one change in order", func() {
		found := update(StatusFoundValue)
		launching := update(StatusLaunching)

		sut.emit(found, launching)

		Expect(received).To(Equal([]StatusEvent{{Status: StatusFoundValue}, {Status: StatusLaunching}}))
	})
})
