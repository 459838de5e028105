// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package packet_test

import (
	"context"
	"errors"

	"github.com/siemens-healthineers/rocoknight/internal/packet"
	"github.com/siemens-healthineers/rocoknight/internal/process"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type commandHandler struct {
	command  uint16
	decision packet.Decision
}

func (h commandHandler) HandleOutbound(p packet.Packet) packet.Decision {
	if p.Kind == packet.KindBinary && p.Command == h.command {
		return h.decision
	}
	return packet.Forward()
}

func (h commandHandler) HandleInbound(packet.Packet) packet.Decision {
	return packet.Forward()
}

var _ = Describe("MockDivert", func() {
	var sut *packet.MockDivert

	BeforeEach(func() {
		divert, err := packet.OpenMock(process.PIDFromRaw(7))
		Expect(err).ToNot(HaveOccurred())
		sut = divert.(*packet.MockDivert)
	})

	It("yields fed packets", func(ctx context.Context) {
		Expect(sut.Feed([]byte{1, 2})).To(Succeed())

		data, err := sut.Recv(ctx)

		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte{1, 2}))
	})

	It("records sent packets", func() {
		Expect(sut.Send([]byte{3})).To(Succeed())

		Expect(sut.Sent()).To(Equal([][]byte{[]byte{3}}))
	})

	It("stops receiving and sending once closed", func(ctx context.Context) {
		Expect(sut.Close()).To(Succeed())
		Expect(sut.Close()).To(Succeed())

		_, err := sut.Recv(ctx)
		Expect(err).To(MatchError(packet.ErrNotRunning))
		Expect(sut.Send([]byte{1})).To(MatchError(packet.ErrNotRunning))
		Expect(sut.Feed([]byte{1})).To(MatchError(packet.ErrNotRunning))
	})

	It("unblocks a pending Recv on close", func() {
		result := make(chan error, 1)
		go func() {
			_, err := sut.Recv(context.Background())
			result <- err
		}()

		Expect(sut.Close()).To(Succeed())

		Eventually(result).Should(Receive(MatchError(packet.ErrNotRunning)))
	})

	It("returns the context error when the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := sut.Recv(ctx)

		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Interceptor", func() {
	var (
		divert *packet.MockDivert
		sut    *packet.Interceptor
		done   chan struct{}
	)

	mapJump := packet.MapJump(1, 10)
	petStorage := packet.PetStorage(1, 2)

	BeforeEach(func() {
		opened, err := packet.OpenMock(process.PIDFromRaw(8))
		Expect(err).ToNot(HaveOccurred())
		divert = opened.(*packet.MockDivert)
		sut = packet.NewInterceptor(process.PIDFromRaw(8), divert)
		done = make(chan struct{})
	})

	run := func() {
		go func() {
			defer close(done)
			sut.Run(context.Background())
		}()
	}

	AfterEach(func() {
		Expect(divert.Close()).To(Succeed())
		Eventually(done).Should(BeClosed())
	})

	It("forwards packets no handler claims", func() {
		sut.RegisterHandler(packet.LogHandler{})
		run()

		Expect(divert.Feed(mapJump.Bytes())).To(Succeed())

		Eventually(divert.Sent).Should(Equal([][]byte{mapJump.Bytes()}))
		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 1, Forwarded: 1}))
	})

	It("drops packets", func() {
		sut.RegisterHandler(commandHandler{command: packet.CommandMapJump, decision: packet.Drop()})
		run()

		Expect(divert.Feed(mapJump.Bytes())).To(Succeed())
		Expect(divert.Feed(petStorage.Bytes())).To(Succeed())

		Eventually(divert.Sent).Should(Equal([][]byte{petStorage.Bytes()}))
		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 2, Forwarded: 1, Dropped: 1}))
	})

	It("replaces modified packets", func() {
		replacement := packet.MapJump(1, 20)
		sut.RegisterHandler(commandHandler{command: packet.CommandMapJump, decision: packet.Modify(replacement)})
		run()

		Expect(divert.Feed(mapJump.Bytes())).To(Succeed())

		Eventually(divert.Sent).Should(Equal([][]byte{replacement.Bytes()}))
		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 1, Modified: 1}))
	})

	It("sends injected packets after the original", func() {
		sut.RegisterHandler(commandHandler{command: packet.CommandMapJump, decision: packet.Inject(packet.PetEscape())})
		run()

		Expect(divert.Feed(mapJump.Bytes())).To(Succeed())

		Eventually(divert.Sent).Should(Equal([][]byte{mapJump.Bytes(), packet.PetEscape().Bytes()}))
		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 1, Forwarded: 1, Injected: 1}))
	})

	It("lets the first deciding handler win", func() {
		sut.RegisterHandler(commandHandler{command: packet.CommandMapJump, decision: packet.Drop()})
		sut.RegisterHandler(commandHandler{command: packet.CommandMapJump, decision: packet.Modify(petStorage)})
		run()

		Expect(divert.Feed(mapJump.Bytes())).To(Succeed())

		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 1, Dropped: 1}))
		Expect(divert.Sent()).To(BeEmpty())
	})

	It("passes unparsable packets through and counts an error", func() {
		run()

		Expect(divert.Feed([]byte{0x27, 0x95, 0x01})).To(Succeed())

		Eventually(divert.Sent).Should(Equal([][]byte{[]byte{0x27, 0x95, 0x01}}))
		Eventually(sut.Stats).Should(Equal(packet.Stats{Received: 1, Forwarded: 1, Errors: 1}))
	})

	It("stops when the divert handle closes", func() {
		run()

		Expect(divert.Close()).To(Succeed())

		Eventually(done).Should(BeClosed())
	})
})

var _ = Describe("Hook", func() {
	var (
		opened []*packet.MockDivert
		sut    *packet.Hook
		pid    = process.PIDFromRaw(9)
	)

	BeforeEach(func() {
		opened = nil
		sut = packet.NewHook(func(pid process.PID) (packet.Divert, error) {
			divert, err := packet.OpenMock(pid)
			opened = append(opened, divert.(*packet.MockDivert))
			return divert, err
		}, packet.LogHandler{})
	})

	AfterEach(func() {
		sut.Close()
	})

	It("is named", func() {
		Expect(sut.Name()).To(Equal("packet"))
	})

	It("opens one divert handle per process", func() {
		Expect(sut.OnProcessAttached(pid)).To(Succeed())
		Expect(sut.OnProcessAttached(pid)).To(Succeed())

		Expect(opened).To(HaveLen(1))
	})

	It("injects into the attached process", func() {
		Expect(sut.OnProcessAttached(pid)).To(Succeed())

		Expect(sut.Inject(packet.PetEscape())).To(Succeed())

		Expect(opened[0].Sent()).To(Equal([][]byte{packet.PetEscape().Bytes()}))
		stats, ok := sut.Stats()
		Expect(ok).To(BeTrue())
		Expect(stats.Injected).To(Equal(uint64(1)))
	})

	It("closes the divert handle on detach", func() {
		Expect(sut.OnProcessAttached(pid)).To(Succeed())

		sut.OnProcessDetached(pid)

		Expect(opened[0].Send([]byte{1})).To(MatchError(packet.ErrNotRunning))
		Expect(sut.Inject(packet.PetEscape())).To(MatchError(packet.ErrNotRunning))
		_, ok := sut.Stats()
		Expect(ok).To(BeFalse())
	})

	It("ignores detaching unknown processes", func() {
		Expect(func() { sut.OnProcessDetached(process.PIDFromRaw(1)) }).ToNot(Panic())
	})

	When("the divert handle cannot be opened", func() {
		It("returns an error", func() {
			failing := packet.NewHook(func(process.PID) (packet.Divert, error) {
				return nil, errors.New("oops")
			})

			err := failing.OnProcessAttached(pid)

			Expect(err).To(MatchError(ContainSubstring("oops")))
		})
	})
})
