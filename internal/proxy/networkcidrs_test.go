// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package proxy

import (
	"fmt"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NetworkCIDRs", func() {
	Describe("Set", func() {
		When("network CIDR is valid", func() {
			It("gets added successfully", func() {
				networkCidrs := NetworkCIDRs{}
				cidrToBeAdded := "127.0.0.0/8"

				Expect(networkCidrs.Set(cidrToBeAdded)).To(Succeed())
				Expect(networkCidrs).To(ContainElement(cidrToBeAdded))
			})
		})

		When("network CIDR is invalid", func() {
			It("does not get added", func() {
				networkCidrs := NetworkCIDRs{}

				Expect(networkCidrs.Set("abc")).ToNot(Succeed())
				Expect(networkCidrs).To(BeEmpty())
			})
		})
	})

	Describe("NewNetworkCIDRs", func() {
		It("rejects invalid values", func() {
			_, err := NewNetworkCIDRs("127.0.0.0/8", "localhost")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("String", func() {
		It("returns CIDRs as comma-separated string", func() {
			networkCIDRs, err := NewNetworkCIDRs("127.0.0.0/8", "::1/128")
			Expect(err).ToNot(HaveOccurred())

			Expect(networkCIDRs.String()).To(Equal(fmt.Sprintf("%s,%s", "127.0.0.0/8", "::1/128")))
		})

		It("returns empty string without CIDRs", func() {
			networkCIDRs := NetworkCIDRs{}

			Expect(networkCIDRs.String()).To(BeEmpty())
		})
	})

	Describe("ToIPNet", func() {
		It("converts all CIDRs", func() {
			networkCIDRs, err := NewNetworkCIDRs("127.0.0.0/8", "192.168.0.0/16")
			Expect(err).ToNot(HaveOccurred())

			ipNets, err := networkCIDRs.ToIPNet()

			Expect(err).ToNot(HaveOccurred())
			Expect(ipNets).To(HaveLen(2))
			Expect(ipNets[0].Contains(net.ParseIP("127.0.0.1"))).To(BeTrue())
			Expect(ipNets[1].Contains(net.ParseIP("127.0.0.1"))).To(BeFalse())
		})
	})
})
