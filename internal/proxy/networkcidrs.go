// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package proxy

import (
	"net"
	"strings"
)

// NetworkCIDRs are the client networks allowed to use the login observer
type NetworkCIDRs []string

func NewNetworkCIDRs(values ...string) (NetworkCIDRs, error) {
	cidrs := make(NetworkCIDRs, 0, len(values))
	for _, value := range values {
		if err := cidrs.Set(value); err != nil {
			return nil, err
		}
	}
	return cidrs, nil
}

func (i *NetworkCIDRs) String() string {
	return strings.Join([]string(*i), ",")
}

func (i *NetworkCIDRs) Set(value string) error {
	if _, _, err := net.ParseCIDR(value); err != nil {
		return err
	}
	*i = append(*i, value)
	return nil
}

func (i *NetworkCIDRs) ToIPNet() ([]*net.IPNet, error) {
	ipNets := make([]*net.IPNet, 0, len(*i))
	for _, cidrString := range *i {
		_, ipNet, err := net.ParseCIDR(cidrString)
		if err != nil {
			return nil, err
		}
		ipNets = append(ipNets, ipNet)
	}
	return ipNets, nil
}
