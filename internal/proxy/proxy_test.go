// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"

	r "github.com/siemens-healthineers/rocoknight/internal/reflection"
	"github.com/stretchr/testify/mock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type processorMock struct {
	mock.Mock
}

func (m *processorMock) Observes(rawURL string) bool {
	return strings.Contains(rawURL, "/fcgi-bin/login3")
}

func (m *processorMock) MaxResponseBytes() int {
	return 1024
}

func (m *processorMock) HandleResponse(rawURL string, body []byte) (bool, error) {
	args := m.Called(rawURL, body)

	return args.Bool(0), args.Error(1)
}

var _ = Describe("login observer", func() {
	const html = `<script>function swf(){}</script><embed flashVars="config=c&angel_uin=1"/>`

	var (
		target    *httptest.Server
		processor *processorMock
	)

	get := func(handler http.Handler, path string) (*http.Response, string) {
		proxyServer := httptest.NewServer(handler)
		DeferCleanup(proxyServer.Close)

		proxyURL, err := url.Parse(proxyServer.URL)
		Expect(err).ToNot(HaveOccurred())

		client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
		resp, err := client.Get(target.URL + path)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		return resp, string(body)
	}

	BeforeEach(func() {
		target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(html))
		}))
		DeferCleanup(target.Close)

		processor = &processorMock{}
	})

	It("hands login responses to the processor and passes them through", func() {
		processor.On(r.GetFunctionName(processor.HandleResponse), target.URL+"/fcgi-bin/login3?uin=1", []byte(html)).Return(true, nil).Once()

		handler, err := NewHandler(Config{AllowedCIDRs: NetworkCIDRs{"127.0.0.0/8", "::1/128"}}, processor)
		Expect(err).ToNot(HaveOccurred())

		resp, body := get(handler, "/fcgi-bin/login3?uin=1")

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal(html))
		processor.AssertExpectations(GinkgoT())
	})

	It("ignores other responses", func() {
		handler, err := NewHandler(Config{}, processor)
		Expect(err).ToNot(HaveOccurred())

		resp, body := get(handler, "/index.html")

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal(html))
		processor.AssertNotCalled(GinkgoT(), r.GetFunctionName(processor.HandleResponse), mock.Anything, mock.Anything)
	})

	It("rejects clients outside the allowed networks", func() {
		handler, err := NewHandler(Config{AllowedCIDRs: NetworkCIDRs{"10.0.0.0/8"}}, processor)
		Expect(err).ToNot(HaveOccurred())

		resp, _ := get(handler, "/fcgi-bin/login3")

		Expect(resp.StatusCode).To(BeNumerically(">=", http.StatusBadRequest))
		processor.AssertNotCalled(GinkgoT(), r.GetFunctionName(processor.HandleResponse), mock.Anything, mock.Anything)
	})

	It("fails on a missing CA", func() {
		dir := GinkgoT().TempDir()

		_, err := NewHandler(Config{CaCertFile: filepath.Join(dir, "ca.pem"), CaKeyFile: filepath.Join(dir, "ca.key")}, processor)

		Expect(err).To(MatchError(ContainSubstring("could not load CA key pair")))
	})

	Describe("Server", func() {
		It("serves until the context is done", func() {
			sut, err := NewServer(Config{ListenAddress: "127.0.0.1:0"}, processor)
			Expect(err).ToNot(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			Expect(sut.Start(ctx)).To(Succeed())
			Expect(sut.Addr()).To(HavePrefix("127.0.0.1:"))

			cancel()

			Eventually(sut.Done()).Should(Receive(BeNil()))
		})
	})
})
