// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package proxy

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/simplifiedchinese"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("decodeBody", func() {
	const html = `<embed flashVars="config=c&angel_uin=1"/>`

	It("passes plain UTF-8 bodies", func() {
		body, err := decodeBody([]byte(html), "", "text/html; charset=utf-8", 1024)

		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal(html))
	})

	It("decompresses gzip bodies", func() {
		var compressed bytes.Buffer
		writer := gzip.NewWriter(&compressed)
		_, err := writer.Write([]byte(html))
		Expect(err).ToNot(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		body, err := decodeBody(compressed.Bytes(), "gzip", "text/html", 1024)

		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal(html))
	})

	It("converts GBK bodies to UTF-8", func() {
		encoded, err := simplifiedchinese.GBK.NewEncoder().String("洛克王国 " + html)
		Expect(err).ToNot(HaveOccurred())

		body, err := decodeBody([]byte(encoded), "", "text/html; charset=gbk", 1024)

		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("洛克王国 " + html))
	})

	It("reads at most the limit", func() {
		body, err := decodeBody([]byte(html), "", "text/html; charset=utf-8", 6)

		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("<embed"))
	})

	It("rejects unsupported encodings", func() {
		_, err := decodeBody([]byte(html), "br", "text/html", 1024)

		Expect(err).To(MatchError(ContainSubstring("unsupported content encoding")))
	})

	It("rejects corrupt gzip bodies", func() {
		_, err := decodeBody([]byte(html), "gzip", "text/html", 1024)

		Expect(err).To(MatchError(ContainSubstring("invalid gzip body")))
	})
})
