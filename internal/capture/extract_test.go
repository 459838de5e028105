// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture_test

import (
	"github.com/siemens-healthineers/rocoknight/internal/capture"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const fullFlashVars = "config=http://res.17roco.qq.com/conf.xml&angel_uin=123&angel_key=abc&skey=def&pskey=ghi"

var _ = Describe("extract", func() {
	Describe("FindFlashVars", func() {
		It("finds the attribute inside the swf script block", func() {
			html := `<html><script>function swf(){ document.write('<embed src="main.swf" flashVars="` + fullFlashVars + `" />'); }</script></html>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal(fullFlashVars))
			Expect(value).To(ContainSubstring("config="))
			Expect(value).To(ContainSubstring("angel_uin="))
		})

		It("prefers the attribute after the script marker", func() {
			html := `<embed flashVars="config=old&angel_uin=1"/><script>function swf(){ x = '<embed FlashVars="config=new&angel_uin=2"/>' }</script>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal("config=new&angel_uin=2"))
		})

		It("searches the whole document without script marker", func() {
			html := `<embed FLASHVARS = 'config=c&angel_uin=7' />`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal("config=c&angel_uin=7"))
		})

		It("handles backslash-escaped attribute quotes", func() {
			html := `<script>function swf(){ document.write("<embed flashVars=\"config=xyz&angel_uin=1\" src=\"main.swf\">"); }</script>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(ContainSubstring("angel_uin=1"))
			Expect(value).To(Equal("config=xyz&angel_uin=1"))
		})

		It("keeps escaped quotes inside a plainly quoted value", func() {
			html := `<embed flashVars="config=\"q\"&angel_uin=3" src="main.swf">`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal(`config="q"&angel_uin=3`))
		})

		It("resolves escapes inside the value", func() {
			html := `<embed flashVars="config=a\tb&angel_uin=\'1\'"/>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal("config=a\tb&angel_uin='1'"))
		})

		It("finds double-encoded markup after unescaping the document", func() {
			html := `var markup = "<embed flashVars=\\\"config=z&angel_uin=5\\\">";`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal("config=z&angel_uin=5"))
		})

		It("supports the param element form", func() {
			html := `<object><param name="movie" value="main.swf"><param name="FlashVars" value="config=p&angel_uin=9"></object>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeTrue())
			Expect(value).To(Equal("config=p&angel_uin=9"))
		})

		It("returns no value without flashVars", func() {
			html := `<html><script>function swf(){ return 1; }</script><embed src="main.swf"/></html>`

			value, found := capture.FindFlashVars(html)

			Expect(found).To(BeFalse())
			Expect(value).To(BeEmpty())
		})

		It("returns no value for unterminated attributes", func() {
			_, found := capture.FindFlashVars(`<embed flashVars="config=a&angel_uin=1`)

			Expect(found).To(BeFalse())
		})

		It("ignores the attribute name without assignment", func() {
			_, found := capture.FindFlashVars(`flashVars is not set here`)

			Expect(found).To(BeFalse())
		})
	})

	Describe("Unescape", func() {
		DescribeTable("resolves escapes", func(input, expected string) {
			Expect(capture.Unescape(input)).To(Equal(expected))
		},
			Entry("quotes", `a=\"b\"`, `a="b"`),
			Entry("single quotes", `\'x\'`, `'x'`),
			Entry("backslash", `c:\\dir`, `c:\dir`),
			Entry("control chars", `1\n2\r3\t4`, "1\n2\r3\t4"),
			Entry("unknown escapes are kept", `\u0041\x`, `\u0041\x`),
			Entry("trailing backslash", `end\`, `end\`),
			Entry("non-ASCII text", `洛克\"王国\"`, `洛克"王国"`),
		)
	})
})
