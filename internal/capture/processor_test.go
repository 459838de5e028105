// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package capture_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/capture"
	"github.com/siemens-healthineers/rocoknight/internal/reflection"
	"github.com/stretchr/testify/mock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sinkMock struct {
	mock.Mock
}

func (m *sinkMock) AcceptAssetURL(assetURL string) bool {
	args := m.Called(assetURL)

	return args.Bool(0)
}

var _ = Describe("processor", func() {
	const loginURL = "https://17roco.qq.com/fcgi-bin/login3?uin=1"

	var (
		sink    *sinkMock
		dumpDir string
		sut     *capture.Processor
	)

	validBody := []byte(`<script>function swf(){ write('<embed flashVars="config=c&angel_uin=1&skey=s"/>') }</script>`)
	now := time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC)

	BeforeEach(func() {
		sink = &sinkMock{}
		dumpDir = filepath.Join(GinkgoT().TempDir(), "logs")
		sut = capture.NewProcessor(capture.Options{
			DumpDir: dumpDir,
			Now:     func() time.Time { return now },
		}, sink)
	})

	Describe("Observes", func() {
		DescribeTable("matches the login path only", func(rawURL string, expected bool) {
			Expect(sut.Observes(rawURL)).To(Equal(expected))
		},
			Entry("login endpoint", loginURL, true),
			Entry("upper case path", "https://17roco.qq.com/FCGI-BIN/LOGIN3", true),
			Entry("other endpoint", "https://17roco.qq.com/fcgi-bin/other", false),
			Entry("needle in query only", "https://17roco.qq.com/index.html?next=/fcgi-bin/login3", false),
		)
	})

	Describe("HandleResponse", func() {
		It("ignores other endpoints", func() {
			accepted, err := sut.HandleResponse("https://17roco.qq.com/index.html", validBody)

			Expect(accepted).To(BeFalse())
			Expect(err).To(MatchError(capture.ErrNotObserved))
			sink.AssertNotCalled(GinkgoT(), reflection.GetFunctionName(sink.AcceptAssetURL), mock.Anything)
		})

		It("hands the asset URL to the sink", func() {
			expectedURL := "https://res.17roco.qq.com/main.swf?0.5000000000000000=&config=c&angel_uin=1&skey=s"
			sink.On(reflection.GetFunctionName(sink.AcceptAssetURL), expectedURL).Return(true).Once()

			accepted, err := sut.HandleResponse(loginURL, validBody)

			Expect(err).ToNot(HaveOccurred())
			Expect(accepted).To(BeTrue())
			sink.AssertExpectations(GinkgoT())
		})

		It("reports a rejected URL without error", func() {
			sink.On(reflection.GetFunctionName(sink.AcceptAssetURL), mock.Anything).Return(false).Once()

			accepted, err := sut.HandleResponse(loginURL, validBody)

			Expect(err).ToNot(HaveOccurred())
			Expect(accepted).To(BeFalse())
		})

		It("reports missing values and dumps the response", func() {
			accepted, err := sut.HandleResponse(loginURL, []byte("<html>no vars</html>"))

			Expect(accepted).To(BeFalse())
			Expect(err).To(MatchError(capture.ErrNoValue))
			sink.AssertNotCalled(GinkgoT(), reflection.GetFunctionName(sink.AcceptAssetURL), mock.Anything)

			dumped, readErr := os.ReadFile(filepath.Join(dumpDir, "login3_dump.html"))
			Expect(readErr).ToNot(HaveOccurred())
			Expect(string(dumped)).To(Equal("<html>no vars</html>"))
		})

		It("rejects values without identity", func() {
			accepted, err := sut.HandleResponse(loginURL, []byte(`<embed flashVars="config=c&skey=s"/>`))

			Expect(accepted).To(BeFalse())
			Expect(err).To(MatchError(capture.ErrValidation))
			sink.AssertNotCalled(GinkgoT(), reflection.GetFunctionName(sink.AcceptAssetURL), mock.Anything)
		})

		It("inspects at most the configured number of bytes", func() {
			limited := capture.NewProcessor(capture.Options{MaxResponseBytes: 64}, sink)
			body := []byte(strings.Repeat(" ", 64) + `<embed flashVars="config=c&angel_uin=1"/>`)

			_, err := limited.HandleResponse(loginURL, body)

			Expect(err).To(MatchError(capture.ErrNoValue))
		})
	})
})
