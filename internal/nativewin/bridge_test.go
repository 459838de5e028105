// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package nativewin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/siemens-healthineers/rocoknight/internal/process"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeAPI emulates a tiny window manager keeping styles and parents per window
type fakeAPI struct {
	lock         sync.Mutex
	styles       map[WindowID]Style
	parents      map[WindowID]WindowID
	hidden       map[WindowID]bool
	moves        []Rect
	raised       int
	frames       int
	enumerations int
	appearAfter  int
	windows      []candidate
	enumErr      error
	setParentErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		styles:  map[WindowID]Style{},
		parents: map[WindowID]WindowID{},
		hidden:  map[WindowID]bool{},
	}
}

func (f *fakeAPI) topLevelWindows(process.PID) ([]candidate, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.enumerations++
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	if f.enumerations <= f.appearAfter {
		return nil, nil
	}
	return f.windows, nil
}

func (f *fakeAPI) style(window WindowID) (Style, error) {
	return f.styles[window], nil
}

func (f *fakeAPI) setStyle(window WindowID, style Style) error {
	f.styles[window] = style
	return nil
}

func (f *fakeAPI) setParent(child, parent WindowID) error {
	if f.setParentErr != nil {
		return f.setParentErr
	}
	f.parents[child] = parent
	return nil
}

func (f *fakeAPI) frameChanged(WindowID) error {
	f.frames++
	return nil
}

func (f *fakeAPI) move(_ WindowID, rect Rect) error {
	f.moves = append(f.moves, rect)
	return nil
}

func (f *fakeAPI) raise(WindowID) error {
	f.raised++
	return nil
}

func (f *fakeAPI) hide(window WindowID) error {
	f.hidden[window] = true
	return nil
}

var _ = Describe("nativewin pkg", func() {
	var (
		api    *fakeAPI
		sut    *NativeBridge
		child  WindowID
		parent WindowID
	)

	BeforeEach(func() {
		api = newFakeAPI()
		sut = &NativeBridge{api: api, pollInterval: time.Millisecond}
		child = WindowIDFromRaw(0x1001)
		parent = WindowIDFromRaw(0x2002)
	})

	Describe("EmbeddedStyle", func() {
		It("clears top-level bits and sets child bits", func() {
			const sysMenu Style = 0x00080000
			original := StyleOverlappedWindow | StylePopup | sysMenu

			actual := EmbeddedStyle(original)

			Expect(actual & StyleOverlappedWindow).To(BeZero())
			Expect(actual & StylePopup).To(BeZero())
			Expect(actual & StyleChild).To(Equal(StyleChild))
			Expect(actual & StyleVisible).To(Equal(StyleVisible))
		})

		It("keeps unrelated bits", func() {
			const clipChildren Style = 0x02000000

			Expect(EmbeddedStyle(clipChildren) & clipChildren).To(Equal(clipChildren))
		})
	})

	Describe("Attach and Detach", func() {
		It("restores the originally read style exactly", func() {
			const original Style = 0x16CF0000
			api.styles[child] = original

			captured, err := sut.Attach(child, parent)

			Expect(err).ToNot(HaveOccurred())
			Expect(captured).To(Equal(original))
			Expect(api.styles[child]).To(Equal(EmbeddedStyle(original)))
			Expect(api.parents[child]).To(Equal(parent))

			Expect(sut.Detach(child, captured)).To(Succeed())

			Expect(api.styles[child]).To(Equal(original))
			Expect(api.parents[child].IsZero()).To(BeTrue())
			Expect(api.frames).To(Equal(2))
		})

		It("rejects zero windows", func() {
			_, err := sut.Attach(WindowID{}, parent)

			Expect(err).To(MatchError(ErrInvalidWindow))
			Expect(sut.Detach(WindowID{}, 0)).To(MatchError(ErrInvalidWindow))
		})

		It("leaves the style untouched when reparenting fails", func() {
			api.styles[child] = StyleOverlappedWindow
			api.setParentErr = errors.New("access denied")

			_, err := sut.Attach(child, parent)

			Expect(err).To(MatchError(ContainSubstring("access denied")))
			Expect(api.styles[child]).To(Equal(StyleOverlappedWindow))
		})
	})

	Describe("Reposition, BringToTop and Hide", func() {
		It("forwards to the window API", func() {
			rect := Rect{X: 0, Y: 36, Width: 1024, Height: 732}

			Expect(sut.Hide(child)).To(Succeed())
			Expect(sut.Reposition(child, rect)).To(Succeed())
			Expect(sut.BringToTop(child)).To(Succeed())

			Expect(api.hidden[child]).To(BeTrue())
			Expect(api.moves).To(Equal([]Rect{rect}))
			Expect(api.raised).To(Equal(1))
		})
	})

	Describe("FindWindowByProcess", func() {
		pid := process.PIDFromRaw(4711)

		When("the window appears after a few polls", func() {
			It("returns it", func(ctx context.Context) {
				api.appearAfter = 3
				api.windows = []candidate{{id: child, visible: true}}

				actual, err := sut.FindWindowByProcess(ctx, pid, time.Second)

				Expect(err).ToNot(HaveOccurred())
				Expect(actual).To(Equal(child))
				Expect(api.enumerations).To(Equal(4))
			})
		})

		When("the window never appears", func() {
			It("returns not found after the timeout", func(ctx context.Context) {
				api.appearAfter = 1 << 30

				_, err := sut.FindWindowByProcess(ctx, pid, 30*time.Millisecond)

				Expect(err).To(MatchError(ErrWindowNotFound))
				Expect(api.enumerations).To(BeNumerically(">", 1))
			})
		})

		When("the enumeration fails", func() {
			It("returns the failure without retrying", func(ctx context.Context) {
				api.enumErr = errors.New("enum failed")

				_, err := sut.FindWindowByProcess(ctx, pid, time.Second)

				Expect(err).To(MatchError(ContainSubstring("enum failed")))
				Expect(err).ToNot(MatchError(ErrWindowNotFound))
				Expect(api.enumerations).To(Equal(1))
			})
		})

		When("the context is cancelled", func() {
			It("stops polling", func() {
				api.appearAfter = 1 << 30
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				_, err := sut.FindWindowByProcess(ctx, pid, time.Second)

				Expect(err).To(MatchError(context.Canceled))
			})
		})
	})

	Describe("pickWindow", func() {
		hidden := WindowIDFromRaw(1)
		owned := WindowIDFromRaw(2)
		visible := WindowIDFromRaw(3)

		It("prefers visible ownerless windows", func() {
			actual, ok := pickWindow([]candidate{{id: hidden}, {id: owned, visible: true, owned: true}, {id: visible, visible: true}})

			Expect(ok).To(BeTrue())
			Expect(actual).To(Equal(visible))
		})

		It("falls back to hidden ownerless windows", func() {
			actual, ok := pickWindow([]candidate{{id: owned, visible: true, owned: true}, {id: hidden}})

			Expect(ok).To(BeTrue())
			Expect(actual).To(Equal(hidden))
		})

		It("ignores owned windows", func() {
			_, ok := pickWindow([]candidate{{id: owned, visible: true, owned: true}})

			Expect(ok).To(BeFalse())
		})
	})
})
