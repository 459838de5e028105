// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siemens-healthineers/rocoknight/internal/api"
	"github.com/siemens-healthineers/rocoknight/internal/launcher"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type receivedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var _ = Describe("Hub", func() {
	Describe("PublishLogs", func() {
		It("keeps only the most recent lines", func() {
			sut := api.NewHub(3)

			sut.PublishLogs([]string{"1", "2"})
			sut.PublishLogs([]string{"3", "4"})
			sut.PublishLogs(nil)

			Expect(sut.LogHistory()).To(Equal([]string{"2", "3", "4"}))
		})
	})

	Describe("events endpoint", func() {
		var (
			sut    *api.Hub
			server *httptest.Server
		)

		BeforeEach(func() {
			sut = api.NewHub(0)
			controller := &controllerMock{}
			server = httptest.NewServer(api.NewRouter(api.Dependencies{Controller: controller, Hub: sut}))
			DeferCleanup(server.Close)
		})

		dial := func(header http.Header) *websocket.Conn {
			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
			conn, _, err := websocket.DefaultDialer.Dial(url, header)
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(conn.Close)
			return conn
		}

		read := func(conn *websocket.Conn) receivedMessage {
			var message receivedMessage
			Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
			Expect(conn.ReadJSON(&message)).To(Succeed())
			return message
		}

		It("replays the current state to new subscribers", func() {
			sut.ShowLogin()
			sut.OnStatus(launcher.StatusEvent{Status: launcher.StatusCapturing, Message: "Waiting for login"})
			sut.PublishLogs([]string{"line"})

			conn := dial(nil)

			surface := read(conn)
			Expect(surface.Type).To(Equal(api.MessageTypeLoginSurface))
			Expect(string(surface.Data)).To(MatchJSON(`{"visible":true}`))

			status := read(conn)
			Expect(status.Type).To(Equal(api.MessageTypeStatus))
			Expect(string(status.Data)).To(MatchJSON(`{"status":"capturing","message":"Waiting for login"}`))

			logs := read(conn)
			Expect(logs.Type).To(Equal(api.MessageTypeLogs))
			Expect(string(logs.Data)).To(MatchJSON(`{"lines":["line"]}`))
		})

		It("broadcasts status changes", func() {
			conn := dial(nil)
			Expect(read(conn).Type).To(Equal(api.MessageTypeLoginSurface))
			Eventually(sut.ClientCount).Should(Equal(1))

			sut.OnStatus(launcher.StatusEvent{Status: launcher.StatusRunning})

			status := read(conn)
			Expect(status.Type).To(Equal(api.MessageTypeStatus))
			Expect(string(status.Data)).To(MatchJSON(`{"status":"running"}`))
		})

		It("answers pings", func() {
			conn := dial(nil)
			Expect(read(conn).Type).To(Equal(api.MessageTypeLoginSurface))

			Expect(conn.WriteJSON(api.Message{Type: "ping"})).To(Succeed())

			Expect(read(conn).Type).To(Equal(api.MessageTypePong))
		})

		It("forgets disconnected subscribers", func() {
			conn := dial(nil)
			Expect(read(conn).Type).To(Equal(api.MessageTypeLoginSurface))
			Eventually(sut.ClientCount).Should(Equal(1))

			Expect(conn.Close()).To(Succeed())

			Eventually(sut.ClientCount).Should(Equal(0))
		})

		DescribeTable("checks the origin",
			func(origin string, allowed bool) {
				url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
				header := http.Header{}
				header.Set("Origin", origin)

				conn, response, err := websocket.DefaultDialer.Dial(url, header)

				if allowed {
					Expect(err).ToNot(HaveOccurred())
					conn.Close()
					return
				}
				Expect(err).To(HaveOccurred())
				Expect(response.StatusCode).To(Equal(http.StatusForbidden))
			},
			Entry("localhost", "http://localhost:1420", true),
			Entry("loopback IP", "http://127.0.0.1:5173", true),
			Entry("foreign site", "https://evil.example.com", false),
		)
	})
})
