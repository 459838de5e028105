// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package api provides the loopback control API of the UI shell: launcher commands over HTTP and
// status, login surface and log events over a websocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/siemens-healthineers/rocoknight/internal/launcher"
	"github.com/siemens-healthineers/rocoknight/internal/packet"
	"github.com/siemens-healthineers/rocoknight/internal/process"
	"github.com/siemens-healthineers/rocoknight/internal/speed"
)

// Controller is the launcher command surface
type Controller interface {
	StartCapture() error
	StopCapture() error
	Launch(assetURL string) error
	Stop() error
	Restart() error
	ResetToIdle() error
	Resize() error
	ChangeChannel() error
	Snapshot() launcher.Snapshot
	ProjectorProcess() (*process.Handle, bool)
}

// ResponseHandler receives login responses the UI shell observed itself
type ResponseHandler interface {
	HandleResponse(rawURL string, body []byte) (bool, error)
}

type ProcessStats interface {
	Stats(handle *process.Handle) (*process.Stats, error)
}

type SpeedControl interface {
	Settings() speed.Settings
	Apply(settings speed.Settings) error
}

type PacketControl interface {
	Inject(p packet.Packet) error
	Stats() (packet.Stats, bool)
}

type Config struct {
	ListenAddress string
}

// Dependencies of the API. Speed and Packets are optional.
type Dependencies struct {
	Controller Controller
	Responses  ResponseHandler
	Processes  ProcessStats
	Speed      SpeedControl
	Packets    PacketControl
	Hub        *Hub
}

type Server struct {
	config   Config
	server   *http.Server
	listener net.Listener
	done     chan error
}

type handlers struct {
	deps     Dependencies
	upgrader websocket.Upgrader
}

type captureResponseRequest struct {
	URL  string `json:"url" binding:"required"`
	Body string `json:"body"`
}

type captureResponseResult struct {
	Accepted bool `json:"accepted"`
}

type launchRequest struct {
	URL string `json:"url"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
	Enabled    *bool   `json:"enabled"`
}

type injectRequest struct {
	Type           string `json:"type" binding:"required"`
	QQNumber       uint64 `json:"qqNumber"`
	MapNumber      uint16 `json:"mapNumber"`
	SpiritPosition uint8  `json:"spiritPosition"`
}

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request-id"
	shutdownTimeout = 5 * time.Second
)

// NewRouter wires the routes. Call gin.SetMode before to silence gin's debug output.
func NewRouter(deps Dependencies) *gin.Engine {
	h := &handlers{
		deps:     deps,
		upgrader: websocket.Upgrader{CheckOrigin: isLocalOrigin},
	}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.CustomRecovery(recoverWithError))
	router.NoRoute(func(c *gin.Context) {
		writeError(c, fmt.Errorf("%w: %s %s", errNotFound, c.Request.Method, c.Request.URL.Path))
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", h.status)
		v1.POST("/reset", h.command(deps.Controller.ResetToIdle))
		v1.POST("/resize", h.command(deps.Controller.Resize))
		v1.POST("/channel", h.command(deps.Controller.ChangeChannel))
		v1.GET("/events", h.events)

		capture := v1.Group("/capture")
		{
			capture.POST("/start", h.command(deps.Controller.StartCapture))
			capture.POST("/stop", h.command(deps.Controller.StopCapture))
			capture.POST("/response", h.captureResponse)
		}

		projector := v1.Group("/projector")
		{
			projector.POST("/launch", h.launch)
			projector.POST("/stop", h.command(deps.Controller.Stop))
			projector.POST("/restart", h.command(deps.Controller.Restart))
			projector.GET("/stats", h.projectorStats)
		}

		v1.GET("/speed", h.speedSettings)
		v1.PUT("/speed", h.applySpeed)

		packets := v1.Group("/packet")
		{
			packets.GET("/stats", h.packetStats)
			packets.POST("/inject", h.injectPacket)
		}
	}
	return router
}

func NewServer(config Config, deps Dependencies) *Server {
	return &Server{
		config: config,
		server: &http.Server{Handler: NewRouter(deps), ReadHeaderTimeout: 10 * time.Second},
		done:   make(chan error, 1),
	}
}

// Start listens and serves in the background until the context is done
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("control API cannot listen on '%s': %w", s.config.ListenAddress, err)
	}
	s.listener = listener

	slog.Info("Control API started", "address", listener.Addr().String())

	go func() {
		err := s.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Control API shutdown failed", "error", err)
		}
	})
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Done() <-chan error {
	return s.done
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Controller.Snapshot())
}

// command runs a launcher command and answers with the resulting state
func (h *handlers) command(run func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := run(); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, h.deps.Controller.Snapshot())
	}
}

func (h *handlers) launch(c *gin.Context) {
	var request launchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	h.command(func() error { return h.deps.Controller.Launch(request.URL) })(c)
}

func (h *handlers) captureResponse(c *gin.Context) {
	var request captureResponseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	accepted, err := h.deps.Responses.HandleResponse(request.URL, []byte(request.Body))
	if err != nil && !isSoftCaptureError(err) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, captureResponseResult{Accepted: accepted})
}

func (h *handlers) projectorStats(c *gin.Context) {
	handle, running := h.deps.Controller.ProjectorProcess()
	if !running {
		writeError(c, fmt.Errorf("%w: no projector running", errNotFound))
		return
	}

	stats, err := h.deps.Processes.Stats(handle)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) speedSettings(c *gin.Context) {
	if h.deps.Speed == nil {
		writeError(c, fmt.Errorf("%w: speed control disabled", errNotFound))
		return
	}
	c.JSON(http.StatusOK, h.deps.Speed.Settings())
}

func (h *handlers) applySpeed(c *gin.Context) {
	if h.deps.Speed == nil {
		writeError(c, fmt.Errorf("%w: speed control disabled", errNotFound))
		return
	}

	var request speedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	settings := speed.Settings{
		Multiplier: request.Multiplier,
		Enabled:    lo.FromPtrOr(request.Enabled, h.deps.Speed.Settings().Enabled),
	}
	if err := h.deps.Speed.Apply(settings); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.deps.Speed.Settings())
}

func (h *handlers) packetStats(c *gin.Context) {
	if h.deps.Packets == nil {
		writeError(c, fmt.Errorf("%w: packet interception disabled", errNotFound))
		return
	}

	stats, running := h.deps.Packets.Stats()
	if !running {
		writeError(c, packet.ErrNotRunning)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) injectPacket(c *gin.Context) {
	if h.deps.Packets == nil {
		writeError(c, fmt.Errorf("%w: packet interception disabled", errNotFound))
		return
	}

	var request injectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	built, err := buildPacket(request)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.deps.Packets.Inject(built); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) events(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Debug("Websocket upgrade failed", "error", err)
		return
	}
	h.deps.Hub.serve(conn)
}

func buildPacket(request injectRequest) (packet.Packet, error) {
	switch request.Type {
	case "map_jump":
		return packet.MapJump(request.QQNumber, request.MapNumber), nil
	case "pet_storage":
		return packet.PetStorage(request.QQNumber, request.SpiritPosition), nil
	case "home_training":
		return packet.HomeTraining(request.QQNumber, request.SpiritPosition), nil
	case "pet_escape":
		return packet.PetEscape(), nil
	default:
		return packet.Packet{}, fmt.Errorf("%w: unknown packet type '%s'", errUnprocessable, request.Type)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		started := time.Now()

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		slog.Debug("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(started),
			requestIDKey, requestID)
	}
}

func recoverWithError(c *gin.Context, recovered any) {
	slog.Error("API handler panicked", "path", c.Request.URL.Path, "panic", recovered, requestIDKey, c.GetString(requestIDKey))
	writeError(c, fmt.Errorf("request failed unexpectedly: %v", recovered))
	c.Abort()
}

// isLocalOrigin accepts requests without origin and origins on loopback hosts
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
