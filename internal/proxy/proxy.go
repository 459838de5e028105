// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package proxy provides the login observer: a loopback MITM proxy the login web view is pointed at.
// It hands login responses to the capture processor and passes all traffic through unchanged.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/cloudflare/cfssl/whitelist"
	"github.com/elazarl/goproxy"
	"github.com/siemens-healthineers/rocoknight/internal/capture"
)

// ResponseProcessor inspects the responses of observed URLs
type ResponseProcessor interface {
	Observes(rawURL string) bool
	MaxResponseBytes() int
	HandleResponse(rawURL string, body []byte) (bool, error)
}

type Config struct {
	ListenAddress string
	AllowedCIDRs  NetworkCIDRs
	Verbose       bool
	CaCertFile    string
	CaKeyFile     string
}

type Server struct {
	config   Config
	server   *http.Server
	listener net.Listener
	done     chan error
}

const shutdownTimeout = 5 * time.Second

var httpsHosts = regexp.MustCompile(`^.*:443$`)

// NewHandler builds the proxy handler, restricted to the allowed client networks if any are given
func NewHandler(config Config, processor ResponseProcessor) (http.Handler, error) {
	proxy := goproxy.NewProxyHttpServer()
	proxy.Verbose = config.Verbose

	connectAction := goproxy.AlwaysMitm
	if config.CaCertFile != "" || config.CaKeyFile != "" {
		ca, err := loadCA(config.CaCertFile, config.CaKeyFile)
		if err != nil {
			return nil, err
		}
		customMitm := &goproxy.ConnectAction{Action: goproxy.ConnectMitm, TLSConfig: goproxy.TLSConfigFromCA(ca)}
		connectAction = func(host string, _ *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
			return customMitm, host
		}
		slog.Info("Login observer uses custom CA", "cert", config.CaCertFile)
	}

	proxy.OnRequest(goproxy.ReqHostMatches(httpsHosts)).HandleConnect(connectAction)
	proxy.OnResponse().DoFunc(func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
		return observeResponse(resp, ctx, processor)
	})

	if len(config.AllowedCIDRs) == 0 {
		slog.Warn("Login observer available on ALL network interfaces")
		return proxy, nil
	}

	allowedNets, err := config.AllowedCIDRs.ToIPNet()
	if err != nil {
		return nil, fmt.Errorf("invalid allowed CIDRs: %w", err)
	}

	slog.Debug("Login observer restricted to client networks", "cidrs", config.AllowedCIDRs.String())

	return whitelist.NewHandler(proxy, nil, newClientWhitelist(allowedNets))
}

func NewServer(config Config, processor ResponseProcessor) (*Server, error) {
	handler, err := NewHandler(config, processor)
	if err != nil {
		return nil, err
	}

	return &Server{
		config: config,
		server: &http.Server{Handler: handler, ReadHeaderTimeout: 30 * time.Second},
		done:   make(chan error, 1),
	}, nil
}

// Start listens and serves in the background until the context is done
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("login observer cannot listen on '%s': %w", s.config.ListenAddress, err)
	}
	s.listener = listener

	slog.Info("Login observer started", "address", listener.Addr().String())

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
			slog.Warn("Login observer shutdown failed", "error", err)
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

// Done delivers the serve result once the server stopped
func (s *Server) Done() <-chan error {
	return s.done
}

func observeResponse(resp *http.Response, ctx *goproxy.ProxyCtx, processor ResponseProcessor) *http.Response {
	if resp == nil || resp.Body == nil || ctx.Req == nil || ctx.Req.URL == nil {
		return resp
	}

	rawURL := ctx.Req.URL.String()
	if !processor.Observes(rawURL) {
		return resp
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		slog.Warn("Could not read login response", "url", capture.RedactURL(rawURL), "error", err)
		return resp
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Encoding"), resp.Header.Get("Content-Type"), processor.MaxResponseBytes())
	if err != nil {
		slog.Warn("Could not decode login response", "url", capture.RedactURL(rawURL), "error", err)
		return resp
	}

	if _, err := processor.HandleResponse(rawURL, body); err != nil {
		slog.Debug("Login response not captured", "url", capture.RedactURL(rawURL), "error", err)
	}
	return resp
}

func newClientWhitelist(allowedNets []*net.IPNet) *whitelist.BasicNet {
	wl := whitelist.NewBasicNet()
	for _, allowed := range allowedNets {
		wl.Add(allowed)
	}
	return wl
}

func loadCA(certFile, keyFile string) (*tls.Certificate, error) {
	ca, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("could not load CA key pair: %w", err)
	}
	if ca.Leaf, err = x509.ParseCertificate(ca.Certificate[0]); err != nil {
		return nil, fmt.Errorf("could not parse CA certificate: %w", err)
	}
	return &ca, nil
}
