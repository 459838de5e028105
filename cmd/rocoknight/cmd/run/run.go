// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	cc "github.com/siemens-healthineers/rocoknight/cmd/rocoknight/cmd/common"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/utils"
	"github.com/siemens-healthineers/rocoknight/cmd/rocoknight/utils/logging"
	"github.com/siemens-healthineers/rocoknight/internal/api"
	"github.com/siemens-healthineers/rocoknight/internal/capture"
	"github.com/siemens-healthineers/rocoknight/internal/config"
	"github.com/siemens-healthineers/rocoknight/internal/hostwindow"
	"github.com/siemens-healthineers/rocoknight/internal/launcher"
	bl "github.com/siemens-healthineers/rocoknight/internal/logging"
	"github.com/siemens-healthineers/rocoknight/internal/mainthread"
	"github.com/siemens-healthineers/rocoknight/internal/nativewin"
	"github.com/siemens-healthineers/rocoknight/internal/packet"
	"github.com/siemens-healthineers/rocoknight/internal/process"
	"github.com/siemens-healthineers/rocoknight/internal/proxy"
	"github.com/siemens-healthineers/rocoknight/internal/speed"

	"github.com/spf13/cobra"
)

const (
	projectorFlagName    = "projector"
	apiAddressFlagName   = "api-address"
	proxyAddressFlagName = "proxy-address"
	noProxyFlagName      = "no-proxy"
	speedFlagName        = "speed"
	dumpLoginFlagName    = "dump-login"

	logBusLimit         = 100
	logBusFlushInterval = 200 * time.Millisecond
)

type components struct {
	hub          *api.Hub
	dispatcher   *mainthread.Dispatcher
	window       *hostwindow.Window
	orchestrator *launcher.Orchestrator
	speed        *speed.Controller
	packets      *packet.Hook
	proxy        *proxy.Server
	api          *api.Server
	started      []startedServer
}

type startedServer struct {
	name string
	done <-chan error
}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Opens the launcher window and serves the control API",
		RunE:  runLauncher,
	}

	flags := cmd.Flags()
	flags.String(projectorFlagName, "", "path to the projector executable; searched next to the launcher if empty")
	flags.String(apiAddressFlagName, "", "listen address of the control API")
	flags.String(proxyAddressFlagName, "", "listen address of the login observer")
	flags.Bool(noProxyFlagName, false, "do not start the login observer")
	flags.Float64(speedFlagName, speed.DefaultMultiplier, fmt.Sprintf("initial speed multiplier in (0, %v]", speed.MaxMultiplier))
	flags.Bool(dumpLoginFlagName, false, "dump login responses without a login value to the log dir")
	flags.SortFlags = false

	return cmd
}

func runLauncher(cmd *cobra.Command, args []string) error {
	cmdContext, err := cc.CmdContextFrom(cmd.Context())
	if err != nil {
		return err
	}
	cfg := cmdContext.Config()

	slog.Info("Starting launcher", "platform", utils.Platform())

	hub := api.NewHub(api.DefaultLogHistory)
	logBus, err := bl.NewLogBuffer(bl.BufferConfig{Limit: logBusLimit, FlushFunc: hub.PublishLogs})
	if err != nil {
		return err
	}
	cmdContext.Logger().SetHandlers(append(cmdContext.LogHandlers(), logging.NewBusHandler(logBus))...).SetGlobally()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go logBus.FlushPeriodically(ctx, logBusFlushInterval)

	parts, err := wire(cfg, hub)
	if err != nil {
		parts.close()
		return err
	}
	defer func() {
		stop()
		parts.close()
	}()

	if err := parts.start(ctx, cfg); err != nil {
		return &cc.CmdFailure{
			Severity: cc.SeverityError,
			Code:     "startup-failed",
			Message:  err.Error(),
		}
	}

	hub.ShowLogin()

	err = parts.window.Run(ctx)
	if errors.Is(err, hostwindow.ErrUnsupportedPlatform) {
		slog.Warn("No native host window on this platform, running headless", "error", err)
		err = parts.dispatcher.Run(ctx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("Launcher shutting down")
	return nil
}

func wire(cfg *config.Config, hub *api.Hub) (*components, error) {
	parts := &components{hub: hub}

	parts.window = hostwindow.New(hostwindow.Options{
		Title:        cfg.Window.Title,
		ToolbarInset: cfg.Window.ToolbarInset,
		ScreenShare:  cfg.Window.ScreenShare,
		OnWake:       func() { parts.dispatcher.Drain() },
		OnResize:     func() { parts.orchestrator.HandleHostResized() },
	})
	parts.dispatcher = mainthread.New(mainthread.Options{
		Wake:         parts.window.Wake,
		IsMainThread: parts.window.IsMainThread,
	})

	var hooks []launcher.PostLaunchHook
	if cfg.Speed.Enabled {
		controller, err := speed.NewController(speed.Options{
			DLLDir:     cfg.Speed.DllDir,
			Multiplier: cfg.Speed.Multiplier,
			Enabled:    true,
		})
		if err != nil {
			slog.Warn("Speed control not available", "error", err)
		} else {
			parts.speed = controller
			hooks = append(hooks, controller)
		}
	}
	if cfg.Packet.Enabled {
		parts.packets = packet.NewHook(packet.OpenMock, packet.LogHandler{})
		hooks = append(hooks, parts.packets)
	}

	supervisor := process.NewSupervisor()

	parts.orchestrator = launcher.NewOrchestrator(
		launcher.Options{
			ToolbarInset:        cfg.Window.ToolbarInset,
			FindWindowTimeout:   cfg.Projector.FindWindowTimeout,
			CaptureTimeout:      cfg.Capture.Timeout,
			CapturePollInterval: cfg.Capture.PollInterval,
			RefitDelays:         cfg.Window.RefitDelays,
		},
		launcher.Dependencies{
			Host:       parts.window,
			Login:      hub,
			Locator:    config.NewProjectorLocator(cfg.Projector),
			Supervisor: supervisor,
			Bridge:     nativewin.NewBridge(),
			Scheduler:  parts.dispatcher,
			Hooks:      hooks,
		})
	parts.orchestrator.Subscribe(hub.OnStatus)

	processor := capture.NewProcessor(capture.Options{
		PathNeedle:       cfg.Capture.PathNeedle,
		AssetBaseURL:     cfg.Capture.AssetBaseURL,
		MaxResponseBytes: cfg.Capture.MaxResponseBytes,
		DumpDir:          cfg.DumpDir(),
	}, parts.orchestrator)

	if cfg.Proxy.Enabled {
		cidrs, err := proxy.NewNetworkCIDRs(cfg.Proxy.AllowedCIDRs...)
		if err != nil {
			return parts, fmt.Errorf("invalid proxy.allowedCIDRs: %w", err)
		}
		parts.proxy, err = proxy.NewServer(proxy.Config{
			ListenAddress: cfg.Proxy.ListenAddress,
			AllowedCIDRs:  cidrs,
			Verbose:       cfg.Proxy.Verbose,
			CaCertFile:    cfg.Proxy.CaCertFile,
			CaKeyFile:     cfg.Proxy.CaKeyFile,
		}, processor)
		if err != nil {
			return parts, fmt.Errorf("login observer not available: %w", err)
		}
	} else {
		slog.Info("Login observer disabled")
	}

	deps := api.Dependencies{
		Controller: parts.orchestrator,
		Responses:  processor,
		Processes:  supervisor,
		Hub:        hub,
	}
	if parts.speed != nil {
		deps.Speed = parts.speed
	}
	if parts.packets != nil {
		deps.Packets = parts.packets
	}

	gin.SetMode(gin.ReleaseMode)
	parts.api = api.NewServer(api.Config{ListenAddress: cfg.Api.ListenAddress}, deps)

	return parts, nil
}

func (c *components) start(ctx context.Context, cfg *config.Config) error {
	if c.proxy != nil {
		if err := c.proxy.Start(ctx); err != nil {
			return err
		}
		c.started = append(c.started, startedServer{name: "login observer", done: c.proxy.Done()})
		slog.Info("Login observer listening", "address", c.proxy.Addr())
	}
	if err := c.api.Start(ctx); err != nil {
		return err
	}
	c.started = append(c.started, startedServer{name: "control API", done: c.api.Done()})

	if c.speed != nil {
		slog.Info("Speed control ready", "multiplier", cfg.Speed.Multiplier)
	}
	return nil
}

// close tears down in reverse order of wiring. The servers stop once the run context is done.
func (c *components) close() {
	for i := len(c.started) - 1; i >= 0; i-- {
		waitDone(c.started[i].name, c.started[i].done)
	}

	c.dispatcher.Close()
	c.orchestrator.Close()

	if c.packets != nil {
		c.packets.Close()
	}
	if c.speed != nil {
		if err := c.speed.Close(); err != nil {
			slog.Warn("Speed control not closed cleanly", "error", err)
		}
	}
}

func waitDone(name string, done <-chan error) {
	slog.Debug("Waiting for server to stop", "server", name)

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("Server stopped with error", "server", name, "error", err)
		}
	case <-time.After(10 * time.Second):
		slog.Warn("Server did not stop in time", "server", name)
	}
}
