// Command templog is the temperature logger daemon. Without stored Wi-Fi
// credentials it serves a setup page from its own access point; with them it
// joins the network, samples the sensor on a fixed interval and serves the
// recorded data.
//
// Run with --mock to use a simulated sensor and network (no hardware or
// NetworkManager required).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/micro-nova/templog/internal/api"
	"github.com/micro-nova/templog/internal/config"
	"github.com/micro-nova/templog/internal/controller"
	"github.com/micro-nova/templog/internal/events"
	"github.com/micro-nova/templog/internal/hardware"
	"github.com/micro-nova/templog/internal/identity"
	"github.com/micro-nova/templog/internal/maintenance"
	"github.com/micro-nova/templog/internal/models"
	"github.com/micro-nova/templog/internal/mqtt"
	"github.com/micro-nova/templog/internal/network"
	"github.com/micro-nova/templog/internal/reset"
	"github.com/micro-nova/templog/internal/timeseries"
)

// loopInterval is how often the control loop polls its timers and the reset
// button.
const loopInterval = 250 * time.Millisecond

type flags struct {
	configPath string
	dataDir    string
	addr       string
	mock       bool
}

func main() {
	var (
		cfgPath = flag.String("config", "/etc/templog/templog.yaml", "settings file (missing file uses defaults)")
		dataDir = flag.String("data-dir", "", "data directory (default from settings: "+config.DefaultDataDir+")")
		addr    = flag.String("addr", "", "HTTP listen address (default from settings: :80)")
		mock    = flag.Bool("mock", false, "use a simulated sensor, network and clock")
		debug   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	err := run(flags{configPath: *cfgPath, dataDir: *dataDir, addr: *addr, mock: *mock})
	if re, ok := controller.AsRestart(err); ok {
		slog.Info("restarting", "reason", re.Reason)
		if err := restart(); err != nil {
			slog.Error("restart failed", "err", err)
			os.Exit(1)
		}
		return
	}
	if err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// run boots the daemon and blocks until shutdown or until a restart is
// required, which it reports as a *controller.RestartError. Every resource
// is released before run returns.
func run(f flags) error {
	settings, err := config.LoadSettings(f.configPath)
	if err != nil {
		return err
	}
	if f.dataDir != "" {
		settings.DataDir = f.dataDir
	}
	if f.addr != "" {
		settings.Addr = f.addr
	}
	if f.mock {
		settings.Sensor.Backend = "mock"
		settings.Network.Backend = "none"
		settings.Reset.Backend = "none"
	}
	if err := os.MkdirAll(settings.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", settings.DataDir, err)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	id := identity.Load(settings.DataDir)
	slog.Info("starting", "hostname", id.Hostname, "version", id.Version, "data", settings.DataDir, "mock", f.mock)

	creds := config.NewJSONStore(settings.DataDir)
	samples := timeseries.New(filepath.Join(settings.DataDir, timeseries.FileName), settings.Sampling.WindowMax)

	sensor, err := hardware.OpenSensor(hardware.SensorOptions{
		Backend:     settings.Sensor.Backend,
		ThermalPath: settings.Sensor.ThermalPath,
		I2CBus:      settings.Sensor.I2CBus,
		I2CAddr:     uint16(settings.Sensor.I2CAddr),
		SerialPort:  settings.Sensor.SerialPort,
		SerialBaud:  settings.Sensor.SerialBaud,
	})
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	defer sensor.Close()

	assoc, clock := openNetwork(settings.Network)

	// Notification sinks: live web clients, plus the broker once connected.
	bus := events.NewBus()
	sinks := events.Multi{bus}

	// The button is watched before boot so a reset also works while the
	// controller is still retrying the network.
	press := reset.NewPressState(reset.Monotonic)
	trigger := reset.NewTrigger(press, settings.Reset.Hold)
	button, err := hardware.OpenButton(hardware.ButtonOptions{
		Backend: settings.Reset.Backend,
		Pin:     settings.Reset.Pin,
		Chip:    settings.Reset.Chip,
		Line:    settings.Reset.Line,
	})
	if err == nil {
		if err = button.Watch(press.Edge); err != nil {
			button.Close()
		}
	}
	if err != nil {
		slog.Warn("reset button unavailable", "backend", settings.Reset.Backend, "err", err)
	} else {
		defer button.Close()
	}

	ctrl := controller.New(controller.Deps{
		Credentials: creds,
		Samples:     samples,
		Sensor:      sensor,
		Network:     assoc,
		Clock:       clock,
		Sink:        &sinks,
		Trigger:     trigger,
		Identity:    id,
	}, controller.PolicyFromSettings(settings, identity.AccessPointSSID(id.Hostname)))

	mode, err := ctrl.Boot(ctx)
	if err != nil {
		return err
	}

	// Nothing publishes until the loop runs, so the sink list can still grow.
	if mode == models.ModeConnected {
		if sink := openMQTT(settings.MQTT); sink != nil {
			defer sink.Close()
			sinks = append(sinks, sink)
		}
	}

	watcher, err := config.Watch(creds, ctrl.CredentialsChanged)
	if err != nil {
		slog.Warn("credential file watch disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	if mode == models.ModeConnected {
		maint := maintenance.New(settings.Network.CheckAddr, 0, ctrl.SetOnline)
		go maint.Start(ctx)
	}

	// HTTP server
	router := api.NewRouter(ctrl, bus, api.Options{
		Mode:          mode,
		DefaultWindow: settings.Sampling.WindowDefault,
		RateLimit:     rate.Limit(settings.Server.RateLimitPerSec),
		RateBurst:     settings.Server.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:         settings.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE and /ws)
		IdleTimeout:  120 * time.Second,
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go func() {
		slog.Info("templog listening", "addr", settings.Addr, "mode", mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			stopLoop()
		}
	}()

	ticker := time.NewTicker(loopInterval)
	defer ticker.Stop()
	loopErr := ctrl.Run(loopCtx, ticker.C)

	// End the live feeds first; Shutdown waits for their handlers.
	bus.Close()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	if errors.Is(loopErr, context.Canceled) {
		if ctx.Err() != nil {
			return nil // signal
		}
		return errors.New("http server stopped")
	}
	return loopErr
}

// openMQTT connects the broker sink, or returns nil when no broker is
// configured or it cannot be reached. Samples are still logged and served
// locally without it.
func openMQTT(s config.MQTTSettings) *mqtt.Sink {
	if s.Broker == "" {
		return nil
	}
	pub, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   s.Broker,
		Topic:    s.Topic,
		ClientID: s.ClientID,
		Username: s.Username,
		Password: s.Password,
	})
	if err != nil {
		slog.Warn("mqtt disabled", "broker", s.Broker, "err", err)
		return nil
	}
	return mqtt.NewSink(pub)
}

// openNetwork returns the association and clock backends. The "none"
// backend pretends every call succeeds, for development hosts.
func openNetwork(s config.NetworkSettings) (network.Associator, network.Clock) {
	if s.Backend == "none" {
		slog.Info("network backend disabled")
		return &network.FakeAssociator{}, &network.FakeClock{}
	}
	return network.NewNetworkManager(s.Interface, 0), network.NewTimedated(0)
}
