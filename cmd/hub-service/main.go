package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hub-service/internal/config"
	"hub-service/internal/core"
	"hub-service/internal/counter"
	"hub-service/internal/fieldbus"
	"hub-service/internal/hardware"
	"hub-service/internal/lighting"
	"hub-service/internal/logger"
	"hub-service/internal/telemetry"
	"hub-service/internal/web"
)

func main() {
	var (
		logLevel   int
		configPath string
		hubArg     string
		noHardware bool
	)
	flag.IntVar(&logLevel, "log", -1, "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG); overrides config")
	flag.StringVar(&configPath, "config", "/etc/hub-service/config.yaml", "Configuration file path")
	flag.StringVar(&hubArg, "hub", "", "Hub identity: red or blue (default: from hostname)")
	flag.BoolVar(&noHardware, "no-hardware", false, "Run with null sensor/LED/motor drivers")
	flag.Parse()

	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, journald adds its own timestamps.
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if logLevel >= 0 {
		cfg.LogLevel = logLevel
	}
	l := logger.New(stdLogger, logger.Level(cfg.LogLevel))

	hub := config.ResolveHub(hubArg)
	l.Infof("Starting hub service as %s", hub.Name)

	deps := core.Deps{
		FieldBus:  fieldbus.NewServer(cfg.FieldBusAddr, l),
		Telemetry: telemetry.NewClient(cfg.TelemetryPort, l),
		Lighting:  lighting.NewReceiver(int(cfg.LightingUniverse), l),
		Prefs:     &config.PrefStore{Path: cfg.StateFile},
	}

	if noHardware {
		l.Warnf("Running without hardware: counts come from the simulator only")
		deps.Sensors = counter.NullEngine{}
		deps.Strip = &hardware.NullStrip{}
		deps.Motors = hardware.NullMotors{}
	} else {
		rearm := time.Duration(cfg.RearmMs) * time.Millisecond
		deps.Sensors = counter.NewGpioEngine(cfg.SensorPins, rearm, l)

		strip, err := hardware.NewLedStrip(cfg.SpiDevice, cfg.LedCount)
		if err != nil {
			l.Errorf("LED strip unavailable, indicator disabled: %v", err)
			deps.Strip = &hardware.NullStrip{}
		} else {
			defer strip.Close()
			deps.Strip = strip
		}
		deps.Motors = hardware.NewPwmMotors(cfg.MotorPwmChip, cfg.MotorPwmChannels, l)
	}

	bcast := web.NewBroadcaster(l)
	deps.Broadcaster = bcast

	system := core.NewHubSystem(cfg, hub, deps, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start hub system: %v", err)
	}

	server := web.NewServer(cfg.HTTPAddr, system, bcast, l)
	go func() {
		if err := server.Start(); err != nil {
			l.Errorf("Dashboard server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		l.Warnf("Dashboard shutdown: %v", err)
	}
	system.Shutdown()
	l.Infof("Shutdown complete")
}
