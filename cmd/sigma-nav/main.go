package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigma-robotics/go-sigma/internal/config"
	"github.com/sigma-robotics/go-sigma/internal/log"
	"github.com/sigma-robotics/go-sigma/pkg/control"
	"github.com/sigma-robotics/go-sigma/pkg/nav"
	"github.com/sigma-robotics/go-sigma/pkg/planner"
	"github.com/sigma-robotics/go-sigma/pkg/rosbridge"
	"github.com/sigma-robotics/go-sigma/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (or set SIGMA_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	log.Info("sigma-nav starting",
		"planner", cfg.PlannerURL,
		"rosbridge", cfg.RosbridgeURL,
		"dashboard", cfg.DashboardAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	bridge, err := rosbridge.Dial(cfg.RosbridgeURL)
	if err != nil {
		log.Error("rosbridge connect failed", "err", err)
		os.Exit(1)
	}
	defer bridge.Close()

	base, err := rosbridge.NewBase(bridge)
	if err != nil {
		log.Error("cmd_vel advertise failed", "err", err)
		os.Exit(1)
	}

	controller := control.New(control.Gains{
		Kp:                cfg.Control.Kp,
		Ki:                cfg.Control.Ki,
		Kd:                cfg.Control.Kd,
		IntegratorBound:   cfg.Control.IntegratorBound,
		PositionThreshold: cfg.Control.PositionThreshold,
		ThetaThreshold:    cfg.Control.ThetaThreshold,
		CruiseVelocity:    cfg.Control.CruiseVelocity,
	})

	plannerClient := planner.New(cfg.PlannerURL)
	defer plannerClient.Close()

	navigator := nav.New(plannerClient, base, controller)
	plannerClient.OnModelUpdate(func(reason string) {
		navigator.RequestReset()
	})

	if err := base.Attach(navigator); err != nil {
		log.Error("topic subscribe failed", "err", err)
		os.Exit(1)
	}

	dashboard := web.NewServer(cfg.DashboardAddr, controller)
	navigator.SetStateUpdater(dashboard)
	dashboard.StartAsync()
	defer dashboard.Shutdown()

	go navigator.Run(ctx)

	// Run until told to stop or the bridge dies; in the latter case exit
	// nonzero and let supervision restart us with a fresh connection.
	select {
	case <-ctx.Done():
	case <-bridge.Done():
		log.Error("rosbridge connection lost", "err", bridge.Err())
		os.Exit(1)
	}
}
