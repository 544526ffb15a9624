package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/corebus"
	"github.com/vaneuver/corert/internal/health"
	"github.com/vaneuver/corert/internal/logging"
)

const busEndpoint = "gg_health"

func main() {
	var (
		socketDir = flag.String("socket-dir", corebus.DefaultSocketDir, "directory core-bus endpoint sockets are rooted at")
		verbose   = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)
	log := logger.With("healthd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := health.NewClient(ctx)
	if err != nil {
		log.Error("failed to open system bus", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	watcher := health.NewSubscriptionWatcher(client)
	go watcher.Run(ctx)
	defer watcher.Close()

	server := health.NewServer(client, watcher, health.ExecNotifier{})
	bus := corebus.NewServer(log)
	bus.SetObserver(corert.NewMetrics())
	server.Register(bus)

	sockPath := corebus.EndpointSocketPath(*socketDir, busEndpoint)
	if err := os.MkdirAll(filepath.Dir(sockPath), 0o755); err != nil {
		log.Error("failed to create socket directory", "error", err)
		os.Exit(1)
	}

	var shuttingDown atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		shuttingDown.Store(true)
		cancel()
		_ = bus.Close()
	}()

	log.Info("listening", "endpoint", busEndpoint, "socket", sockPath)
	if err := bus.Listen(sockPath); err != nil && !shuttingDown.Load() {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}
