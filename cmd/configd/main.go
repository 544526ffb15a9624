package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/configstore"
	"github.com/vaneuver/corert/internal/corebus"
	"github.com/vaneuver/corert/internal/logging"
)

const busEndpoint = "/aws/ggl/ggconfigd"

func main() {
	var (
		socketDir = flag.String("socket-dir", corebus.DefaultSocketDir, "directory core-bus endpoint sockets are rooted at")
		dataDir   = flag.String("data-dir", "/var/lib/corert/configd", "directory for the embedded key/value store")
		verbose   = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)
	log := logger.With("configd")

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	store, err := configstore.Open(*dataDir)
	if err != nil {
		log.Error("failed to open config store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	server := configstore.NewServer(store)
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
		_ = bus.Close()
	}()

	log.Info("listening", "endpoint", busEndpoint, "socket", sockPath, "data_dir", *dataDir)
	if err := bus.Listen(sockPath); err != nil && !shuttingDown.Load() {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}
