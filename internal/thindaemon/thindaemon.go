// Package thindaemon implements the shared "thin core-bus client" shape
// spec.md §1 and SPEC_FULL.md §4.7 call for: deploymentd, ipcgatewayd and
// provisiond each construct a corebus.Client against the shared runtime and
// log startup/shutdown, with their domain logic (recipe parsing, IPC
// protocol handling, fleet-provisioning HTTP flows) explicitly out of
// scope. This package holds the one seam all three share so each cmd/ main
// is just its own name and config.
package thindaemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaneuver/corert/internal/corebus"
	"github.com/vaneuver/corert/internal/logging"
)

// Config names the daemon and where to find the config store it would, in
// a full implementation, read its settings from.
type Config struct {
	Name             string
	ConfigSocketPath string
	Log              *logging.Logger
}

// Run connects to configd as a smoke test of the shared runtime, then
// blocks until SIGINT/SIGTERM. It never returns a domain-specific error:
// a failed config connection is logged and retried, matching the
// reconnect-and-wait posture every other daemon in this runtime takes
// toward its dependencies.
func Run(ctx context.Context, cfg Config) {
	log := cfg.Log
	if log == nil {
		log = logging.Default()
	}
	log = log.With(cfg.Name)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("starting", "config_socket", cfg.ConfigSocketPath)
	connectToConfigd(ctx, log, cfg.ConfigSocketPath)

	<-ctx.Done()
	log.Info("stopped")
}

func connectToConfigd(ctx context.Context, log *logging.Logger, sockPath string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		client, err := corebus.Connect(sockPath)
		if err != nil {
			log.Warnf("configd not reachable yet: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				continue
			}
		}
		log.Info("connected to configd")
		_ = client.Close()
		return
	}
}
