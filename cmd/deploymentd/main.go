package main

import (
	"context"
	"flag"

	"github.com/vaneuver/corert/internal/corebus"
	"github.com/vaneuver/corert/internal/logging"
	"github.com/vaneuver/corert/internal/thindaemon"
)

func main() {
	socketDir := flag.String("socket-dir", corebus.DefaultSocketDir, "directory core-bus endpoint sockets are rooted at")
	flag.Parse()

	logger := logging.NewLogger(logging.DefaultConfig())
	logging.SetDefault(logger)

	thindaemon.Run(context.Background(), thindaemon.Config{
		Name:             "deploymentd",
		ConfigSocketPath: corebus.EndpointSocketPath(*socketDir, "/aws/ggl/ggconfigd"),
		Log:              logger,
	})
}
