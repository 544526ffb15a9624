package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/constants"
	"github.com/vaneuver/corert/internal/corebus"
	"github.com/vaneuver/corert/internal/logging"
	"github.com/vaneuver/corert/internal/mqtt"
)

const busEndpoint = "aws_iot_mqtt"
const configdEndpoint = "/aws/ggl/ggconfigd"

func main() {
	var (
		endpoint      string
		clientID      string
		rootCA        string
		cert          string
		key           string
		interfaceName string
		socketDir     string
		verbose       bool
	)

	root := &cobra.Command{
		Use:   "mqttbridged",
		Short: "MQTT client core, bridged onto the core-bus as aws_iot_mqtt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runConfig{
				endpoint:      endpoint,
				clientID:      clientID,
				rootCA:        rootCA,
				cert:          cert,
				key:           key,
				interfaceName: interfaceName,
				socketDir:     socketDir,
				verbose:       verbose,
			})
		},
	}

	flags := root.Flags()
	flags.StringVarP(&endpoint, "endpoint", "e", "", "IoT data endpoint host[:port], default port 8883")
	flags.StringVarP(&clientID, "id", "i", "", "MQTT client identifier")
	flags.StringVarP(&rootCA, "rootca", "r", "", "path to the root CA bundle")
	flags.StringVarP(&cert, "cert", "c", "", "path to the client certificate")
	flags.StringVarP(&key, "key", "k", "", "path to the client private key")
	flags.StringVarP(&interfaceName, "interface_name", "n", busEndpoint, "core-bus endpoint name to bind")
	flags.StringVar(&socketDir, "socket-dir", corebus.DefaultSocketDir, "directory core-bus endpoint sockets are rooted at")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type runConfig struct {
	endpoint, clientID, rootCA, cert, key, interfaceName, socketDir string
	verbose                                                        bool
}

func run(cfg runConfig) error {
	logConfig := logging.DefaultConfig()
	if cfg.verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)
	log := logger.With("mqttbridged")

	cfg = fillFromConfigd(cfg, log)

	if cfg.endpoint == "" || cfg.clientID == "" {
		log.Error("missing required configuration", "endpoint", cfg.endpoint, "id", cfg.clientID)
		os.Exit(1)
	}

	tlsConfig, err := mqtt.BuildTLSConfig(mqtt.TLSOptions{
		RootCAPath: cfg.rootCA,
		CertPath:   cfg.cert,
		KeyPath:    cfg.key,
		ServerName: cfg.endpoint,
	})
	if err != nil {
		log.Error("failed to build TLS configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := mqtt.NewPublishStore()
	registry := mqtt.NewRegistry()
	client := mqtt.NewClient(mqtt.ClientOptions{
		Addr:         withDefaultPort(cfg.endpoint),
		ClientID:     cfg.clientID,
		KeepAlive:    constants.DefaultKeepAlive,
		CleanSession: true,
		TLSConfig:    tlsConfig,
		Log:          log,
	}, store, registry)

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("mqtt client stopped", "error", err)
		}
	}()
	defer client.Close()

	server := mqtt.NewServer(client)
	bus := corebus.NewServer(log)
	bus.SetObserver(corert.NewMetrics())
	server.Register(bus)

	sockPath := corebus.EndpointSocketPath(cfg.socketDir, cfg.interfaceName)
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

	log.Info("listening", "endpoint", cfg.interfaceName, "socket", sockPath)
	if err := bus.Listen(sockPath); err != nil && !shuttingDown.Load() {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
	return nil
}

// fillFromConfigd fills any omitted runConfig field from configd, matching
// iotcored's "each omitted flag falls back to the corresponding config
// key" contract (system.thingName, system.iotDataEndpoint,
// system.certificateFilePath, system.privateKeyPath, system.rootCaPath). A
// configd that isn't reachable yet is logged and otherwise ignored: flags
// that were actually supplied still work standalone.
func fillFromConfigd(cfg runConfig, log *logging.Logger) runConfig {
	if cfg.endpoint != "" && cfg.clientID != "" && cfg.rootCA != "" && cfg.cert != "" && cfg.key != "" {
		return cfg
	}

	sockPath := corebus.EndpointSocketPath(cfg.socketDir, configdEndpoint)
	client, err := corebus.Connect(sockPath)
	if err != nil {
		log.Warnf("configd not reachable for config fallback, using flags only: %v", err)
		return cfg
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultConnectTimeout)
	defer cancel()

	if cfg.clientID == "" {
		cfg.clientID = configdReadString(ctx, client, log, "system", "thingName")
	}
	if cfg.endpoint == "" {
		cfg.endpoint = configdReadString(ctx, client, log, "system", "iotDataEndpoint")
	}
	if cfg.cert == "" {
		cfg.cert = configdReadString(ctx, client, log, "system", "certificateFilePath")
	}
	if cfg.key == "" {
		cfg.key = configdReadString(ctx, client, log, "system", "privateKeyPath")
	}
	if cfg.rootCA == "" {
		cfg.rootCA = configdReadString(ctx, client, log, "system", "rootCaPath")
	}
	return cfg
}

// configdReadString reads the string value at key_path segments from
// client, logging and returning "" on any failure (including NOENTRY, the
// expected case when the key was never provisioned).
func configdReadString(ctx context.Context, client *corebus.Client, log *logging.Logger, segments ...string) string {
	keyPath := make([]corert.Value, len(segments))
	for i, s := range segments {
		keyPath[i] = corert.StrVal(s)
	}
	result, err := client.Call(ctx, "read", corert.MapVal([]corert.KV{
		{Key: corert.Str("key_path"), Val: corert.ListVal(keyPath)},
	}))
	if err != nil {
		if !corert.IsKind(err, corert.KindNoEntry) {
			log.Warnf("configd read %v failed: %v", segments, err)
		}
		return ""
	}
	if result.Kind != corert.KindBuf {
		return ""
	}
	return result.Buf.String()
}

// withDefaultPort appends the default MQTT-over-TLS port if endpoint
// doesn't already specify one.
func withDefaultPort(endpoint string) string {
	for i := len(endpoint) - 1; i >= 0; i-- {
		if endpoint[i] == ':' {
			return endpoint
		}
		if endpoint[i] == ']' || endpoint[i] == '/' {
			break
		}
	}
	return endpoint + ":8883"
}
