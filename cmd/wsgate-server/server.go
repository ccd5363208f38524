package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/adapter"
	"github.com/villekr/wsgate/internal/capture"
	"github.com/villekr/wsgate/internal/config"
	"github.com/villekr/wsgate/internal/logging"
	"github.com/villekr/wsgate/internal/metrics"
	"github.com/villekr/wsgate/internal/server"
)

// Server command flags
var (
	host         string
	port         int
	path         string
	certPath     string
	keyPath      string
	generateCert bool
	logLevel     string
	policy       string
	required     string
	supported    []string
	captureDir   string
	announce     string
	metricsPath  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the WebSocket server",
	Long: `Start the gateway and accept WebSocket connections.

With the "required" policy (default) a connection is accepted only when the
peer offers the required subprotocol. With the "preferred" policy the first
identifier of the supported list that the peer offered wins.

TLS is enabled when --cert and --key are given, or with --generate-cert for
a self-signed certificate.`,
	Example: `  # Plain WebSocket on the default port 9000
  wsgate-server server

  # Accept the best of several OCPP versions
  wsgate-server server --policy preferred --supported ocpp2.0.1,ocpp1.6

  # TLS with a self-signed certificate, announced on the local network
  wsgate-server server --generate-cert --announce "Depot A"

  # Record received messages for later analysis
  wsgate-server server --capture-dir ./captures --log-level debug`,
	RunE: runServer,
}

func init() {
	f := serverCmd.Flags()
	f.StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	f.IntVar(&port, "port", 9000, "Listen port")
	f.StringVar(&path, "path", "/", "URL path prefix accepting connections")
	f.StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	f.StringVar(&keyPath, "key", "", "Path to TLS private key file")
	f.BoolVar(&generateCert, "generate-cert", false, "Serve TLS with a self-signed certificate")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&policy, "policy", "required", "Subprotocol policy (required, preferred)")
	f.StringVar(&required, "required", "ocpp2.0.1", "Subprotocol demanded by the required policy")
	f.StringSliceVar(&supported, "supported", nil, "Ordered subprotocols for the preferred policy")
	f.StringVar(&captureDir, "capture-dir", "", "Directory to record received messages (disabled if not specified)")
	f.StringVar(&announce, "announce", "", "mDNS instance name to announce (disabled if not specified)")
	f.StringVar(&metricsPath, "metrics-path", "/metrics", "Prometheus endpoint path (empty disables it)")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host = host
	}
	if f.Changed("port") {
		cfg.Server.Port = port
	}
	if f.Changed("path") {
		cfg.Server.Path = path
	}
	if f.Changed("cert") {
		cfg.Server.CertPath = certPath
	}
	if f.Changed("key") {
		cfg.Server.KeyPath = keyPath
	}
	if f.Changed("generate-cert") {
		cfg.Server.GenerateCert = generateCert
	}
	if f.Changed("metrics-path") {
		cfg.Server.MetricsPath = metricsPath
	}
	if f.Changed("announce") {
		cfg.Server.Announce = announce
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if f.Changed("policy") {
		cfg.Subprotocols.Policy = policy
	}
	if f.Changed("required") {
		cfg.Subprotocols.Required = required
	}
	if f.Changed("supported") {
		cfg.Subprotocols.Supported = supported
	}
	if f.Changed("capture-dir") {
		if cfg.Capture == nil {
			cfg.Capture = &config.CaptureConfig{}
		}
		cfg.Capture.Dir = captureDir
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	if err := logging.Initialize(cfg.Logging.Level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	srv, err := buildServer(cfg, metrics.New())
	if err != nil {
		return err
	}
	return srv.Start(cmd.Context())
}

// buildServer wires the application described by cfg into a server.
func buildServer(cfg *config.Config, m *metrics.Metrics) (*server.Server, error) {
	selector, err := cfg.Subprotocols.Selector()
	if err != nil {
		return nil, err
	}

	opts := []adapter.Option{
		adapter.WithSelector(selector),
		adapter.WithMetrics(m),
	}
	if cfg.Capture != nil && cfg.Capture.Dir != "" {
		opts = append(opts, captureOptions(cfg.Capture)...)
	}

	app, err := adapter.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	sc := cfg.Server
	srv, err := server.New(&server.Config{
		Host:         sc.Host,
		Port:         sc.Port,
		CertPath:     sc.CertPath,
		KeyPath:      sc.KeyPath,
		GenerateCert: sc.GenerateCert,
		Path:         sc.Path,
		MetricsPath:  sc.MetricsPath,
		Announce:     sc.Announce,
		Subprotocols: cfg.Subprotocols.Advertised(),
		ReadLimit:    sc.ReadLimit,
	}, app, server.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, nil
}

// captureOptions records received messages and, with an S3 section,
// archives the capture file when the server shuts down.
func captureOptions(cc *config.CaptureConfig) []adapter.Option {
	recorder := capture.NewRecorder(cc.Dir, adapter.LogHandler())
	opts := []adapter.Option{
		adapter.WithMessageHandler(recorder),
		adapter.WithLifecycle(recorder.Open, recorder.Close),
	}
	if cc.S3 == nil || cc.S3.Bucket == "" {
		return opts
	}

	client := capture.NewS3Client(capture.S3Options{Region: cc.S3.Region, Endpoint: cc.S3.Endpoint})
	archiver := capture.NewS3Archiver(client, cc.S3.Bucket, cc.S3.Prefix, recorder.Path)
	logging.Info("Capture archive enabled",
		zap.String("bucket", cc.S3.Bucket),
		zap.String("prefix", cc.S3.Prefix),
	)
	return append(opts,
		adapter.WithStartup(archiver.Verify),
		adapter.WithShutdown(archiver.Upload),
	)
}
