package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/loom-ui/loom/internal/config"
	"github.com/loom-ui/loom/internal/errors"
	"github.com/loom-ui/loom/pkg/loom"
	"github.com/loom-ui/loom/pkg/server"
	"github.com/loom-ui/loom/pkg/vtree"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Loom server",
		Long: `Start the Loom server with the built-in status application.

The server reads loom.json from the working directory when present
and falls back to defaults otherwise. Clients connect over
WebSocket and drive render passes with schedule requests.

Endpoints:
  /ws          WebSocket session transport
  /healthz     liveness and session counts
  /metrics     Prometheus metrics
  /debug/tree  committed tree snapshots per session

Examples:
  loom serve
  loom serve --addr=:3000
  loom serve --config=deploy/loom.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to loom.json (default ./loom.json)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from loom.json)")

	return cmd
}

func runServe(configPath, addr string) error {
	cfg, err := loadServeConfig(configPath)
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	srv := server.New(buildServerConfig(cfg, logger))
	srv.SetLogger(logger)
	srv.SetRoot(statusApp())

	// Print banner
	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("listening on %s", cfg.URL())
	info("sessions at %s/ws", cfg.URL())
	info("metrics at %s/metrics", cfg.URL())
	fmt.Println()

	if err := srv.Run(); err != nil {
		return errors.New("E102").Wrap(err)
	}
	return nil
}

// loadServeConfig resolves the runtime config. An explicit --config path
// must load; a missing loom.json in the working directory falls back to
// defaults so the server runs out of the box.
func loadServeConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		var le *errors.LoomError
		if stderrors.As(err, &le) && le.Code == "E100" {
			warn("no %s found, using defaults", config.ConfigFileName)
			return config.New(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// buildServerConfig maps loom.json onto the runtime config. Unset
// durations keep the runtime defaults.
func buildServerConfig(cfg *config.Config, logger *slog.Logger) *server.Config {
	serverCfg := server.DefaultConfig()
	serverCfg.Addr = cfg.ListenAddr()
	if cfg.Server.MaxSessions > 0 {
		serverCfg.MaxSessions = cfg.Server.MaxSessions
	}
	if d := cfg.ReadTimeout(); d > 0 {
		serverCfg.ReadTimeout = d
	}
	if d := cfg.WriteTimeout(); d > 0 {
		serverCfg.WriteTimeout = d
	}
	if d := cfg.HeartbeatInterval(); d > 0 {
		serverCfg.HeartbeatInterval = d
	}
	if d := cfg.IdleTimeout(); d > 0 {
		serverCfg.IdleTimeout = d
	}
	if d := cfg.ShutdownTimeout(); d > 0 {
		serverCfg.ShutdownTimeout = d
	}
	if d := cfg.FrameBudget(); d > 0 {
		serverCfg.FrameBudget = d
	}
	if d := cfg.Aging(); d > 0 {
		serverCfg.Aging = d
	}
	if cfg.Journal.Capacity > 0 {
		serverCfg.JournalCapacity = cfg.Journal.Capacity
	}
	if check := originChecker(cfg.Server.AllowedOrigins); check != nil {
		serverCfg.CheckOrigin = check
	}

	if cfg.Journal.Archive.Enabled {
		if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
			warn("journal archiving is enabled but AWS credentials are not set")
		}
		serverCfg.ArchiveStore = newArchiveStore(cfg.Journal.Archive)
		serverCfg.ArchiveBucket = cfg.Journal.Archive.Bucket
		logger.Info("journal archiving enabled",
			"bucket", cfg.Journal.Archive.Bucket,
			"region", cfg.Journal.Archive.Region)
	}

	return serverCfg
}

// originChecker builds the upgrade origin check from the configured allow
// list. An empty list keeps the runtime default, "*" allows everything,
// and entries match the Origin header exactly.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed[strings.TrimSuffix(origin, "/")]
	}
}

// newArchiveStore builds the S3 client for journal archiving.
// Credentials come from the environment; a custom endpoint switches to
// path-style addressing for S3-compatible stores like MinIO.
func newArchiveStore(ac config.ArchiveConfig) *s3.Client {
	region := ac.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			id := os.Getenv("AWS_ACCESS_KEY_ID")
			secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
			if id == "" || secret == "" {
				return aws.Credentials{}, stderrors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")
			}
			return aws.Credentials{
				AccessKeyID:     id,
				SecretAccessKey: secret,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		}),
	}
	if ac.Endpoint != "" {
		opts.BaseEndpoint = aws.String(ac.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// statusApp is the built-in page: a status card whose uptime and pass
// count move on every render, so a client scheduling passes sees patches
// flow.
func statusApp() func() vtree.Component {
	return func() vtree.Component {
		started := time.Now()
		passes := 0
		return vtree.Func(func(rc vtree.RenderContext) *vtree.VNode {
			title := loom.NewSignal(rc.Graph(), "loom is running")
			passes++
			return vtree.El("main", vtree.Props{"class": "status"},
				vtree.El("h1", title.Get()),
				vtree.El("dl",
					vtree.El("dt", "uptime"),
					vtree.El("dd", time.Since(started).Round(time.Second).String()),
					vtree.El("dt", "passes"),
					vtree.El("dd", passes),
				),
			)
		})
	}
}
