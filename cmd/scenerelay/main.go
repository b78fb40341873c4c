// Scenerelay is the chat relay behind the voice-driven 3D scene UI. It
// forwards chat turns to the intent-classification service, annotates the
// replies, and vends speech-service tokens to the browser.
//
// Usage:
//
//	scenerelay [flags]
//	scenerelay --config /path/to/scenerelay.yaml
//
// @title       scenerelay API
// @version     1.0
// @description Chat relay between a 3D scene UI and an intent-classification service, with speech token vending.
// @license.name Apache 2.0
// @license.url  http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nadzzz/scenerelay/docs"
	"github.com/nadzzz/scenerelay/internal/assistant/watson"
	"github.com/nadzzz/scenerelay/internal/chat"
	"github.com/nadzzz/scenerelay/internal/config"
	"github.com/nadzzz/scenerelay/internal/health"
	"github.com/nadzzz/scenerelay/internal/metrics"
	"github.com/nadzzz/scenerelay/internal/relay"
	"github.com/nadzzz/scenerelay/internal/speech"
	speechwatson "github.com/nadzzz/scenerelay/internal/speech/watson"
	"github.com/nadzzz/scenerelay/internal/transport"
	grpctransport "github.com/nadzzz/scenerelay/internal/transport/grpc"
	httptransport "github.com/nadzzz/scenerelay/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/scenerelay.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scenerelay %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("scenerelay starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("scenerelay failed", "error", err)
		os.Exit(1)
	}
	slog.Info("scenerelay stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Intent service client.
	asst := watson.New(cfg.Assistant)
	defer asst.Close()

	configured := cfg.Assistant.Configured()
	if configured {
		slog.Info("using intent service", "url", cfg.Assistant.URL, "version", cfg.Assistant.Version)
	} else {
		slog.Warn("no workspace configured; /api/message will return setup instructions")
	}

	r := relay.New(asst, cfg.Assistant.WorkspaceID, configured,
		relay.WithMetrics(m),
		relay.WithIssuers(
			speechwatson.New(speech.SpeechToText, cfg.Speech.AuthorizationURL, cfg.Speech.STT),
			speechwatson.New(speech.TextToSpeech, cfg.Speech.AuthorizationURL, cfg.Speech.TTS),
		),
	)

	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.SetDetail("workspace_configured", configured)
	healthServer.SetDetail("version", version)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.HTTP.Enabled {
		opts := []httptransport.Option{
			httptransport.WithStaticDir(cfg.Server.StaticDir),
			httptransport.WithForceHTTPS(cfg.Server.ForceHTTPS),
			httptransport.WithRateLimit(cfg.Transports.HTTP.RateLimit, cfg.Transports.HTTP.Burst),
		}
		if cfg.Transports.HTTP.Feed {
			opts = append(opts, httptransport.WithFeed(chat.NewFeed(m)))
		}
		if m != nil {
			opts = append(opts, httptransport.WithMetrics(m, cfg.Metrics.Path))
		}
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, r, opts...))
	}
	if cfg.Transports.GRPC.Enabled {
		gt := grpctransport.New(cfg.Transports.GRPC.Port)
		healthServer.OnReady(gt.SetServing)
		transports = append(transports, gt)
	}

	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled: enable at least one in config")
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start health check server.
	g.Go(func() error {
		return healthServer.ListenAndServe(gctx)
	})

	// Start all transports.
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx); err != nil {
				return fmt.Errorf("transport %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("scenerelay ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal or a transport failure.
	<-gctx.Done()
	slog.Info("shutting down, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	return g.Wait()
}
