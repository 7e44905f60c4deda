package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/wardstats/pkg/api"
	"github.com/hazyhaar/wardstats/pkg/chassis"
	"github.com/hazyhaar/wardstats/pkg/importer"
	"github.com/hazyhaar/wardstats/pkg/report"
	"github.com/hazyhaar/wardstats/pkg/store"
	"github.com/hazyhaar/wardstats/pkg/topic"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "call":
		cmdCall(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: wardstats <command>

Commands:
  serve   Start the HTTP API (and QUIC/MCP when TLS is enabled)
  import  Load topic datasets into the store
  call    Call an MCP tool on a running server over QUIC
`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, logger := mustLoad(*cfgPath)

	reg := topic.NewRegistry(cfg.TopicsDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load topics", "error", err)
		os.Exit(1)
	}
	logger.Info("topics loaded", "count", reg.Count())

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seedSources(ctx, st, reg); err != nil {
		logger.Error("failed to seed sources", "error", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := report.NewService(reg, st, st, report.Options{
		SummaryTTL: cfg.SummaryTTL,
		Metrics:    report.NewMetrics(promReg),
		Logger:     logger,
	})
	router := api.NewRouter(reg, svc, promReg, logger)

	// SIGHUP: reload topics and forget cached summaries.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading topics")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
				continue
			}
			svc.InvalidateSummaries()
			if err := seedSources(ctx, st, reg); err != nil {
				logger.Error("seed after reload failed", "error", err)
			}
			logger.Info("topics reloaded", "count", reg.Count())
		}
	}()

	if cfg.CheckInterval > 0 {
		go importer.NewChecker(st, logger, cfg.CheckInterval).Start(ctx)
	}

	if cfg.TLS.Enabled {
		serveChassis(ctx, cfg, reg, svc, router, logger)
		return
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("wardstats listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func serveChassis(ctx context.Context, cfg config, reg *topic.Registry, svc *report.Service, router http.Handler, logger *slog.Logger) {
	var mcpSrv *server.MCPServer
	if cfg.TLS.MCP {
		mcpSrv = server.NewMCPServer("wardstats", version, server.WithToolCapabilities(false))
		api.RegisterMCPTools(mcpSrv, reg, svc, logger)
	}

	ch, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("chassis setup failed", "error", err)
		os.Exit(1)
	}

	if err := ch.Start(ctx); err != nil {
		logger.Error("chassis error", "error", err)
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.Stop(shutdownCtx); err != nil {
		logger.Warn("chassis stop", "error", err)
	}
}

// seedSources records each topic's default dataset location. Existing rows,
// including overrides set by import --location, are kept.
func seedSources(ctx context.Context, st *store.Store, reg *topic.Registry) error {
	all := reg.All()
	seeds := make([]store.SourceSeed, len(all))
	for i, t := range all {
		seeds[i] = store.SourceSeed{Topic: t.ID(), Adapter: t.Manifest.Source.Adapter, Location: t.SourceLocation()}
	}
	return st.SeedSources(ctx, seeds)
}
