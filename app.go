package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/config"
	"github.com/njyeung/comentario/engine"
	"github.com/njyeung/comentario/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// app is everything a command needs, built from config and flags
type app struct {
	cfg      *config.Config
	page     config.Page
	log      *slog.Logger
	adapter  *logger.Adapter
	logFile  *os.File
	registry *prometheus.Registry
	engine   *engine.Engine
}

// newApp reads the config, applies env and flag overrides and builds the
// engine. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if _, err := config.LoadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	page, err := cfg.Page()
	if err != nil {
		return nil, err
	}

	log, logFile, err := logger.New(cfg.LogDir, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	adapter := &logger.Adapter{L: log}

	registry := prometheus.NewRegistry()
	be := backend.NewHTTPBackend(cfg.ServerURL, backend.HTTPOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Metrics:           backend.NewMetrics(registry),
	})

	eng, err := engine.New(engine.Options{
		Backend:     be,
		Tokens:      backend.NewFileTokenStore(cfg.TokenPath),
		Popup:       backend.NewChromePopup(cfg.BrowserDir, cfg.ChromePath, adapter.Printf),
		Logger:      adapter,
		Domain:      page.Domain,
		Path:        page.Path,
		HideDeleted: cfg.HideDeleted,
	})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("initializing engine: %w", err)
	}

	log.Info("starting", "command", cmd.Name(), "server", cfg.ServerURL, "domain", page.Domain, "path", page.Path)
	return &app{
		cfg:      cfg,
		page:     page,
		log:      log,
		adapter:  adapter,
		logFile:  logFile,
		registry: registry,
		engine:   eng,
	}, nil
}

// applyFlags copies explicitly set flags over the config
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL, _ = flags.GetString("server")
	}
	if flags.Changed("page") {
		cfg.PageURL, _ = flags.GetString("page")
	}
	if flags.Changed("page-id") {
		cfg.PageID, _ = flags.GetString("page-id")
	}
	if flags.Changed("hide-deleted") {
		cfg.HideDeleted, _ = flags.GetBool("hide-deleted")
	}
	if flags.Changed("plain") {
		cfg.Plain, _ = flags.GetBool("plain")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
}

// serveMetrics exposes the request metrics until ctx is done
func (a *app) serveMetrics(ctx context.Context, addr string) {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &fasthttp.Server{
		Handler: func(rc *fasthttp.RequestCtx) {
			if string(rc.Path()) != "/metrics" {
				rc.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			handler(rc)
		},
		Name: "comentario-metrics",
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()
	go func() {
		a.log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			a.log.Error("metrics server stopped", "err", err)
		}
	}()
}

func (a *app) Close() {
	a.log.Info("exiting")
	a.logFile.Close()
}
