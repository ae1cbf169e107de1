package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tv_export/internal/api"
	"github.com/dgnsrekt/tv_export/internal/artifact"
	"github.com/dgnsrekt/tv_export/internal/browser"
	"github.com/dgnsrekt/tv_export/internal/config"
	"github.com/dgnsrekt/tv_export/internal/controller"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/exportctl"
	"github.com/dgnsrekt/tv_export/internal/journal"
	"github.com/dgnsrekt/tv_export/internal/netutil"
	"github.com/dgnsrekt/tv_export/internal/notify"
	"github.com/dgnsrekt/tv_export/internal/raster"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.SlogLevel(), cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("chart_exporter config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"capture_timeout_ms", cfg.CaptureTimeoutMS,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"artifact_dir", cfg.ArtifactDir,
		"journal_dir", cfg.JournalDir,
		"currency", cfg.Currency,
		"catalog", cfg.CatalogPath,
		"notify", cfg.NotifyURL != "",
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("chart catalog not found, image exports need an explicit element_id", "path", cfg.CatalogPath)
		catalog = &config.Catalog{}
	case err != nil:
		slog.Error("failed to load chart catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	store, err := artifact.NewStore(cfg.ArtifactDir)
	if err != nil {
		slog.Error("failed to create artifact store", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ProfileDir: cfg.ProfileDir,
			StartURL:   cfg.DashboardURL,
			Headless:   true,
		})
		launchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := launcher.Launch(launchCtx)
		cancel()
		if err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
	}

	// The capturer attaches lazily, so a browser that comes up after the
	// service (or restarts) is picked up by the next image export.
	capturer := raster.NewCDPCapturer(cfg.CDPURL(), cfg.TabURLFilter, cfg.CaptureTimeout())
	if err := capturer.Connect(context.Background()); err != nil {
		slog.Warn("capture backend not reachable yet, will retry on first image export", "cdp_url", cfg.CDPURL(), "error", err)
	}
	images := raster.NewExporter(capturer, store, nil)

	jw := journal.New(cfg.JournalDir, "exports", 0)
	opts := []exportctl.Option{exportctl.WithJournal(jw)}
	if cfg.NotifyURL != "" {
		opts = append(opts, exportctl.WithNotifier(notify.New(nil, cfg.NotifyURL)))
	}
	exports := exportctl.New(images, store, opts...)

	svc := controller.NewService(exports, store, catalog, equity.NewFormatter(cfg.Currency))
	h := api.NewServer(svc)

	srv := &http.Server{Addr: bindAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("chart_exporter listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("chart_exporter server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("chart_exporter shutdown failed", "error", err)
	}
	if err := capturer.Close(); err != nil {
		slog.Debug("capturer close failed", "error", err)
	}
	if err := jw.Close(); err != nil {
		slog.Debug("journal close failed", "error", err)
	}
	if launcher != nil && launcher.Running() {
		launcher.Stop()
	}
}

func setupLogger(level slog.Level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	return nil
}
