// Package app wires the pipeline, renderer, exporter, web server, cron
// refresh, input watcher, and snapshot capture into the two run modes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"freecal/internal/capture"
	"freecal/internal/config"
	"freecal/internal/ics"
	appLog "freecal/internal/log"
	"freecal/internal/pipeline"
	"freecal/internal/report"
	"freecal/internal/tabular"
	"freecal/internal/watch"
	"freecal/internal/web"
)

const shutdownTimeout = 5 * time.Second

// App runs freecal in one of its modes: one-shot report, serve, or
// one-shot snapshot.
type App struct {
	cfg     *config.Config
	noColor bool
}

// New builds an App over the loaded configuration.
func New(cfg *config.Config, noColor bool) *App {
	return &App{cfg: cfg, noColor: noColor}
}

// RunOnce performs a single read-resolve-compute pass and renders the
// report to the console, plus the optional report file and ICS export.
func (a *App) RunOnce(ctx context.Context) error {
	res, err := pipeline.Run(ctx, a.cfg)
	if err != nil {
		return err
	}

	data := report.Data{Schedule: res.Schedule, Free: res.Free}
	opts := report.Options{WeekStart: a.cfg.WeekStartDay(), Color: !a.noColor}
	if err := report.Console(data, opts); err != nil {
		return err
	}

	if a.cfg.Report != "" {
		data.GeneratedAt = res.GeneratedAt
		if err := report.WriteFile(a.cfg.Report, data, opts); err != nil {
			return err
		}
		appLog.Info("report written", "path", a.cfg.Report)
	}

	if a.cfg.ICS != "" {
		if err := ics.WriteFile(a.cfg.ICS, res.Schedule, ics.ExportOptions{}); err != nil {
			return err
		}
	}

	return nil
}

// Run starts serve mode: the HTTP server plus cron-scheduled refreshes and,
// for local inputs, the file watcher. It blocks until ctx is canceled or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := web.NewServer(a.cfg)

	// Warm the cache; a missing input is not fatal here, the source may
	// appear later and every refresh path retries.
	if err := srv.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err, "input", a.cfg.Input)
	}

	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		if serveErr := httpSrv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	a.snapshot(ctx, addr)

	refresh := func() {
		rctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := srv.Refresh(rctx); err != nil {
			appLog.Error("refresh failed", err, "input", a.cfg.Input)
			return
		}
		a.snapshot(rctx, addr)
	}

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule; periodic refresh disabled", err, "refresh", a.cfg.RefreshCron)
	} else {
		c.Start()
		defer c.Stop()
		appLog.Info("refresh schedule active", "refresh", a.cfg.RefreshCron)
	}

	if !tabular.IsRemote(a.cfg.Input) {
		w := watch.New(a.cfg.Input, func() { go refresh() })
		go func() { _ = w.Run(ctx) }()
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		appLog.Error("sd_notify failed", err)
	} else if ok {
		appLog.Debug("sd_notify ready sent")
	}

	select {
	case <-ctx.Done():
		appLog.Info("shutting down")
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("http shutdown failed", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// RunSnapshot serves the web view just long enough to capture it to the
// configured PNG path, then exits.
func (a *App) RunSnapshot(ctx context.Context) error {
	if a.cfg.Snapshot == "" {
		return errors.New("app: snapshot path is not configured")
	}

	srv := web.NewServer(a.cfg)
	if err := srv.Refresh(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = httpSrv.Serve(ln) }()
	defer httpSrv.Close()

	return capture.CaptureReportPNG(ctx, capture.Options{
		URL:        "http://" + ln.Addr().String() + "/",
		OutputPath: a.cfg.Snapshot,
	})
}

// snapshot captures the web view when a snapshot path is configured.
// Failures are logged, never fatal: a missing Chromium must not take down
// serve mode.
func (a *App) snapshot(ctx context.Context, addr string) {
	if a.cfg.Snapshot == "" {
		return
	}
	opts := capture.Options{
		URL:        "http://" + addr + "/",
		OutputPath: a.cfg.Snapshot,
	}
	if err := capture.CaptureReportPNG(ctx, opts); err != nil {
		appLog.Error("snapshot capture failed", err, "url", opts.URL)
	}
}
