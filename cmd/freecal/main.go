package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"freecal/internal/app"
	"freecal/internal/config"
	appLog "freecal/internal/log"
)

// flagConfig holds CLI flag values; non-empty values override the file
// config.
type flagConfig struct {
	configPath string
	input      string
	out        string
	icsPath    string
	serve      bool
	listen     string
	snapshot   string
	noColor    bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel("debug")
	}

	appLog.Info("freecal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI overrides.
	if flags.input != "" {
		conf.Input = flags.input
	}
	if flags.out != "" {
		conf.Report = flags.out
	}
	if flags.icsPath != "" {
		conf.ICS = flags.icsPath
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.snapshot != "" {
		conf.Snapshot = flags.snapshot
	}

	appLog.Info("effective config",
		"input", conf.Input,
		"listen", conf.Listen,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"serve", flags.serve,
		"snapshot", conf.Snapshot,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	a := app.New(conf, flags.noColor)

	switch {
	case flags.serve:
		err = a.Run(ctx)
	case flags.snapshot != "":
		err = a.RunSnapshot(ctx)
	default:
		err = a.RunOnce(ctx)
	}
	if err != nil {
		appLog.Error("run failed", err)
		os.Exit(1)
	}

	appLog.Info("freecal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./freecal.yaml", "Path to config file (created on first run)")
	flag.StringVar(&cfg.input, "input", "", "Event source: CSV path or http(s) URL (overrides config)")
	flag.StringVar(&cfg.out, "out", "", "Text report output path (overrides config)")
	flag.StringVar(&cfg.icsPath, "ics", "", "ICS export path (overrides config)")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP server with scheduled refreshes")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config)")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the web view to this PNG and exit (overrides config)")
	flag.BoolVar(&cfg.noColor, "no-color", false, "Disable colored console output")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
