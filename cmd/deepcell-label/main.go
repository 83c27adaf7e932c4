// Command deepcell-label runs the annotation coordination service: it
// assembles a project, attaches metrics, and serves it to clients over
// websockets until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/scottjudy/deepcell-label/config"
	"github.com/scottjudy/deepcell-label/editapi"
	"github.com/scottjudy/deepcell-label/gateway"
	"github.com/scottjudy/deepcell-label/metric"
	"github.com/scottjudy/deepcell-label/project"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	projectID := flag.String("project", "", "project id (default: fresh uuid)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *projectID == "" {
		*projectID = uuid.NewString()
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	metrics := metric.NewRegistry()

	client := editapi.NewClient(cfg.Service.URL, *projectID, nil)
	p, err := project.New(project.Config{
		ID:            *projectID,
		Width:         cfg.Project.Width,
		Height:        cfg.Project.Height,
		Frames:        cfg.Project.Frames,
		Features:      cfg.Project.Features,
		Channels:      cfg.Project.Channels,
		SettleDelay:   cfg.Project.SettleDelay,
		SpotThreshold: cfg.Project.SpotThreshold,
		EditTimeout:   cfg.Service.Timeout,
	}, client, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	metrics.InstrumentLoop(p.ID(), p.Loop())
	metrics.InstrumentUndo(p.ID(), p.Undo)
	metrics.InstrumentEditAPI(p.ID(), p.EditAPI)

	gw, err := gateway.New(gateway.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultBucket:   cfg.Service.Bucket,
	}, p, metrics, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "project", p.ID(), "addr", cfg.Server.Addr, "service", cfg.Service.URL)
	return gw.Run(ctx)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
