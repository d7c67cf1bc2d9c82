// sttstub serves canned /api/stt and /api/process responses for local
// development of the voice client.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/annassetiawan/haloDompet-sub000/config"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/devstub"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := devstub.NewServer(cfg.Stub.Addr, cfg.Stub.Transcript, logger)
	if err := srv.Start(context.Background()); err != nil {
		logger.Error("starting stub", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := srv.Stop(); err != nil {
		logger.Error("stopping stub", "error", err)
		os.Exit(1)
	}
}
