// Package main provides the stdio JSON-RPC entry point for keyscout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/keyscout/internal/app"
	"github.com/thebtf/keyscout/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", config.SettingsPath(), "Path to settings file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Stdout carries the protocol, so log to stderr
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg := app.LoadConfig(*configPath)
	app.SetLogLevel(cfg.LogLevel, *debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stdin reads do not observe ctx, so closing stdin unblocks Run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down keyscout stdio server")
		cancel()
		_ = os.Stdin.Close()
	}()

	server, err := app.NewRPC(cfg, Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize keyword analyzer")
	}

	stopWatcher := app.WatchConfig(*configPath, app.ExitForRestart(*configPath))
	defer stopWatcher()

	log.Info().Str("version", Version).Str("agent", cfg.AgentName).Msg("Starting keyscout stdio server")

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("keyscout stdio server error")
	}
}
