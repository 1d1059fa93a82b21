// Package main provides the network entry point for keyscout: one port
// serving HTTP, websocket, SSE, gRPC health and raw TCP JSON-RPC.
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
	"github.com/thebtf/keyscout/internal/mcp"
	"github.com/thebtf/keyscout/internal/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", config.SettingsPath(), "Path to settings file")
	addr := flag.String("addr", "", "Listen address (overrides KEYSCOUT_LISTEN_ADDR)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg := app.LoadConfig(*configPath)
	app.SetLogLevel(cfg.LogLevel, *debug)

	listenAddr := cfg.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down keyscout server")
		cancel()
	}()

	meterProvider, shutdownMetrics, err := app.SetupMetrics(ctx, cfg.OTLPEndpoint, cfg.AgentName, Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	rpc, err := app.NewRPC(cfg, Version, mcp.WithMeterProvider(meterProvider))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize keyword analyzer")
	}

	stopWatcher := app.WatchConfig(*configPath, app.ExitForRestart(*configPath))
	defer stopWatcher()

	srv := server.New(rpc, server.Options{
		AgentName:    cfg.AgentName,
		Version:      Version,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	log.Info().
		Str("addr", listenAddr).
		Str("version", Version).
		Int64("maxBodyBytes", cfg.MaxBodyBytes).
		Msg("Starting keyscout network server")

	serveErr := srv.ListenAndServe(ctx, listenAddr)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer flushCancel()
	if err := shutdownMetrics(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush metrics")
	}

	if serveErr != nil {
		log.Fatal().Err(serveErr).Msg("keyscout server error")
	}
}
