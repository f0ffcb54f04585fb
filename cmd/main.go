package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planetcalm/petmap/config"
	deps "github.com/planetcalm/petmap/internal/debs"
	api "github.com/planetcalm/petmap/internal/http/rest"
	"github.com/rs/zerolog"
)

const allowConnectionsAfterShutdown = 1 * time.Second

func main() {
	cfg := config.New()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	dependencies, err := deps.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
	}
	a.Init()

	go dependencies.WebSocket.Run()

	go func() {
		logger.Info().Int("port", cfg.Port).Msg("server running")
		if serveErr := a.Serve(); serveErr != nil {
			logger.Fatal().Err(serveErr).Msg("server stopped")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	logger.Info().Dur("grace", allowConnectionsAfterShutdown).Msg("request to shutdown server")
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	logger.Info().Msg("shutting down server")

	if err := a.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	dependencies.DB.Close()
	logger.Info().Msg("database connections closed")
}
