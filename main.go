package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/esmeralda-med/esmeralda/api"
	"github.com/esmeralda-med/esmeralda/backend"
	"github.com/esmeralda-med/esmeralda/chat"
	"github.com/esmeralda-med/esmeralda/config"
	"github.com/esmeralda-med/esmeralda/hub"
	"github.com/esmeralda-med/esmeralda/observability"
	"github.com/esmeralda-med/esmeralda/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.Setup(cfg.Log.Level)

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("store", cfg.Store.Driver).
		Str("backend", cfg.Backend.Kind).
		Msg("starting esmeralda")

	// Initialize store
	var st store.Store
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		st, err = store.NewSQLiteStore(cfg.Store.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize store")
		}
	default:
		st = store.NewMemoryStore()
	}
	defer st.Close()

	// Initialize backend strategy
	ctx := context.Background()
	be, err := backend.New(ctx, cfg.Backend)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend")
	}

	// Initialize websocket hub
	h := hub.New()
	go h.Run()

	// Initialize turn controller
	svc := chat.NewService(st, be, h)
	if _, err := svc.EnsureSession(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure initial session")
	}

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := api.NewHandler(svc, h)
	handler.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Str("backend", be.Name()).Msg("esmeralda started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	log.Info().Msg("esmeralda stopped")
}
