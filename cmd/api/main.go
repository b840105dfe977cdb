package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/guybartal/momentloop-sub000/internal/adapter/repo"
	"github.com/guybartal/momentloop-sub000/internal/http/handlers"
	"github.com/guybartal/momentloop-sub000/internal/http/httpapi"
	"github.com/guybartal/momentloop-sub000/internal/infra"
	"github.com/guybartal/momentloop-sub000/internal/service"
	"github.com/guybartal/momentloop-sub000/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	jobs := repo.NewJobRepository(dbpool)

	hub := ws.NewHub(logger, wsOriginCheck(cfg.CORSOrigins))
	app := handlers.NewApp(jobs, hub, logger)
	router := httpapi.NewRouter(cfg, app, logger)
	server := infra.NewHTTPServer(cfg, router)

	sweeper := service.NewSweeper(jobs, logger, cfg)
	sweeper.ResetOrphaned(ctx)
	go sweeper.Run(ctx)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func wsOriginCheck(origins []string) func(*http.Request) bool {
	allow := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allow[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}
