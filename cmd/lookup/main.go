package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/imdb-ratings/internal/cache"
	"github.com/Clark-Hu/imdb-ratings/internal/config"
	httpserver "github.com/Clark-Hu/imdb-ratings/internal/http"
	"github.com/Clark-Hu/imdb-ratings/internal/lookup"
	"github.com/Clark-Hu/imdb-ratings/internal/metrics"
	"github.com/Clark-Hu/imdb-ratings/internal/repository"
	"github.com/Clark-Hu/imdb-ratings/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[imdb-lookup] ", log.LstdFlags|log.Lshortfile)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DB.URL, store.OptionsFromConfig(cfg.DB, logger))
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	reg.MustRegister(st.Collector())

	var ratingCache lookup.Cache
	if cfg.DB.RedisURL != "" {
		client, err := cache.Open(dbCtx, cfg.DB.RedisURL)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer client.Close()
		ratingCache = cache.NewRedisCache(client, time.Duration(cfg.DB.CacheTTLSecs)*time.Second)
		logger.Println("lookup: redis cache enabled")
	}

	repo := repository.New(st)
	svc := lookup.NewService(repo.Ratings, ratingCache, logger)
	server := httpserver.New(cfg, st, svc, reg, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}
