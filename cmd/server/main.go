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

	"github.com/Clark-Hu/watchlist/internal/config"
	httpserver "github.com/Clark-Hu/watchlist/internal/http"
	"github.com/Clark-Hu/watchlist/internal/logging"
	"github.com/Clark-Hu/watchlist/internal/placeholder"
	"github.com/Clark-Hu/watchlist/internal/repository"
	"github.com/Clark-Hu/watchlist/internal/store"
	"github.com/Clark-Hu/watchlist/internal/tmdb"
	"github.com/Clark-Hu/watchlist/internal/watchlist"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Prefix:     "[watchlist] ",
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(dbCtx); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	provider, err := tmdb.NewHTTPClient(tmdb.Options{
		BaseURL:     cfg.TMDBAPIURL,
		AccessToken: cfg.TMDBAccessToken,
		Language:    cfg.TMDBLanguage,
		Timeout:     time.Duration(cfg.TMDBTimeoutSecs) * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("init tmdb client: %v", err)
	}

	enricher := placeholder.New(placeholder.Options{
		Size:      cfg.PlaceholderSize,
		MaxBytes:  int64(cfg.PlaceholderMaxSize),
		MaxPixels: int64(cfg.PlaceholderMaxPix),
		Timeout:   time.Duration(cfg.ImageTimeoutSecs) * time.Second,
		Logger:    logger,
	})

	repo := repository.New(st)
	synchronizer := watchlist.NewSynchronizer(provider, enricher, repo.Entries, watchlist.Config{
		Images:      tmdb.ImageBase(cfg.TMDBImageURL),
		BatchSize:   cfg.RefreshBatchSize,
		Concurrency: cfg.RefreshConcurrency,
		Logger:      logger,
	})

	var scheduler *watchlist.Scheduler
	if cfg.RefreshSchedule != "" {
		scheduler, err = watchlist.NewScheduler(synchronizer, cfg.RefreshSchedule, logger)
		if err != nil {
			logger.Fatalf("init refresh scheduler: %v", err)
		}
		scheduler.Start(ctx)
	}

	server := httpserver.New(cfg, st, synchronizer, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on :%s", cfg.Port)
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Printf("scheduler shutdown error: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("graceful shutdown error: %v", err)
	}
}
