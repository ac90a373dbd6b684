package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"spese-tracker/internal/amqp"
	"spese-tracker/internal/cache"
	"spese-tracker/internal/cli"
	apphttp "spese-tracker/internal/http"
	applog "spese-tracker/internal/log"
	"spese-tracker/internal/mirror"
	"spese-tracker/internal/services"
	"spese-tracker/internal/storage"
)

const sessionSweepInterval = time.Hour

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(applog.ComponentApp, false)
		cli.Fatal(logger, "Invalid configuration", err)
	}

	logger := cli.SetupLogger(applog.ComponentApp, cfg.Debug)
	logger.Info("Starting spese-tracker", "port", cfg.Port)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage", err)
	}
	defer repo.Close()

	csvMirror, err := mirror.NewCSVMirror(cfg.CSVDir)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize CSV mirror", err)
	}

	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP mirror sync enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP mirror sync disabled")
	}

	svc := services.NewExpenseService(repo, csvMirror, publisher)

	cacheManager := cache.NewManager()
	for _, c := range svc.Caches() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		SecretKey:          cfg.SecretKey,
		SessionTTL:         cfg.SessionTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookie:       !cfg.Debug,
	}, svc, repo)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize HTTP server", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := repo.DeleteExpiredSessions(gctx)
				if err != nil {
					logger.Warn("Failed to sweep expired sessions", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("Swept expired sessions", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Server exited with error", err)
	}
	logger.Info("Shutdown complete")
}
