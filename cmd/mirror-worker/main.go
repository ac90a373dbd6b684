package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"spese-tracker/internal/amqp"
	"spese-tracker/internal/cli"
	applog "spese-tracker/internal/log"
	"spese-tracker/internal/mirror"
	"spese-tracker/internal/mirror/sheets"
	"spese-tracker/internal/storage"
	"spese-tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger(applog.ComponentWorker, false)
		cli.Fatal(logger, "Invalid configuration", err)
	}

	logger := cli.SetupLogger(applog.ComponentWorker, cfg.Debug)
	logger.Info("Starting mirror-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage", err)
	}
	defer repo.Close()

	csvMirror, err := mirror.NewCSVMirror(cfg.CSVDir)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize CSV mirror", err)
	}

	rewriters := []mirror.Rewriter{csvMirror}
	if cfg.SheetsEnabled() {
		sheetsClient, err := sheets.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetPrefix)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets mirror", err)
		}
		rewriters = append(rewriters, sheetsClient)
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(repo, rewriters...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = amqpClient.ConsumeMirrorSync(ctx, func(msg *amqp.MirrorSyncMessage) error {
		return mirrorWorker.HandleSyncMessage(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Consumer exited with error", err)
	}

	logger.Info("Shutdown complete")
}
