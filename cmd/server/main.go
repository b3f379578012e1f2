package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Heidric/queueing/internal/cfg"
	"github.com/Heidric/queueing/internal/db"
	"github.com/Heidric/queueing/internal/logger"
	"github.com/Heidric/queueing/internal/server"
	"github.com/Heidric/queueing/internal/services"
)

// loadConfig reads the environment first; flags given on the command line
// override it.
func loadConfig() (*cfg.Config, error) {
	config, err := cfg.NewConfig()
	if err != nil {
		return nil, err
	}

	flag.StringVar(&config.ServerAddress, "a", config.ServerAddress, "address and port to run server")
	flag.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "postgres DSN for evaluation history")
	flag.StringVar(&config.FileStoragePath, "f", config.FileStoragePath, "history snapshot file (in-memory storage only)")
	flag.Var(cfg.Seconds(&config.StoreInterval), "i", "snapshot interval, seconds or duration; 0 writes on every evaluation")
	flag.StringVar(&config.Key, "k", config.Key, "key for the HashSHA256 response signature")
	flag.IntVar(&config.HistoryLimit, "l", config.HistoryLimit, "max evaluations returned by history queries")
	flag.Parse()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runner, ctx := errgroup.WithContext(ctx)

	config, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	l, err := logger.Initialize(config.Logger)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	ctx = l.Zerolog().WithContext(ctx)

	storage, err := db.NewStorage(config.DatabaseDSN, config.FileStoragePath, config.StoreInterval)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Init storage")
	}

	queue := services.NewQueueService(storage, config.HistoryLimit)

	srv := server.NewServer(config.ServerAddress, config.Key, queue)
	srv.Run(ctx, runner)

	runner.Go(func() error {
		<-ctx.Done()

		err := srv.Shutdown(ctx)
		if cerr := storage.Close(); cerr != nil {
			logger.Log.Error().Err(cerr).Msg("Close storage")
		}
		return err
	})

	if err := runner.Wait(); err != nil {
		logger.Log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
}
