// Package main runs the forkknight API server: games against a
// rating-tuned engine, puzzles, lessons, and player progress.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"forkknight/cmd/forkknight-server/cli"
	"forkknight/internal/server/engine"
	"forkknight/internal/server/http"
	"forkknight/internal/server/processor"
	"forkknight/internal/server/service"
	"forkknight/internal/server/storage"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	// Admin subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "db", "user", "puzzles":
			if err := cli.Run(os.Args[1:]); err != nil {
				log.Fatalf("CLI error: %v", err)
			}
			os.Exit(0)
		}
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (fixed JWT secret, WAL, relaxed rate limits, console logs)")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)")
		pidPath     = flag.String("pid", "", "Optional path to write PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
		workers     = flag.Int("workers", 2, "Engine worker goroutines")
		moveTime    = flag.Duration("move-time", 2*time.Second, "Default computer search time")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := newLogger(*dev, *logLevel)

	if *pidLock && *pidPath == "" {
		log.Fatal("Error: -pid-lock flag requires the -pid flag to be set")
	}

	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer cleanup()
		logger.Info().Str("path", *pidPath).Bool("lock", *pidLock).Msg("PID file created")
	}

	// 1. Storage (optional)
	var store *storage.Store
	if *storagePath != "" {
		var err error
		store, err = storage.NewStore(*storagePath, *dev, logger)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := store.InitDB(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		logger.Info().Str("path", *storagePath).Msg("persistent storage enabled")
	} else {
		logger.Warn().Msg("persistent storage disabled, accounts and progress unavailable (use -storage-path)")
	}

	var jwtSecret []byte
	if *dev {
		jwtSecret = []byte("dev-secret-minimum-32-characters-long")
		logger.Info().Msg("using fixed JWT secret (dev mode)")
	} else {
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			log.Fatalf("Failed to generate JWT secret: %v", err)
		}
		logger.Info().Msg("JWT secret generated (sessions valid until restart)")
	}

	// 2. Service with puzzle and lesson content
	catalog, err := service.LoadCatalog(store)
	if err != nil {
		log.Fatalf("Failed to load puzzle catalog: %v", err)
	}
	logger.Info().Int("puzzles", len(catalog.Puzzles())).Int("lessons", len(catalog.Lessons())).Msg("catalog loaded")

	svc := service.New(store, jwtSecret, catalog, logger)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go svc.RunCleanupJob(cleanupCtx, service.CleanupJobInterval)

	// 3. Engine pool and processor
	searcher := engine.New(engine.WithMoveTime(*moveTime), engine.WithLogger(logger))
	queue := processor.NewEngineQueue(*workers, searcher, *moveTime, logger)
	proc := processor.New(svc, queue, logger)

	// 4. HTTP
	app := http.NewFiberApp(proc, svc, *dev, logger)
	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)

	go func() {
		logger.Info().
			Str("addr", "http://"+apiAddr).
			Bool("dev", *dev).
			Int("workers", *workers).
			Dur("moveTime", *moveTime).
			Str("storage", svc.GetStorageHealth()).
			Msg("forkknight API server starting")

		if err := app.Listen(apiAddr); err != nil {
			logger.Error().Err(err).Msg("API server listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := proc.Close(); err != nil {
		logger.Error().Err(err).Msg("processor close error")
	}

	cleanupCancel()

	// Also closes storage
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("service shutdown error")
	}

	logger.Info().Msg("server exited")
}

// newLogger writes human-readable logs in dev mode and JSON otherwise
func newLogger(dev bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if dev {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Logger()
}
