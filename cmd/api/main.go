package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pennyflow/pennyflow/internal/api/handlers"
	"github.com/pennyflow/pennyflow/internal/api/middleware"
	"github.com/pennyflow/pennyflow/internal/config"
	"github.com/pennyflow/pennyflow/internal/jobs/inmemory"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/logger"
	"github.com/pennyflow/pennyflow/internal/recurring"
)

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("api")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New("api")
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))

	store, err := ledger.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer store.Close()

	// The in-process queue lets interactive requests hand recurring work
	// to background workers without blocking the response.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{
		BufferSize:       cfg.Queue.BufferSize,
		WorkerCount:      cfg.Queue.WorkerCount,
		PerUserPerMinute: cfg.Queue.PerUserPerMinute,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	processor := recurring.NewProcessor(store, log)
	if err := jobQueue.Start(workerCtx, processor.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Handlers
	accountsHandler := handlers.NewAccountsHandler(store)
	transactionsHandler := handlers.NewTransactionsHandler(store)
	budgetsHandler := handlers.NewBudgetsHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/accounts", accountsHandler.Create)
	mux.HandleFunc("GET /api/accounts", accountsHandler.List)
	mux.HandleFunc("GET /api/accounts/{id}", accountsHandler.Get)
	mux.HandleFunc("PUT /api/accounts/{id}/default", accountsHandler.SetDefault)
	mux.HandleFunc("POST /api/transactions", transactionsHandler.Create)
	mux.HandleFunc("POST /api/transactions/bulk-delete", transactionsHandler.BulkDelete)
	mux.HandleFunc("GET /api/budget", budgetsHandler.Get)
	mux.HandleFunc("PUT /api/budget", budgetsHandler.Put)

	// Health probes bypass authentication.
	root := http.NewServeMux()
	root.Handle("/api/", middleware.Auth(store)(mux))
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var handler http.Handler = root
	handler = middleware.CORS(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.Logger(log)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during queue shutdown")
	}

	log.Info().Msg("API server exited")
}
