package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableside/internal/adapter/logger"
	"tableside/internal/adapter/postgres"
	"tableside/internal/adapter/rabbitmq"
	"tableside/internal/adapter/storage"
	"tableside/internal/app/checkout"
	"tableside/internal/app/clientstate"
	"tableside/internal/app/join"
	syncapp "tableside/internal/app/sync"
	"tableside/internal/config"
	"tableside/internal/interfaces"

	httpAdapter "tableside/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: diner-service, table-board, board-watcher")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	sessionID := flag.String("session-id", "", "Session id (for table-board and board-watcher)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	lgr := logger.New(*mode)

	switch *mode {
	case "diner-service":
		runDinerService(ctx, cfg, lgr, *port)

	case "table-board":
		if *sessionID == "" {
			log.Fatal("--session-id is required for table-board mode")
		}
		runTableBoard(ctx, cfg, lgr, *port, *sessionID)

	case "board-watcher":
		if *sessionID == "" {
			log.Fatal("--session-id is required for board-watcher mode")
		}
		runBoardWatcher(ctx, cfg, lgr, *sessionID)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runDinerService(ctx context.Context, cfg *config.Config, lgr logger.Logger, port int) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	store := clientstate.New(newStateStorage(ctx, cfg), lgr)
	if err := store.Hydrate(ctx); err != nil {
		log.Fatalf("Failed to hydrate client state: %v", err)
	}
	lgr.Info("state_hydrated", "Client state restored", "", nil)

	tableRepo := postgres.NewTableRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	menuRepo := postgres.NewMenuRepository(db)
	orderRepo := postgres.NewLineOrderRepository(db)
	verificationRepo := postgres.NewVerificationRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	joinService := join.NewService(tableRepo, sessionRepo, verificationRepo, menuRepo, store, lgr)
	checkoutService := checkout.NewService(store, sessionRepo, orderRepo, publisher, lgr)

	dinerHandler := httpAdapter.NewDinerHandler(joinService, checkoutService, store, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/scan", dinerHandler.Scan)
	mux.HandleFunc("/verify/request", dinerHandler.RequestCode)
	mux.HandleFunc("/verify/confirm", dinerHandler.Verify)
	mux.HandleFunc("/menu", dinerHandler.Menu)
	mux.HandleFunc("/cart", dinerHandler.Cart)
	mux.HandleFunc("/cart/items", dinerHandler.CartItems)
	mux.HandleFunc("/cart/items/", dinerHandler.CartItems)
	mux.HandleFunc("/checkout", dinerHandler.Checkout)

	serveWithShutdown(lgr, port, mux, "Diner Service", nil)
}

func runTableBoard(ctx context.Context, cfg *config.Config, lgr logger.Logger, port int, sessionID string) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	sessionRepo := postgres.NewSessionRepository(db)
	orderRepo := postgres.NewLineOrderRepository(db)
	consumer := rabbitmq.NewConsumer(mqConn, lgr)

	ctrl := syncapp.NewController(sessionID, sessionRepo, orderRepo, consumer, lgr)
	if err := ctrl.Start(ctx); err != nil {
		lgr.Error("initial_sync_failed", "Initial fetch failed, will retry on next change", sessionID, nil, err)
	}
	defer ctrl.Stop()

	boardHandler := httpAdapter.NewBoardHandler(ctrl, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/board", boardHandler.Board)
	mux.HandleFunc("/board/ws", boardHandler.BoardWS)

	serveWithShutdown(lgr, port, mux, "Table Board", map[string]interface{}{
		"session_id": sessionID,
	})
}

func runBoardWatcher(ctx context.Context, cfg *config.Config, lgr logger.Logger, sessionID string) {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, lgr)

	lgr.Info("service_started", "Board Watcher started", sessionID, nil)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := func(_ context.Context, ev interfaces.ChangeEvent) {
		fmt.Printf("Change for session %s: %s %s at %s\n",
			ev.SessionID, ev.Entity, ev.Op, ev.OccurredAt.Format(time.RFC3339))
	}

	for _, entity := range []interfaces.ChangeEntity{interfaces.EntityLineOrders, interfaces.EntitySessions} {
		entity := entity
		go func() {
			if err := consumer.Consume(watchCtx, entity, sessionID, handler); err != nil && watchCtx.Err() == nil {
				lgr.Error("consumer_error", "Error consuming changes", sessionID, map[string]interface{}{
					"entity": string(entity),
				}, err)
			}
		}()
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Board Watcher", sessionID, nil)
}

func newStateStorage(ctx context.Context, cfg *config.Config) interfaces.StateStorage {
	switch cfg.Storage.Backend {
	case "redis":
		st, err := storage.NewRedisStorage(ctx, cfg.Storage.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		return st
	default:
		return storage.NewFileStorage(cfg.Storage.Path)
	}
}

func serveWithShutdown(lgr logger.Logger, port int, mux *http.ServeMux, name string, details map[string]interface{}) {
	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if details == nil {
		details = map[string]interface{}{}
	}
	details["port"] = port
	lgr.Info("service_started", fmt.Sprintf("%s started on port %d", name, port), "", details)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", fmt.Sprintf("Shutting down %s", name), "", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "", nil, err)
	}
}
