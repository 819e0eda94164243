package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/armahpen/backend-smilepill/handlers"
	"github.com/armahpen/backend-smilepill/internal/auth"
	"github.com/armahpen/backend-smilepill/internal/cart"
	"github.com/armahpen/backend-smilepill/internal/catalog"
	"github.com/armahpen/backend-smilepill/internal/consul"
	"github.com/armahpen/backend-smilepill/internal/orders"
	"github.com/armahpen/backend-smilepill/internal/prescriptions"
	"github.com/armahpen/backend-smilepill/internal/stores/kafka"
	"github.com/armahpen/backend-smilepill/internal/stores/postgres"
	"github.com/armahpen/backend-smilepill/internal/users"
	"github.com/armahpen/backend-smilepill/pkg/logkey"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service terminated", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine in containerized deployments where the
	// environment is injected directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	keys, err := auth.NewKeys(os.Getenv("SESSION_SECRET"))
	if err != nil {
		return fmt.Errorf("session keys: %w", err)
	}

	db, err := postgres.OpenDB(postgres.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("database ready")

	userConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	catalogConf, err := catalog.NewConf(db)
	if err != nil {
		return err
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	prescriptionConf, err := prescriptions.NewConf(db)
	if err != nil {
		return err
	}

	cfg := handlers.Config{
		Keys:          keys,
		Users:         userConf,
		Catalog:       catalogConf,
		Cart:          cartConf,
		Orders:        orderConf,
		Prescriptions: prescriptionConf,
		Environment:   envOr("APP_ENV", "development"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer, err := kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer producer.Close()
		cfg.Events = producer
		slog.Info("kafka producer connected", slog.String("brokers", brokers))
	} else {
		slog.Info("kafka not configured, domain events disabled")
	}

	port, err := strconv.Atoi(envOr("APP_PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid APP_PORT: %w", err)
	}

	if consulAddr := os.Getenv("CONSUL_ADDR"); consulAddr != "" {
		client, err := consul.NewClient(consulAddr)
		if err != nil {
			return fmt.Errorf("consul: %w", err)
		}
		serviceAddr := envOr("SERVICE_ADDR", "localhost")
		if err := consul.RegisterService(client, "smilepill-api", serviceAddr, port); err != nil {
			return fmt.Errorf("consul registration: %w", err)
		}
		slog.Info("registered with consul", slog.String("address", consulAddr))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handlers.API(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.Int("port", port))
		serverErr <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("shutdown complete")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
