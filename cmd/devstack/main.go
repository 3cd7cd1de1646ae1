// The devstack is the all-in-one development backend: the REST API the
// rider client consumes plus the websocket publish/subscribe broker, with
// PostgreSQL persistence and optional redis fan-out.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hopalong/core/internal/chathub"
	"hopalong/core/internal/config"
	"hopalong/core/internal/logging"
	"hopalong/core/internal/models"
	"hopalong/core/internal/server"
	"hopalong/core/internal/storage"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PGDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.RideRecord{},
		&models.ChatHistory{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, running single-instance without redis fan-out")
		return db, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: redis unreachable (%v), continuing without fan-out", err)
		return db, nil
	}
	return db, rdb
}

func main() {
	log.Println("Starting Hopalong devstack...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)

	tokens := server.NewTokenService(cfg.JWTSecret)
	hub := chathub.NewHub(tokens.VerifyChannel, rdb)
	go hub.Run()

	if active, err := store.ActiveRideIDs(); err == nil && len(active) > 0 {
		logger.Info("previously active chat channels", "count", len(active))
	}

	srv := server.New(store, hub, tokens, logger, cfg.MatchWindow)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	logger.Info("devstack listening", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
