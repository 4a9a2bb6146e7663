package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"barbershop-booking-backend/config"
	"barbershop-booking-backend/internal/api"
	"barbershop-booking-backend/internal/booking"
	"barbershop-booking-backend/internal/chat"
	"barbershop-booking-backend/internal/db"
	"barbershop-booking-backend/internal/notification"
	"barbershop-booking-backend/internal/store"
	"barbershop-booking-backend/internal/ws"
)

func main() {
	logger := log.New(os.Stdout, "bookingd ", log.LstdFlags)

	// API keys live in .env for local development; absence is fine.
	if err := godotenv.Load(); err == nil {
		logger.Println(".env loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Chat.APIKey == "" {
		logger.Fatalf("chat api key must be configured (chat.api_key or OPENAI_API_KEY)")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	svc := booking.NewService(appStore, cfg.Booking.PendingTTL)
	chatClient := chat.NewClient(cfg.Chat)

	hub := ws.NewHub()
	go hub.Run()

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys not configured; operator push notifications disabled")
	}

	var emailSender notification.EmailSender
	if cfg.Email.Enabled {
		emailSender = notification.NewSMTPSender(cfg.Email)
	} else {
		logger.Println("confirmation email disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, emailSender)
	pool.Start(ctx)

	handler := api.NewHandler(appStore, svc, hub, pool, chatClient, webpushOptions)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	hub.Close()

	logger.Println("Server gracefully stopped")
}
