package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safehold/escrowpay/internal/api"
	"github.com/safehold/escrowpay/internal/config"
	"github.com/safehold/escrowpay/internal/handler"
	"github.com/safehold/escrowpay/internal/infrastructure/auth"
	"github.com/safehold/escrowpay/internal/infrastructure/gateway"
	"github.com/safehold/escrowpay/internal/infrastructure/kafka"
	"github.com/safehold/escrowpay/internal/infrastructure/redis"
	"github.com/safehold/escrowpay/internal/lifecycle"
	"github.com/safehold/escrowpay/internal/observability"
	core "github.com/safehold/escrowpay/internal/repository/postgres"
	service "github.com/safehold/escrowpay/internal/services"

	_ "github.com/lib/pq"
)

func main() {
	// Инициализируем логи, метрики, трейсы
	shutdown := observability.Setup("escrowpay")
	defer shutdown(context.Background())

	cfg := config.Load()

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	userRepo := core.NewPostgresUserRepository(db)
	escrowRepo := core.NewPostgresEscrowRepository(db)
	messageRepo := core.NewPostgresMessageRepository(db)
	notificationRepo := core.NewPostgresNotificationRepository(db)
	redisClient := redis.NewClient(cfg.RedisAddr)
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()
	tokens := auth.NewTokenService(cfg.JWTSecret)

	fees := lifecycle.FeeSchedule{BuyerBPS: cfg.BuyerFeeBPS, SellerBPS: cfg.SellerFeeBPS}
	gateways := []gateway.Client{
		gateway.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey),
		gateway.NewFlutterwaveClient(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecret),
		gateway.NewCryptoClient(cfg.CryptoBaseURL, cfg.CryptoAPIKey),
	}

	// Инициализируем сервисы
	authSvc := service.NewAuthService(userRepo, redisClient, producer, tokens)
	escrowSvc := service.NewEscrowService(escrowRepo, userRepo, redisClient, producer, fees)
	paymentSvc := service.NewPaymentService(escrowRepo, userRepo, redisClient, producer, gateways, cfg.PaymentCallbackURL)
	chatSvc := service.NewChatService(escrowRepo, messageRepo, notificationRepo)
	notificationSvc := service.NewNotificationService(notificationRepo)
	profileSvc := service.NewProfileService(userRepo, notificationRepo)

	// Настраиваем Kafka-консьюмеры
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	escrowConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "escrows", "escrowpay-group", escrowRepo, notificationRepo)
	userConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "users", "escrowpay-group-users", escrowRepo, notificationRepo)
	go escrowConsumer.Consume(consumerCtx)
	go userConsumer.Consume(consumerCtx)
	defer escrowConsumer.Close()
	defer userConsumer.Close()
	defer cancelConsumers()

	// Настраиваем роутер
	h := handler.NewHandler(authSvc, escrowSvc, paymentSvc, chatSvc, notificationSvc, profileSvc)
	router := api.SetupRouter(h, tokens, redisClient)

	// Запускаем сервер
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
