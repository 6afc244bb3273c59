package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-service/config"
	"booking-service/internal/api"
	"booking-service/internal/broker"
	"booking-service/internal/gateway"
	"booking-service/internal/redisclient"
	"booking-service/internal/service"
	"booking-service/internal/store"
	"booking-service/internal/util"
	"booking-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting booking service")

	tp, err := util.InitTracer("booking-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL, cfg.Gateway.APIKey,
		cfg.Gateway.CallbackURL, cfg.Gateway.Currency)

	sessionExpiry := time.Duration(cfg.Business.SessionExpirySeconds) * time.Second

	synchronizer := service.NewStatusSynchronizer(db, redisClient, eventPublisher)
	checker := service.NewPaymentChecker(db, gatewayClient, synchronizer, sessionExpiry)
	bookingService := service.NewBookingService(db, redisClient, gatewayClient, eventPublisher, sessionExpiry)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	paymentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment, cfg.Kafka.ConsumerGroup)
	gatewayWorker := worker.NewGatewayEventWorker(paymentConsumer, db, synchronizer)
	go func() {
		if err := gatewayWorker.Start(workerCtx); err != nil {
			log.Printf("Gateway event worker error: %v", err)
		}
	}()

	reconciler := worker.NewReconciler(db, checker,
		time.Duration(cfg.Business.ReconcileIntervalSeconds)*time.Second)
	go reconciler.Run(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(bookingService, checker, synchronizer)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	gatewayWorker.Stop()

	log.Println("Server exited")
}
