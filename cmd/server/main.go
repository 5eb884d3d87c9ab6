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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/geo"
	"storefront-service/internal/identity"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/trackstore"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
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

	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
	facts, err := trackstore.NewStore(mongoCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	mongoCancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := facts.Close(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	log.Println("MongoDB connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTracking)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	factPublisher := broker.NewFactPublisher(producer)
	locator := geo.NewLocator(cfg.Geo.Endpoint, cfg.Geo.Timeout, cfg.Geo.CacheTTL, redisClient)
	resolver := identity.NewResolver(identity.NewHMACVerifier(cfg.Auth.TokenSecret))

	cartService := service.NewCartService(db, factPublisher, cfg.Business.CartTTLDays)
	wishlistService := service.NewWishlistService(db, factPublisher)
	couponService := service.NewCouponService(db)
	orderService := service.NewOrderService(db, factPublisher, cfg.Business.TaxRatePercent, cfg.Business.ShippingFlatCents)
	trackingService := service.NewTrackingService(facts, locator, cfg.Business.BounceSeconds, cfg.Business.SessionIdleMinutes)
	migrationService := service.NewMigrationService(db, cfg.Business.CartTTLDays)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	factConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTracking, cfg.Kafka.ConsumerGroup)
	trackingWorker := worker.NewTrackingWorker(factConsumer, trackingService)
	go func() {
		if err := trackingWorker.Start(workerCtx); err != nil {
			log.Printf("Tracking worker error: %v", err)
		}
	}()

	sweeper := worker.NewSessionSweeper(trackingService, cfg.Business.SweepStoreIDs, cfg.Business.SweepInterval)
	go sweeper.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		cartService,
		wishlistService,
		couponService,
		orderService,
		trackingService,
		migrationService,
		resolver,
	)
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
	trackingWorker.Stop()

	log.Println("Server exited")
}
