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

	"github.com/AnDev002/G-Mall-BE-sub001/config"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/api"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/broker"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/service"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/stockcounter"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/store"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service")

	tp, err := util.InitTracer("checkout-service", cfg.Observ.JaegerEndpoint)
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

	rdb, err := stockcounter.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("Redis connected")

	counter := stockcounter.NewCounter(rdb)

	jobProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderJobs)
	defer jobProducer.Close()
	deadProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeadJobs)
	defer deadProducer.Close()
	analyticsProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAnalytics)
	defer analyticsProducer.Close()
	log.Println("Kafka producers initialized")

	intakeQueue := broker.NewIntakeQueue(jobProducer, deadProducer)
	eventPublisher := broker.NewEventPublisher(analyticsProducer)

	cartService := service.NewCartService(rdb)
	effects := service.NewDownstreamEffects(cartService, eventPublisher)
	stockSyncer := service.NewStockSyncer(db, counter)
	checkoutService := service.NewCheckoutService(db, intakeQueue, eventPublisher)

	ctx := context.Background()
	if _, err := stockSyncer.SyncAll(ctx); err != nil {
		log.Printf("Failed to sync stock counters: %v", err)
	}

	pipeline := checkout.NewPipeline(counter, db, effects,
		time.Duration(cfg.Checkout.CommitTimeoutSeconds)*time.Second)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	jobConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderJobs, cfg.Kafka.ConsumerGroup)
	pool := worker.NewPool(jobConsumer, intakeQueue, eventPublisher, pipeline,
		cfg.Checkout.Workers, cfg.Checkout.MaxAttempts)
	pool.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(checkoutService, stockSyncer)
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
	if err := pool.Stop(); err != nil {
		log.Printf("Worker pool shutdown error: %v", err)
	}

	log.Println("Server exited")
}
