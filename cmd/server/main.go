package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digibiomics/LungSense-main/config"
	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/jobs"
	"github.com/digibiomics/LungSense-main/lifecycle"
	"github.com/digibiomics/LungSense-main/routes"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/digibiomics/LungSense-main/store"
	"github.com/digibiomics/LungSense-main/telemetry"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	vault, err := security.NewVault(security.HashParams{
		MemoryKB:    cfg.Password.MemoryKB,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
	})
	if err != nil {
		log.Fatalf("Failed to configure password hashing: %v", err)
	}
	tokens, err := security.NewTokenService(cfg.SecretKey, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}
	policy, err := lifecycle.PolicyFor(cfg.AuthzPolicy)
	if err != nil {
		log.Fatalf("Failed to configure authorization: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Printf("Publishing account events to exchange %s", cfg.Events.Exchange)
	}

	svc, err := lifecycle.New(st, vault, tokens, lifecycle.Options{
		EmailCaseInsensitive: cfg.EmailCaseInsensitive,
		Policy:               policy,
		Publisher:            publisher,
		TokenTTL:             cfg.AccessTokenTTL,
	})
	if err != nil {
		log.Fatalf("Failed to build account service: %v", err)
	}

	deps := routes.Deps{Service: svc}
	if cfg.Jobs.RedisURL != "" {
		rdb, err := jobs.Dial(context.Background(), cfg.Jobs.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		deps.Queue = jobs.NewQueue(rdb, cfg.Jobs.Queue, cfg.Jobs.ResultTTL)
	} else {
		log.Println("REDIS_URL not set, prediction jobs disabled")
	}

	r := gin.Default()
	r.Use(security.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(telemetry.GinMiddleware())
	routes.Register(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("LungSense auth service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down LungSense auth service...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("LungSense auth service forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("LungSense auth service exited")
}
