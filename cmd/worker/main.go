package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/digibiomics/LungSense-main/config"
	"github.com/digibiomics/LungSense-main/events"
	"github.com/digibiomics/LungSense-main/jobs"
	"github.com/digibiomics/LungSense-main/telemetry"
)

const eventsQueue = "lungsense.worker.account-events"

// Worker settings reuse the API's job and event configuration.
type workerConfig struct {
	Jobs         config.Jobs
	Events       config.Events
	Telemetry    config.Telemetry
	PredictDelay time.Duration `env:"PREDICT_DELAY" envDefault:"2s"`
}

func main() {
	var cfg workerConfig
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Jobs.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	rdb, err := jobs.Dial(ctx, cfg.Jobs.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	queue := jobs.NewQueue(rdb, cfg.Jobs.Queue, cfg.Jobs.ResultTTL)

	worker := jobs.NewWorker(queue)
	worker.Handle(jobs.TypePredict, jobs.PredictHandler(cfg.PredictDelay))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Job worker consuming %s", cfg.Jobs.Queue)
		worker.Run(ctx)
	}()

	// Hard-deleted accounts lose their stored prediction results.
	if cfg.Events.AMQPURL != "" {
		consumer, err := events.NewConsumer(cfg.Events.AMQPURL, cfg.Events.Exchange, eventsQueue, events.AccountHardDeleted)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := consumer.Run(ctx, func(ctx context.Context, e events.Event) error {
				n, err := queue.PurgeAccount(ctx, e.AccountID)
				if err != nil {
					return err
				}
				log.Printf("Purged %d jobs for deleted account %s", n, e.AccountID)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("Account event consumer stopped, shutting down: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down job worker...")
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}
	log.Println("Job worker exited")
}
