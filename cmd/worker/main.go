// Command worker runs the asynq consumer that delivers deferred CRM
// write-back retries. It shares config and the CRM client with the API
// process but holds no HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"roofquote_backend/internal/crm"
	"roofquote_backend/internal/scheduler"
	"roofquote_backend/platform/config"
	"roofquote_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting writeback worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crmClient := crm.NewClient(cfg, log)
	if !crmClient.Enabled() {
		log.Warn("CRM not configured; worker will drop retry tasks")
	}

	worker, err := scheduler.NewWorker(cfg, crmClient, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping worker")
		worker.Shutdown()
	case err := <-workerErr:
		if err != nil {
			log.Error("worker error", "error", err)
			panic("worker error: " + err.Error())
		}
	}
}
