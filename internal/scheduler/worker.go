package scheduler

import (
	"context"
	"fmt"

	"roofquote_backend/internal/crm"
	"roofquote_backend/platform/config"
	"roofquote_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker processes deferred write-back retries. Returning an error from a
// handler lets asynq re-deliver with its own backoff, up to the MaxRetry set
// at enqueue time.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	crm    *crm.Client
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, crmClient *crm.Client, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		crm:    crmClient,
		log:    log,
	}

	mux.HandleFunc(TaskWritebackRetry, w.handleWritebackRetry)

	return w, nil
}

// Run starts the worker and blocks until shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleWritebackRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWritebackRetryPayload(task)
	if err != nil {
		return err
	}

	if !w.crm.Enabled() {
		w.log.Warn("writeback retry dropped: CRM not configured", "contactId", payload.ContactID)
		return nil
	}

	if err := w.crm.UpdateContactEstimate(ctx, payload.ContactID, payload.Amount); err != nil {
		return err
	}

	w.log.Info("deferred writeback delivered", "contactId", payload.ContactID, "amount", payload.Amount)
	return nil
}
