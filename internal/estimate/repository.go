package estimate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"roofquote_backend/platform/events"
	"roofquote_backend/platform/logger"
)

// Repository persists estimate history to Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed estimate repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records one computed estimate.
func (r *Repository) Insert(ctx context.Context, resp EstimateResponse) error {
	query := `
		INSERT INTO estimates (
			id, outcome, job_type, stories, roof_type, address,
			measured_squares, final_squares, price_per_square, total_estimate,
			contact_id, callback_id, writeback_succeeded
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	writebackOK := resp.Writeback != nil && resp.Writeback.Succeeded

	_, err := r.pool.Exec(ctx, query,
		uuid.New(),
		string(resp.Outcome),
		resp.JobType,
		resp.Stories,
		resp.RoofType,
		resp.Address,
		resp.MeasuredSquares,
		resp.FinalSquares,
		resp.PricePerSquare,
		resp.TotalEstimate,
		nullable(resp.ContactID),
		nullable(resp.CallbackID),
		writebackOK,
	)
	if err != nil {
		return fmt.Errorf("insert estimate: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// HistorySubscriber persists every computed estimate off the event bus.
// Persistence is best-effort; a database outage never fails a webhook.
type HistorySubscriber struct {
	repo *Repository
	log  *logger.Logger
}

// NewHistorySubscriber creates the history persistence subscriber.
func NewHistorySubscriber(repo *Repository, log *logger.Logger) *HistorySubscriber {
	return &HistorySubscriber{repo: repo, log: log}
}

// Handle persists the estimate carried by the event.
func (s *HistorySubscriber) Handle(ctx context.Context, event events.Event) error {
	computed, ok := event.(EstimateComputed)
	if !ok {
		return nil
	}

	if err := s.repo.Insert(ctx, computed.Response); err != nil {
		s.log.Error("failed to persist estimate history", "error", err, "callbackId", computed.Response.CallbackID)
		return err
	}
	return nil
}
