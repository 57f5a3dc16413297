package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"roofquote_backend/internal/crm"
	"roofquote_backend/internal/payload"
	"roofquote_backend/internal/results"
	"roofquote_backend/internal/roofmeasure"
	"roofquote_backend/internal/scheduler"
	"roofquote_backend/platform/apperr"
	"roofquote_backend/platform/events"
	"roofquote_backend/platform/logger"
)

// Measurer measures a roof from an address. Satisfied by roofmeasure.Service.
type Measurer interface {
	Measure(ctx context.Context, address string) (int, error)
}

// ContactUpdater writes estimates to CRM contacts. Satisfied by crm.Client;
// a nil client reports itself as disabled.
type ContactUpdater interface {
	Enabled() bool
	UpdateContactEstimate(ctx context.Context, contactID string, amount float64) error
}

const writebackRetryDelay = time.Minute

// Service runs the estimate pipeline: resolve, normalize, short-circuit for
// insurance, measure when no manual squares were given, price, write back.
type Service struct {
	book     *PriceBook
	measurer Measurer
	crm      ContactUpdater
	store    results.Store
	retries  scheduler.WritebackScheduler
	bus      events.Bus
	log      *logger.Logger
}

// NewService creates the estimate service. retries may be nil when no task
// queue is configured.
func NewService(book *PriceBook, measurer Measurer, crmClient ContactUpdater, store results.Store, retries scheduler.WritebackScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		book:     book,
		measurer: measurer,
		crm:      crmClient,
		store:    store,
		retries:  retries,
		bus:      bus,
		log:      log,
	}
}

// ProcessLead handles one inbound webhook payload and returns the canonical
// response. Only malformed or invalid input yields an error; soft failures
// are expressed as outcomes.
func (s *Service) ProcessLead(ctx context.Context, tree payload.Tree) (EstimateResponse, error) {
	fields := ResolveFields(payload.NewResolver(tree))

	inputs, err := NormalizeInputs(fields)
	if err != nil {
		return EstimateResponse{}, err
	}

	resp := EstimateResponse{
		JobType:    inputs.JobType,
		Stories:    inputs.Stories,
		RoofType:   string(inputs.RoofType),
		Address:    inputs.Address,
		ContactID:  fields.ContactID,
		CallbackID: fields.CallbackID,
	}

	if IsInsurance(inputs.JobType) {
		resp.Outcome = OutcomeInsurance
		resp.Message = "insurance job detected; estimate pipeline skipped"
		s.finish(ctx, resp)
		return resp, nil
	}

	finalSquares, outcome := s.resolveSquares(ctx, inputs, &resp)
	if outcome != "" {
		resp.Outcome = outcome
		resp.Message = "roof size unknown; manual square count required"
		s.finish(ctx, resp)
		return resp, nil
	}

	quote, err := s.book.PriceQuote(finalSquares, inputs.Stories, inputs.RoofType)
	if err != nil {
		return EstimateResponse{}, apperr.Wrap(apperr.KindInternal, "pricing failed", err)
	}

	resp.Outcome = OutcomeEstimated
	resp.Message = "estimate computed"
	resp.FinalSquares = quote.FinalSquares
	resp.PricePerSquare = quote.PricePerSquare
	resp.TotalEstimate = quote.Total

	s.writeback(ctx, &resp)
	s.finish(ctx, resp)
	return resp, nil
}

// resolveSquares picks the final square count: manual input passes through
// untouched (already ceiling-rounded), auto-measurement gets the buffer.
// A non-empty outcome means no usable square count exists.
func (s *Service) resolveSquares(ctx context.Context, inputs NormalizedInputs, resp *EstimateResponse) (int, Outcome) {
	if inputs.HasSquares {
		return inputs.Squares, ""
	}

	if inputs.Address == "" {
		return 0, OutcomeManualRequired
	}

	raw, err := s.measurer.Measure(ctx, inputs.Address)
	if err != nil {
		if !errors.Is(err, roofmeasure.ErrUnavailable) {
			s.log.Error("unexpected measurement error", "error", err)
		}
		return 0, OutcomeManualRequired
	}

	resp.MeasuredSquares = &raw
	return roofmeasure.Buffer(raw), ""
}

// writeback pushes the estimate into the CRM when configured and a contact id
// was resolved. Failure flips the outcome so the caller can detect a
// computed-but-unwritten estimate, and a deferred retry is queued when a task
// queue is available.
func (s *Service) writeback(ctx context.Context, resp *EstimateResponse) {
	if !s.crm.Enabled() || resp.ContactID == "" {
		return
	}

	status := &WritebackStatus{Attempted: true}
	resp.Writeback = status

	err := s.crm.UpdateContactEstimate(ctx, resp.ContactID, resp.TotalEstimate)
	if err == nil {
		status.Succeeded = true
		return
	}

	status.Error = err.Error()
	var wbErr *crm.WritebackError
	if errors.As(err, &wbErr) {
		status.UpstreamStatus = wbErr.Status
	}

	if s.retries != nil {
		retryErr := s.retries.ScheduleWritebackRetry(ctx, scheduler.WritebackRetryPayload{
			ContactID:  resp.ContactID,
			Amount:     resp.TotalEstimate,
			CallbackID: resp.CallbackID,
		}, writebackRetryDelay)
		if retryErr != nil {
			s.log.Error("failed to queue writeback retry", "error", retryErr, "contactId", resp.ContactID)
		} else {
			status.RetryQueued = true
		}
	}

	resp.Outcome = OutcomeWritebackFailed
	resp.Message = "estimate computed but CRM write-back failed"
}

// finish stores the result for callback retrieval and publishes the domain
// event. Both are best-effort; the response to the caller is already final.
func (s *Service) finish(ctx context.Context, resp EstimateResponse) {
	if resp.CallbackID != "" && s.store != nil {
		data, err := json.Marshal(resp)
		if err == nil {
			err = s.store.Put(ctx, results.Record{
				CallbackID: resp.CallbackID,
				Payload:    data,
				CreatedAt:  time.Now().UTC(),
			})
		}
		if err != nil {
			s.log.Error("failed to store estimate result", "error", err, "callbackId", resp.CallbackID)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, EstimateComputed{
			BaseEvent: events.NewBaseEvent(),
			Response:  resp,
		})
	}
}
