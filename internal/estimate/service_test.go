package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"roofquote_backend/internal/crm"
	"roofquote_backend/internal/payload"
	"roofquote_backend/internal/results"
	"roofquote_backend/internal/roofmeasure"
	"roofquote_backend/internal/scheduler"
	"roofquote_backend/platform/apperr"
	"roofquote_backend/platform/logger"
)

type stubMeasurer struct {
	squares int
	err     error
	calls   int
}

func (m *stubMeasurer) Measure(_ context.Context, _ string) (int, error) {
	m.calls++
	return m.squares, m.err
}

type stubCRM struct {
	enabled    bool
	err        error
	calls      int
	lastID     string
	lastAmount float64
}

func (c *stubCRM) Enabled() bool { return c.enabled }

func (c *stubCRM) UpdateContactEstimate(_ context.Context, contactID string, amount float64) error {
	c.calls++
	c.lastID = contactID
	c.lastAmount = amount
	return c.err
}

type stubScheduler struct {
	calls   int
	payload scheduler.WritebackRetryPayload
}

func (s *stubScheduler) ScheduleWritebackRetry(_ context.Context, payload scheduler.WritebackRetryPayload, _ time.Duration) error {
	s.calls++
	s.payload = payload
	return nil
}

type serviceFixture struct {
	service  *Service
	measurer *stubMeasurer
	crm      *stubCRM
	retries  *stubScheduler
	store    *results.MemoryStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		measurer: &stubMeasurer{},
		crm:      &stubCRM{},
		retries:  &stubScheduler{},
		store:    results.NewMemoryStore(time.Hour),
	}
	f.service = NewService(DefaultPriceBook(), f.measurer, f.crm, f.store, f.retries, nil, logger.New("test"))
	return f
}

func mustTree(t *testing.T, body string) payload.Tree {
	t.Helper()
	tree, err := payload.Parse([]byte(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestProcessLeadManualSquares(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"job_type":"Retail","stories":1,"squares":18}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeEstimated {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeEstimated)
	}
	if resp.FinalSquares != 18 || resp.PricePerSquare != 500 || resp.TotalEstimate != 9000 {
		t.Fatalf("unexpected quote: %+v", resp)
	}
	if resp.MeasuredSquares != nil {
		t.Fatal("manual squares must not be measured")
	}
	if f.measurer.calls != 0 {
		t.Fatalf("measurer called %d times, want 0", f.measurer.calls)
	}
}

func TestProcessLeadMeasuredWithBuffer(t *testing.T) {
	f := newServiceFixture(t)
	f.measurer.squares = 15 // e.g. 130 m2 of roof segments

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"job_type":"retail","stories":"2 Stories","full_address":"12 Oak Ave, Denver, CO 80014"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.MeasuredSquares == nil || *resp.MeasuredSquares != 15 {
		t.Fatalf("measured squares = %v, want 15", resp.MeasuredSquares)
	}
	if resp.FinalSquares != 18 {
		t.Fatalf("final squares = %d, want 18 (15 + 3 waste buffer)", resp.FinalSquares)
	}
	if resp.TotalEstimate != 10350 {
		t.Fatalf("total = %v, want 10350", resp.TotalEstimate)
	}
}

func TestProcessLeadInsuranceShortCircuit(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.enabled = true

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"job_type":"Insurance Claim","full_address":"12 Oak Ave, Denver, CO 80014","contact_id":"c-1"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeInsurance {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeInsurance)
	}
	if resp.TotalEstimate != 0 {
		t.Fatalf("insurance leads must not be priced, got %v", resp.TotalEstimate)
	}
	if f.measurer.calls != 0 || f.crm.calls != 0 {
		t.Fatal("insurance leads must not reach external services")
	}
}

func TestProcessLeadNoAddressNoSquares(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t, `{"job_type":"retail"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeManualRequired {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeManualRequired)
	}
	if f.measurer.calls != 0 {
		t.Fatal("measurer must not be called without an address")
	}
}

func TestProcessLeadMeasurementUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	f.measurer.err = roofmeasure.ErrUnavailable

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"full_address":"12 Oak Ave, Denver, CO 80014"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeManualRequired {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeManualRequired)
	}
	if resp.TotalEstimate != 0 {
		t.Fatalf("unmeasurable roof must not be priced, got %v", resp.TotalEstimate)
	}
}

func TestProcessLeadInvalidSquares(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ProcessLead(context.Background(), mustTree(t, `{"squares":"a lot"}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestProcessLeadWritebackSuccess(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.enabled = true

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"squares":10,"stories":1,"contact_id":"c-42"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeEstimated {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeEstimated)
	}
	if resp.Writeback == nil || !resp.Writeback.Attempted || !resp.Writeback.Succeeded {
		t.Fatalf("unexpected writeback status: %+v", resp.Writeback)
	}
	if f.crm.lastID != "c-42" || f.crm.lastAmount != 5000 {
		t.Fatalf("writeback got %q/%v, want c-42/5000", f.crm.lastID, f.crm.lastAmount)
	}
}

func TestProcessLeadWritebackFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.enabled = true
	f.crm.err = &crm.WritebackError{Status: 503, Body: "upstream down"}

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"squares":10,"stories":1,"contact_id":"c-42","callback_id":"cb-9"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Outcome != OutcomeWritebackFailed {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeWritebackFailed)
	}
	// The estimate itself survives the failed write-back.
	if resp.TotalEstimate != 5000 {
		t.Fatalf("total = %v, want 5000", resp.TotalEstimate)
	}
	if resp.Writeback == nil || resp.Writeback.Succeeded || resp.Writeback.UpstreamStatus != 503 {
		t.Fatalf("unexpected writeback status: %+v", resp.Writeback)
	}
	if !resp.Writeback.RetryQueued || f.retries.calls != 1 {
		t.Fatal("expected a deferred retry to be queued")
	}
	if f.retries.payload.ContactID != "c-42" || f.retries.payload.Amount != 5000 {
		t.Fatalf("unexpected retry payload: %+v", f.retries.payload)
	}
}

func TestProcessLeadSkipsWritebackWithoutContact(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.enabled = true

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t, `{"squares":10}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	if resp.Writeback != nil {
		t.Fatalf("expected no writeback attempt, got %+v", resp.Writeback)
	}
	if f.crm.calls != 0 {
		t.Fatal("CRM must not be called without a contact id")
	}
}

func TestProcessLeadStoresResultByCallbackID(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"squares":18,"stories":1,"callback_id":"cb-1"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}

	record, found, err := f.store.Get(context.Background(), "cb-1")
	if err != nil || !found {
		t.Fatalf("stored result not found: %v, %v", found, err)
	}

	var stored EstimateResponse
	if err := json.Unmarshal(record.Payload, &stored); err != nil {
		t.Fatalf("unmarshal stored payload: %v", err)
	}
	if stored.TotalEstimate != resp.TotalEstimate {
		t.Fatalf("stored total %v != response total %v", stored.TotalEstimate, resp.TotalEstimate)
	}
}

func TestProcessLeadUnexpectedMeasurementError(t *testing.T) {
	f := newServiceFixture(t)
	f.measurer.err = errors.New("boom")

	resp, err := f.service.ProcessLead(context.Background(), mustTree(t,
		`{"full_address":"12 Oak Ave, Denver, CO 80014"}`))
	if err != nil {
		t.Fatalf("ProcessLead: %v", err)
	}
	if resp.Outcome != OutcomeManualRequired {
		t.Fatalf("outcome = %q, want %q", resp.Outcome, OutcomeManualRequired)
	}
}
