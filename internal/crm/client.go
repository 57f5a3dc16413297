// Package crm writes computed estimates back to the CRM's contact records.
// A computed-but-unwritten estimate is silent data loss, so failures here are
// always surfaced to the caller, never swallowed.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roofquote_backend/platform/config"
	"roofquote_backend/platform/logger"
)

// WritebackError carries the upstream status and body of a failed contact
// update so the HTTP layer can report exactly what the CRM rejected.
type WritebackError struct {
	Status int
	Body   string
	Err    error
}

func (e *WritebackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crm write-back failed: %v", e.Err)
	}
	return fmt.Sprintf("crm returned %d: %s", e.Status, e.Body)
}

func (e *WritebackError) Unwrap() error {
	return e.Err
}

// Client updates a single custom field on CRM contact records.
type Client struct {
	baseURL string
	token   string
	fieldID string
	http    *http.Client
	log     *logger.Logger
}

type customFieldUpdate struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type contactUpdateRequest struct {
	CustomFields []customFieldUpdate `json:"customFields"`
}

// NewClient creates a CRM client, or nil when the CRM is not configured.
// A nil client is safe to call and reports every update as skipped.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	if !cfg.IsCRMEnabled() {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		token:   cfg.GetCRMAPIToken(),
		fieldID: cfg.GetCRMEstimateFieldID(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Enabled reports whether write-backs will actually be attempted.
func (c *Client) Enabled() bool {
	return c != nil
}

// UpdateContactEstimate sets the configured custom field on the contact to
// the estimate amount. One bounded retry with backoff covers transient
// upstream hiccups; the final failure is returned as a *WritebackError.
func (c *Client) UpdateContactEstimate(ctx context.Context, contactID string, amount float64) error {
	if c == nil {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &WritebackError{Err: ctx.Err()}
			case <-time.After(500 * time.Millisecond):
			}
		}

		lastErr = c.updateOnce(ctx, contactID, amount)
		if lastErr == nil {
			c.log.WritebackEvent(contactID, amount, true, "")
			return nil
		}
		if !retryable(lastErr) {
			break
		}
	}

	c.log.WritebackEvent(contactID, amount, false, lastErr.Error())
	return lastErr
}

// retryable limits the retry to transport errors and 5xx responses; a 4xx
// rejection will not change on a second attempt.
func retryable(err error) bool {
	wbErr, ok := err.(*WritebackError)
	if !ok {
		return false
	}
	return wbErr.Err != nil || wbErr.Status >= http.StatusInternalServerError
}

func (c *Client) updateOnce(ctx context.Context, contactID string, amount float64) error {
	payload := contactUpdateRequest{
		CustomFields: []customFieldUpdate{{ID: c.fieldID, Value: amount}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &WritebackError{Err: fmt.Errorf("marshal contact update: %w", err)}
	}

	url := fmt.Sprintf("%s/contacts/%s", c.baseURL, contactID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewBuffer(body))
	if err != nil {
		return &WritebackError{Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &WritebackError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WritebackError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	return nil
}
