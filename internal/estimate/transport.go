package estimate

// Outcome classifies how a webhook request terminated. Soft failures
// (measurement unavailable) are outcomes, not errors: the calling workflow
// always needs a body it can branch on.
type Outcome string

const (
	// OutcomeEstimated means an estimate was computed.
	OutcomeEstimated Outcome = "estimated"
	// OutcomeInsurance means the insurance flow short-circuited the pipeline.
	OutcomeInsurance Outcome = "insurance"
	// OutcomeManualRequired means no squares were given and the roof could
	// not be measured automatically.
	OutcomeManualRequired Outcome = "manual_squares_required"
	// OutcomeWritebackFailed means the estimate was computed but the CRM
	// update was rejected; the caller must not treat this as success.
	OutcomeWritebackFailed Outcome = "writeback_failed"
)

// WritebackStatus reports what happened to the CRM contact update.
type WritebackStatus struct {
	Attempted      bool   `json:"attempted"`
	Succeeded      bool   `json:"succeeded"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	Error          string `json:"error,omitempty"`
	RetryQueued    bool   `json:"retryQueued,omitempty"`
}

// EstimateResponse is the single canonical response contract. Historical
// integrations echoed the total under flat, dotted, and nested key variants;
// those shapes are deprecated and intentionally not reproduced here.
type EstimateResponse struct {
	Outcome         Outcome          `json:"outcome"`
	Message         string           `json:"message"`
	JobType         string           `json:"jobType"`
	Stories         int              `json:"stories,omitempty"`
	RoofType        string           `json:"roofType,omitempty"`
	Address         string           `json:"address,omitempty"`
	MeasuredSquares *int             `json:"measuredSquares,omitempty"`
	FinalSquares    int              `json:"finalSquares,omitempty"`
	PricePerSquare  float64          `json:"pricePerSquare,omitempty"`
	TotalEstimate   float64          `json:"totalEstimate,omitempty"`
	ContactID       string           `json:"contactId,omitempty"`
	CallbackID      string           `json:"callbackId,omitempty"`
	Writeback       *WritebackStatus `json:"writeback,omitempty"`
}

// MeasureRequest is the query binding for the manual measurement endpoint.
type MeasureRequest struct {
	Address string `form:"address" validate:"required,min=5"`
}

// MeasureResponse is returned by the manual measurement endpoint.
type MeasureResponse struct {
	Outcome         string `json:"outcome"`
	Address         string `json:"address"`
	RawSquares      int    `json:"rawSquares,omitempty"`
	BufferedSquares int    `json:"bufferedSquares,omitempty"`
	Message         string `json:"message,omitempty"`
}
