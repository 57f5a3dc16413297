package estimate

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"roofquote_backend/internal/payload"
	"roofquote_backend/internal/roofmeasure"
	"roofquote_backend/platform/httpkit"
	"roofquote_backend/platform/logger"
	"roofquote_backend/platform/validator"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB. Lead payloads are a
// few KB; anything larger is abuse.
const maxWebhookBody = 1 << 20

// Handler exposes the estimate pipeline over HTTP.
type Handler struct {
	service *Service
	val     *validator.Validator
	log     *logger.Logger
}

// NewHandler creates the estimate HTTP handler.
func NewHandler(service *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

// HandleEstimateWebhook processes one inbound lead webhook.
//
// Soft failures (roof not measurable, insurance short-circuit) return 200 with
// an outcome the workflow can branch on. A failed CRM write-back returns 502
// so retrying callers notice, but the computed estimate is still in the body.
func (h *Handler) HandleEstimateWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	tree, err := payload.Parse(body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "request body is not a JSON object", nil)
		return
	}

	resp, err := h.service.ProcessLead(c.Request.Context(), tree)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if resp.Outcome == OutcomeWritebackFailed {
		status = http.StatusBadGateway
	}
	httpkit.JSON(c, status, resp)
}

// HandleGetResult returns a previously computed result by callback id.
func (h *Handler) HandleGetResult(c *gin.Context) {
	callbackID := c.Param("callbackId")

	record, found, err := h.service.store.Get(c.Request.Context(), callbackID)
	if err != nil {
		h.log.Error("result lookup failed", "error", err, "callbackId", callbackID)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	if !found {
		httpkit.Error(c, http.StatusNotFound, "no result for callback id", nil)
		return
	}

	c.Data(http.StatusOK, "application/json", record.Payload)
}

// HandleMeasure measures a roof for an ad-hoc address, without pricing. Used
// by operators to sanity-check the measurement pipeline.
func (h *Handler) HandleMeasure(c *gin.Context) {
	var req MeasureRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "address is required", nil)
		return
	}

	raw, err := h.service.measurer.Measure(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, roofmeasure.ErrUnavailable) {
			httpkit.OK(c, MeasureResponse{
				Outcome: "unavailable",
				Address: req.Address,
				Message: "roof could not be measured for this address",
			})
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	httpkit.OK(c, MeasureResponse{
		Outcome:         "measured",
		Address:         req.Address,
		RawSquares:      raw,
		BufferedSquares: roofmeasure.Buffer(raw),
	})
}
