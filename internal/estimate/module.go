package estimate

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"roofquote_backend/internal/crm"
	apphttp "roofquote_backend/internal/http"
	"roofquote_backend/internal/results"
	"roofquote_backend/internal/roofmeasure"
	"roofquote_backend/internal/scheduler"
	"roofquote_backend/platform/config"
	"roofquote_backend/platform/events"
	"roofquote_backend/platform/logger"
	"roofquote_backend/platform/validator"
)

// Module bundles the estimate pipeline's service, handler, and event
// subscriptions.
type Module struct {
	handler *Handler
	repo    *Repository
	log     *logger.Logger
}

// ModuleConfig combines the config interfaces the estimate module needs.
type ModuleConfig interface {
	config.MapsConfig
	config.CRMConfig
	config.PricingConfig
}

// NewModule wires the estimate bounded context. pool and retries may be nil
// when the database or task queue is not configured.
func NewModule(
	cfg ModuleConfig,
	pool *pgxpool.Pool,
	store results.Store,
	retries scheduler.WritebackScheduler,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	book, err := LoadPriceBook(cfg.GetPricingConfigPath())
	if err != nil {
		return nil, err
	}

	measurer := roofmeasure.NewService(cfg, log)
	crmClient := crm.NewClient(cfg, log)
	service := NewService(book, measurer, crmClient, store, retries, eventBus, log)

	module := &Module{
		handler: NewHandler(service, val, log),
		log:     log,
	}
	if pool != nil {
		module.repo = NewRepository(pool)
	}

	return module, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "estimate"
}

// RegisterRoutes mounts the estimate routes. The webhook endpoint sits behind
// the shared-secret check; the result and measure endpoints are internal
// operator tools on the same guard.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhooks := ctx.V1.Group("/webhooks")
	webhooks.Use(ctx.WebhookAuth)
	webhooks.POST("/estimate", m.handler.HandleEstimateWebhook)

	estimates := ctx.V1.Group("/estimates")
	estimates.Use(ctx.WebhookAuth)
	estimates.GET("/results/:callbackId", m.handler.HandleGetResult)
	estimates.GET("/measure", m.handler.HandleMeasure)
}

// RegisterEventHandlers subscribes the history persistence handler. A no-op
// without a database pool.
func (m *Module) RegisterEventHandlers(bus events.Bus) {
	if m.repo == nil {
		m.log.Warn("DATABASE_URL not configured; estimate history persistence disabled")
		return
	}
	bus.Subscribe(EventEstimateComputed, NewHistorySubscriber(m.repo, m.log))
}
