package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sejoli-erp/sejoli-erp/internal/jobs"
	"github.com/sejoli-erp/sejoli-erp/internal/procurement"
)

// EffectHandlers processes worksheet effect tasks against the procurement
// service. Handlers are idempotent; asynq retries transient failures.
type EffectHandlers struct {
	procurement *procurement.Service
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
}

// NewEffectHandlers constructs the worker-side effect handlers. A nil metrics
// value disables instrumentation.
func NewEffectHandlers(svc *procurement.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *EffectHandlers {
	return &EffectHandlers{procurement: svc, logger: logger, metrics: metrics}
}

// HandleVendorAdded processes TaskVendorAdded tasks.
func (h *EffectHandlers) HandleVendorAdded(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskVendorAdded)
	var payload VendorEffectPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	_, err := h.procurement.EnsureDraftPO(ctx, payload.QuotationID, payload.VendorID)
	return tracker.End(err)
}

// HandleVendorRemoved processes TaskVendorRemoved tasks.
func (h *EffectHandlers) HandleVendorRemoved(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskVendorRemoved)
	var payload VendorEffectPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	return tracker.End(h.procurement.RetireVendorPOs(ctx, payload.QuotationID, payload.VendorID))
}

// HandleEntryEmptied processes TaskEntryEmptied tasks.
func (h *EffectHandlers) HandleEntryEmptied(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskEntryEmptied)
	var payload EntryEffectPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	return tracker.End(h.procurement.RetireQuotationChain(ctx, payload.QuotationID))
}
