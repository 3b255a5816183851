package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sejoli-erp/sejoli-erp/internal/worksheet"
)

// WorksheetEffects publishes worksheet cascade signals onto the job queue.
// It is the shipped worksheet.EffectsHandler: the engine stays purely
// reactive while document generation runs in the worker.
type WorksheetEffects struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewWorksheetEffects constructs the enqueuing effects handler.
func NewWorksheetEffects(client *asynq.Client, logger *slog.Logger) *WorksheetEffects {
	return &WorksheetEffects{client: client, logger: logger}
}

func (e *WorksheetEffects) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	e.logger.Debug("worksheet effect enqueued", slog.String("type", task.Type()), slog.String("task_id", info.ID))
	return nil
}

func (e *WorksheetEffects) HandleVendorAdded(ctx context.Context, evt worksheet.VendorAddedEvent) error {
	task, err := NewVendorAddedTask(VendorEffectPayload{
		BalanceID:   evt.Ref.BalanceID,
		EntryID:     evt.Ref.EntryID,
		VendorID:    evt.VendorID,
		QuotationID: evt.QuotationID,
	})
	if err != nil {
		return err
	}
	return e.enqueue(ctx, task)
}

func (e *WorksheetEffects) HandleVendorRemoved(ctx context.Context, evt worksheet.VendorRemovedEvent) error {
	if evt.QuotationID == 0 {
		// Nothing downstream exists for an unquoted entry.
		return nil
	}
	task, err := NewVendorRemovedTask(VendorEffectPayload{
		BalanceID:   evt.Ref.BalanceID,
		EntryID:     evt.Ref.EntryID,
		VendorID:    evt.VendorID,
		QuotationID: evt.QuotationID,
	})
	if err != nil {
		return err
	}
	return e.enqueue(ctx, task)
}

func (e *WorksheetEffects) HandleEntryEmptied(ctx context.Context, evt worksheet.EntryEmptiedEvent) error {
	if evt.QuotationID == 0 {
		return nil
	}
	task, err := NewEntryEmptiedTask(EntryEffectPayload{
		BalanceID:   evt.Ref.BalanceID,
		EntryID:     evt.Ref.EntryID,
		QuotationID: evt.QuotationID,
	})
	if err != nil {
		return err
	}
	return e.enqueue(ctx, task)
}
