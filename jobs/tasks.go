package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskVendorAdded drafts a purchase order for a vendor that first
	// appeared in a quoted worksheet entry.
	TaskVendorAdded = "worksheet:vendor_added"
	// TaskVendorRemoved retires the purchase orders of a vendor whose last
	// item left an entry.
	TaskVendorRemoved = "worksheet:vendor_removed"
	// TaskEntryEmptied retires the full document chain of an emptied entry.
	TaskEntryEmptied = "worksheet:entry_emptied"
)

// VendorEffectPayload identifies the vendor and quotation a worksheet
// signal refers to.
type VendorEffectPayload struct {
	BalanceID   int64 `json:"balance_id"`
	EntryID     int64 `json:"entry_id"`
	VendorID    int64 `json:"vendor_id"`
	QuotationID int64 `json:"quotation_id"`
}

// EntryEffectPayload identifies the entry a worksheet signal refers to.
type EntryEffectPayload struct {
	BalanceID   int64 `json:"balance_id"`
	EntryID     int64 `json:"entry_id"`
	QuotationID int64 `json:"quotation_id"`
}

// NewVendorAddedTask constructs an Asynq task.
func NewVendorAddedTask(payload VendorEffectPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorAdded, data), nil
}

// NewVendorRemovedTask constructs an Asynq task.
func NewVendorRemovedTask(payload VendorEffectPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorRemoved, data), nil
}

// NewEntryEmptiedTask constructs an Asynq task.
func NewEntryEmptiedTask(payload EntryEffectPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEntryEmptied, data), nil
}
