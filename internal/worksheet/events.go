package worksheet

import "context"

// VendorAddedEvent fires when a new vendor first appears among an entry's
// items while the entry is already linked to a quotation.
type VendorAddedEvent struct {
	Ref         EntryRef
	VendorID    int64
	QuotationID int64
}

// VendorRemovedEvent fires when the last item for a vendor is deleted from
// an entry. QuotationID is zero when the entry was never quoted.
type VendorRemovedEvent struct {
	Ref         EntryRef
	VendorID    int64
	QuotationID int64
}

// EntryEmptiedEvent fires when the last item of the entry is deleted.
type EntryEmptiedEvent struct {
	Ref         EntryRef
	QuotationID int64
}

// EffectsHandler receives worksheet lifecycle events for downstream document
// generation and cleanup. Handler failures are logged by the caller and
// never block the pricing save itself.
type EffectsHandler interface {
	HandleVendorAdded(ctx context.Context, evt VendorAddedEvent) error
	HandleVendorRemoved(ctx context.Context, evt VendorRemovedEvent) error
	HandleEntryEmptied(ctx context.Context, evt EntryEmptiedEvent) error
}

// NopEffects discards all events. Used when no downstream collaborator is
// wired, e.g. in isolated entry tooling.
type NopEffects struct{}

func (NopEffects) HandleVendorAdded(context.Context, VendorAddedEvent) error     { return nil }
func (NopEffects) HandleVendorRemoved(context.Context, VendorRemovedEvent) error { return nil }
func (NopEffects) HandleEntryEmptied(context.Context, EntryEmptiedEvent) error   { return nil }
