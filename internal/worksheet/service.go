package worksheet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sejoli-erp/sejoli-erp/internal/pricing"
)

// Service orchestrates worksheet entry state: item lifecycle, shared cost
// pools, entry settings, recomputes and the downstream cascade signals.
// One coordinator is kept per open entry; in this design a single session
// mutates an entry at a time and the remote store stays the authority.
type Service struct {
	repo     Repository
	rates    RateSource
	effects  EffectsHandler
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	coords map[EntryRef]*Coordinator
}

func NewService(repo Repository, rates RateSource, effects EffectsHandler, logger *slog.Logger, debounce time.Duration) *Service {
	if effects == nil {
		effects = NopEffects{}
	}
	return &Service{
		repo:     repo,
		rates:    rates,
		effects:  effects,
		logger:   logger,
		debounce: debounce,
		coords:   make(map[EntryRef]*Coordinator),
	}
}

// Open loads (or returns the already loaded) coordinator for one entry.
func (s *Service) Open(ctx context.Context, ref EntryRef) (*Coordinator, error) {
	s.mu.Lock()
	if c, ok := s.coords[ref]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	entry, err := s.repo.GetEntry(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	coord := NewCoordinator(s.repo, s.rates, s.logger, *entry, s.debounce)
	if err := coord.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.coords[ref]; ok {
		coord.Close()
		return existing, nil
	}
	s.coords[ref] = coord
	return coord, nil
}

// CloseEntry drops the in-memory state for an entry, cancelling pending
// debounced writes.
func (s *Service) CloseEntry(ref EntryRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.coords[ref]; ok {
		c.Close()
		delete(s.coords, ref)
	}
}

// View assembles the full read model for the worksheet page.
func (s *Service) View(ctx context.Context, ref EntryRef) (*WorksheetView, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	items, err := coord.RecomputeLocal(ctx)
	if err != nil {
		return nil, err
	}
	settings := coord.Settings()
	summary := pricing.Summarize(toPricingItems(items), pricing.EntryTerms{
		DiscountPercentage: settings.DiscountPercentage,
		PPNPercentage:      settings.PPNPercentage,
	})
	return &WorksheetView{
		Entry:          coord.Entry(),
		Items:          items,
		VendorGroups:   coord.Groups(GroupKindVendor),
		CustomerGroups: coord.Groups(GroupKindCustomer),
		Settings:       settings,
		Summary:        summary,
	}, nil
}

// AddItem appends an item at the next position, recomputes the whole entry
// and writes prices back. When the item introduces a vendor the entry has
// not seen and the entry is already quoted, the downstream collaborator is
// signalled to draft a purchase order for that vendor.
func (s *Service) AddItem(ctx context.Context, ref EntryRef, req CreateItemRequest) (*LineItem, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}

	newVendor := req.VendorID != nil && !s.vendorPresent(coord.Items(), *req.VendorID)

	item := LineItem{
		Ref:           ref,
		VendorID:      req.VendorID,
		CustomerSpec:  req.CustomerSpec,
		VendorSpec:    req.VendorSpec,
		PurchasePrice: req.PurchasePrice,
		Qty:           req.Qty,
		Unit:          req.Unit,
		Weight:        req.Weight,
		VendorGroup:   req.VendorGroup,
		CustomerGroup: req.CustomerGroup,
		DeliveryTime:  req.DeliveryTime,
		Difficulty:    req.Difficulty,
		Position:      coord.NextPosition(),
	}

	id, err := s.repo.InsertItem(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	coord.UpsertItemLocal(item)

	s.repriceBestEffort(ctx, coord, "add item")

	entry := coord.Entry()
	if newVendor && entry.QuotationID != nil {
		evt := VendorAddedEvent{Ref: ref, VendorID: *req.VendorID, QuotationID: *entry.QuotationID}
		if err := s.effects.HandleVendorAdded(ctx, evt); err != nil {
			s.logger.Error("vendor added effect", slog.Int64("vendor_id", evt.VendorID), slog.Any("error", err))
		}
	}

	return s.currentItem(coord, id), nil
}

// UpdateItem applies a partial edit and reprices the full entry; any group
// or quantity change can shift every sibling's pool share. Changing the
// vendor reference runs the same appear/disappear cascade as add and
// delete: a vendor leaving the entry entirely has its settings cleared and
// its purchase orders retired, a vendor first appearing on a quoted entry
// gets a draft purchase order.
func (s *Service) UpdateItem(ctx context.Context, ref EntryRef, id int64, req UpdateItemRequest) (*LineItem, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}

	item, ok := findItem(coord.Items(), id)
	if !ok {
		return nil, ErrNotFound
	}

	prevVendorID := item.VendorID
	vendorChanged := req.VendorID != nil && (prevVendorID == nil || *prevVendorID != *req.VendorID)
	newVendor := vendorChanged && !s.vendorPresent(coord.Items(), *req.VendorID)

	updates := make(map[string]interface{})
	if req.VendorID != nil {
		item.VendorID = req.VendorID
		updates["vendor_id"] = *req.VendorID
	}
	if req.CustomerSpec != nil {
		item.CustomerSpec = *req.CustomerSpec
		updates["customer_spec"] = *req.CustomerSpec
	}
	if req.VendorSpec != nil {
		item.VendorSpec = *req.VendorSpec
		updates["vendor_spec"] = *req.VendorSpec
	}
	if req.PurchasePrice != nil {
		item.PurchasePrice = *req.PurchasePrice
		updates["purchase_price"] = *req.PurchasePrice
	}
	if req.Qty != nil {
		item.Qty = *req.Qty
		updates["qty"] = *req.Qty
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
		updates["unit"] = *req.Unit
	}
	if req.Weight != nil {
		item.Weight = *req.Weight
		updates["weight"] = *req.Weight
	}
	if req.VendorGroup != nil {
		item.VendorGroup = *req.VendorGroup
		updates["shipping_vendor_group"] = *req.VendorGroup
	}
	if req.CustomerGroup != nil {
		item.CustomerGroup = *req.CustomerGroup
		updates["shipping_customer_group"] = *req.CustomerGroup
	}
	if req.DeliveryTime != nil {
		item.DeliveryTime = *req.DeliveryTime
		updates["delivery_time"] = *req.DeliveryTime
	}
	if req.Difficulty != nil {
		item.Difficulty = *req.Difficulty
		updates["difficulty"] = *req.Difficulty
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateItem(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}
	coord.UpsertItemLocal(item)

	s.repriceBestEffort(ctx, coord, "update item")

	if vendorChanged {
		entry := coord.Entry()
		var quotationID int64
		if entry.QuotationID != nil {
			quotationID = *entry.QuotationID
		}

		if newVendor && entry.QuotationID != nil {
			evt := VendorAddedEvent{Ref: ref, VendorID: *req.VendorID, QuotationID: quotationID}
			if err := s.effects.HandleVendorAdded(ctx, evt); err != nil {
				s.logger.Error("vendor added effect", slog.Int64("vendor_id", evt.VendorID), slog.Any("error", err))
			}
		}

		if prevVendorID != nil && !s.vendorPresent(coord.Items(), *prevVendorID) {
			if err := s.repo.DeleteVendorSettings(ctx, ref, *prevVendorID); err != nil {
				s.logger.Error("delete vendor settings", slog.Int64("vendor_id", *prevVendorID), slog.Any("error", err))
			}
			evt := VendorRemovedEvent{Ref: ref, VendorID: *prevVendorID, QuotationID: quotationID}
			if err := s.effects.HandleVendorRemoved(ctx, evt); err != nil {
				s.logger.Error("vendor removed effect", slog.Int64("vendor_id", evt.VendorID), slog.Any("error", err))
			}
		}
	}

	return s.currentItem(coord, id), nil
}

// DeleteItem removes an item and runs the delete cascade: deleting a
// vendor's last item clears that vendor's entry-scoped settings and
// signals the downstream collaborator to retire the vendor's purchase
// order; deleting the entry's last item additionally signals retirement of
// the whole derived document chain. Cascade failures are logged per effect
// and never block the delete itself.
func (s *Service) DeleteItem(ctx context.Context, ref EntryRef, id int64) error {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return err
	}

	item, ok := findItem(coord.Items(), id)
	if !ok {
		return ErrNotFound
	}

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	coord.RemoveItemLocal(id)

	remaining := coord.Items()
	entry := coord.Entry()
	var quotationID int64
	if entry.QuotationID != nil {
		quotationID = *entry.QuotationID
	}

	if item.VendorID != nil && !s.vendorPresent(remaining, *item.VendorID) {
		if err := s.repo.DeleteVendorSettings(ctx, ref, *item.VendorID); err != nil {
			s.logger.Error("delete vendor settings", slog.Int64("vendor_id", *item.VendorID), slog.Any("error", err))
		}
		evt := VendorRemovedEvent{Ref: ref, VendorID: *item.VendorID, QuotationID: quotationID}
		if err := s.effects.HandleVendorRemoved(ctx, evt); err != nil {
			s.logger.Error("vendor removed effect", slog.Int64("vendor_id", evt.VendorID), slog.Any("error", err))
		}
	}

	if len(remaining) == 0 {
		evt := EntryEmptiedEvent{Ref: ref, QuotationID: quotationID}
		if err := s.effects.HandleEntryEmptied(ctx, evt); err != nil {
			s.logger.Error("entry emptied effect", slog.Any("error", err))
		}
		return nil
	}

	s.repriceBestEffort(ctx, coord, "delete item")
	return nil
}

// Reorder assigns contiguous positions 1..n following the requested id
// order. Pricing is untouched; the operation shares the persistence path.
func (s *Service) Reorder(ctx context.Context, ref EntryRef, orderedIDs []int64) ([]LineItem, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}

	current := coord.Items()
	if len(orderedIDs) != len(current) {
		return nil, fmt.Errorf("%w: reorder must list all %d items", ErrNotFound, len(current))
	}
	known := make(map[int64]bool, len(current))
	for _, it := range current {
		known[it.ID] = true
	}
	for _, id := range orderedIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
		}
		delete(known, id)
	}

	if err := s.repo.UpdatePositions(ctx, ref, orderedIDs); err != nil {
		return nil, err
	}
	coord.ApplyOrderLocal(orderedIDs)
	return coord.Items(), nil
}

// SetGroupCost applies a shared-cost edit. The new cost is visible in
// recomputed prices immediately; the remote write and bulk write-back run
// after the debounce window settles.
func (s *Service) SetGroupCost(ctx context.Context, ref EntryRef, kind GroupKind, groupID int64, cost float64) (*WorksheetView, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := coord.SetGroupCost(ctx, kind, groupID, cost); err != nil {
		return nil, err
	}
	return s.View(ctx, ref)
}

// UpdateSettings merges a partial settings edit and persists it. Entry
// settings only feed the aggregate summary, so no reprice is needed.
func (s *Service) UpdateSettings(ctx context.Context, ref EntryRef, req UpdateSettingsRequest) (EntrySettings, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return EntrySettings{}, err
	}

	settings := coord.Settings()
	settings.Ref = ref
	if req.MarginPercentage != nil {
		settings.MarginPercentage = *req.MarginPercentage
	}
	if req.PaymentTerms != nil {
		settings.PaymentTerms = *req.PaymentTerms
	}
	if req.PPNPercentage != nil {
		settings.PPNPercentage = *req.PPNPercentage
	}
	if req.DocumentCost != nil {
		settings.DocumentCost = *req.DocumentCost
	}
	if req.ReturnCost != nil {
		settings.ReturnCost = *req.ReturnCost
	}
	if req.DiscountPercentage != nil {
		settings.DiscountPercentage = *req.DiscountPercentage
	}

	if err := s.repo.UpsertSettings(ctx, ref, settings); err != nil {
		return EntrySettings{}, err
	}
	coord.SetSettingsLocal(settings)
	return settings, nil
}

// Save is the explicit, awaited persistence path: pending debounce timers
// are cancelled, pools and settings are upserted, and one synchronous
// recompute plus write-back runs. The first write error is returned so the
// caller can stop before any dependent downstream step.
func (s *Service) Save(ctx context.Context, ref EntryRef) ([]WriteResult, error) {
	coord, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	return coord.Flush(ctx)
}

func (s *Service) repriceBestEffort(ctx context.Context, coord *Coordinator, op string) {
	if _, err := coord.Reprice(ctx); err != nil {
		s.logger.Error("bulk price write-back", slog.String("op", op), slog.Any("error", err))
	}
}

func (s *Service) currentItem(coord *Coordinator, id int64) *LineItem {
	if it, ok := findItem(coord.Items(), id); ok {
		return &it
	}
	return nil
}

func (s *Service) vendorPresent(items []LineItem, vendorID int64) bool {
	for _, it := range items {
		if it.VendorID != nil && *it.VendorID == vendorID {
			return true
		}
	}
	return false
}

func findItem(items []LineItem, id int64) (LineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}
