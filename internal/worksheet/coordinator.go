package worksheet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sejoli-erp/sejoli-erp/internal/pricing"
)

// RateSource supplies the read-only lookup tables the engine prices
// against. Missing keys resolve to 0% loadings downstream; implementations
// only return errors for transport failures.
type RateSource interface {
	DifficultyTable(ctx context.Context) (map[string]float64, error)
	DeliveryTable(ctx context.Context) (map[string]float64, error)
	CustomerTerms(ctx context.Context, customerID int64) (pricing.CustomerTerms, error)
}

const writeBackConcurrency = 8

// Coordinator owns the in-memory state of one open worksheet entry and
// sequences its persistence. Every mutation updates the snapshot
// synchronously so reads always see a recomputed price before any remote
// write completes; remote writes are best-effort per row. Rapid edits to a
// single pool's cost coalesce behind a quiescence window, and an explicit
// Flush bypasses the window entirely.
type Coordinator struct {
	repo   Repository
	rates  RateSource
	logger *slog.Logger

	entry    Entry
	debounce time.Duration

	mu             sync.Mutex
	items          []LineItem
	vendorGroups   []ShippingGroup
	customerGroups []ShippingGroup
	settings       EntrySettings
	timers         map[int64]*time.Timer

	// seq increases on every recompute pass; a write-back observing a newer
	// sequence drops its remaining rows instead of overwriting fresher prices.
	seq atomic.Int64
}

func NewCoordinator(repo Repository, rates RateSource, logger *slog.Logger, entry Entry, debounce time.Duration) *Coordinator {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Coordinator{
		repo:     repo,
		rates:    rates,
		logger:   logger,
		entry:    entry,
		debounce: debounce,
		timers:   make(map[int64]*time.Timer),
	}
}

// Load refetches the full entry state from the store. It is also the
// recovery path after any ambiguous persistence failure: the remote store
// is the authority.
func (c *Coordinator) Load(ctx context.Context) error {
	ref := c.entry.Ref
	if err := c.repo.EnsureDefaultGroups(ctx, ref); err != nil {
		return fmt.Errorf("ensure default groups: %w", err)
	}
	items, err := c.repo.ListItems(ctx, ref)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	vendorGroups, err := c.repo.ListGroups(ctx, ref, GroupKindVendor)
	if err != nil {
		return fmt.Errorf("list vendor groups: %w", err)
	}
	customerGroups, err := c.repo.ListGroups(ctx, ref, GroupKindCustomer)
	if err != nil {
		return fmt.Errorf("list customer groups: %w", err)
	}
	settings, err := c.repo.GetSettings(ctx, ref)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.vendorGroups = vendorGroups
	c.customerGroups = customerGroups
	c.settings = settings
	c.mu.Unlock()
	return nil
}

// Close stops any pending debounced writes without firing them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Coordinator) Entry() Entry { return c.entry }

// Items returns a sorted copy of the current item snapshot. Callers must
// always read through this accessor rather than hold an earlier value, or
// a recompute can run against a stale list.
func (c *Coordinator) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	SortItems(out)
	return out
}

func (c *Coordinator) Settings() EntrySettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Coordinator) Groups(kind GroupKind) []ShippingGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.vendorGroups
	if kind == GroupKindCustomer {
		src = c.customerGroups
	}
	out := make([]ShippingGroup, len(src))
	copy(out, src)
	return out
}

// NextPosition returns the position an appended item should take.
func (c *Coordinator) NextPosition() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	max := 0
	for _, it := range c.items {
		if it.Position > max {
			max = it.Position
		}
	}
	return max + 1
}

// UpsertItemLocal applies an optimistic item mutation to the snapshot.
func (c *Coordinator) UpsertItemLocal(item LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i] = item
			return
		}
	}
	c.items = append(c.items, item)
}

// RemoveItemLocal drops an item from the snapshot and reports whether it
// was present.
func (c *Coordinator) RemoveItemLocal(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyOrderLocal rewrites positions 1..n following the requested id order.
// Pricing fields are untouched.
func (c *Coordinator) ApplyOrderLocal(orderedIDs []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := make(map[int64]int, len(orderedIDs))
	for i, id := range orderedIDs {
		pos[id] = i + 1
	}
	for i := range c.items {
		if p, ok := pos[c.items[i].ID]; ok {
			c.items[i].Position = p
		}
	}
}

// SetSettingsLocal replaces the entry settings snapshot.
func (c *Coordinator) SetSettingsLocal(settings EntrySettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
}

// SetGroupCost applies a shared-cost edit locally, recomputes prices, and
// schedules the debounced persist. Only after the quiescence window does
// the cost value reach the store, followed by one full recompute and
// write-back against the settled value.
func (c *Coordinator) SetGroupCost(ctx context.Context, kind GroupKind, groupID int64, cost float64) error {
	c.mu.Lock()
	found := false
	src := c.vendorGroups
	if kind == GroupKindCustomer {
		src = c.customerGroups
	}
	for i := range src {
		if src[i].ID == groupID {
			src[i].Cost = cost
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return ErrGroupNotFound
	}

	if _, err := c.RecomputeLocal(ctx); err != nil {
		return err
	}
	c.scheduleGroupPersist(groupID, kind)
	return nil
}

func (c *Coordinator) scheduleGroupPersist(groupID int64, kind GroupKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[groupID]; ok {
		t.Stop()
	}
	c.timers[groupID] = time.AfterFunc(c.debounce, func() {
		c.debouncedGroupFlush(groupID, kind)
	})
}

func (c *Coordinator) debouncedGroupFlush(groupID int64, kind GroupKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c.mu.Lock()
	delete(c.timers, groupID)
	var cost float64
	found := false
	src := c.vendorGroups
	if kind == GroupKindCustomer {
		src = c.customerGroups
	}
	for i := range src {
		if src[i].ID == groupID {
			cost = src[i].Cost
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}

	if err := c.repo.UpdateGroupCost(ctx, groupID, cost); err != nil {
		c.logger.Error("persist shared cost", slog.Int64("group_id", groupID), slog.Any("error", err))
		return
	}
	if _, err := c.Reprice(ctx); err != nil {
		c.logger.Error("reprice after shared cost", slog.Int64("group_id", groupID), slog.Any("error", err))
	}
}

func (c *Coordinator) inputs(ctx context.Context) (pricing.Inputs, error) {
	difficulty, err := c.rates.DifficultyTable(ctx)
	if err != nil {
		return pricing.Inputs{}, fmt.Errorf("difficulty table: %w", err)
	}
	delivery, err := c.rates.DeliveryTable(ctx)
	if err != nil {
		return pricing.Inputs{}, fmt.Errorf("delivery table: %w", err)
	}
	terms, err := c.rates.CustomerTerms(ctx, c.entry.CustomerID)
	if err != nil {
		return pricing.Inputs{}, fmt.Errorf("customer terms: %w", err)
	}

	c.mu.Lock()
	vendorCosts := make(map[string]float64, len(c.vendorGroups))
	for _, g := range c.vendorGroups {
		vendorCosts[g.GroupName] = g.Cost
	}
	customerCosts := make(map[string]float64, len(c.customerGroups))
	for _, g := range c.customerGroups {
		customerCosts[g.GroupName] = g.Cost
	}
	c.mu.Unlock()

	return pricing.Inputs{
		VendorGroupCosts:   vendorCosts,
		CustomerGroupCosts: customerCosts,
		DifficultyTable:    difficulty,
		DeliveryTable:      delivery,
		Customer:           terms,
	}, nil
}

// RecomputeLocal reprices the snapshot in memory and returns the priced
// items. The engine always runs over the full current list.
func (c *Coordinator) RecomputeLocal(ctx context.Context) ([]LineItem, error) {
	in, err := c.inputs(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	priced := pricing.Recompute(toPricingItems(c.items), in)
	applyPrices(c.items, priced)

	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	SortItems(out)
	return out, nil
}

// Reprice runs one full recompute and writes every item's prices back to
// the store. Row writes are independent; a partial failure leaves mixed
// rows until the next successful pass.
func (c *Coordinator) Reprice(ctx context.Context) ([]WriteResult, error) {
	items, err := c.RecomputeLocal(ctx)
	if err != nil {
		return nil, err
	}
	seq := c.seq.Add(1)
	return c.writeBack(ctx, items, seq)
}

func (c *Coordinator) writeBack(ctx context.Context, items []LineItem, seq int64) ([]WriteResult, error) {
	results := make([]WriteResult, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(writeBackConcurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if c.seq.Load() != seq {
				results[i] = WriteResult{ItemID: it.ID, Skipped: true}
				return nil
			}
			if err := c.repo.UpdateItemPrices(ctx, it.ID, it.UnitSellingPrice, it.TotalSellingPrice); err != nil {
				results[i] = WriteResult{ItemID: it.ID, Err: err}
				return fmt.Errorf("write back item %d: %w", it.ID, err)
			}
			results[i] = WriteResult{ItemID: it.ID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	skipped := 0
	for _, res := range results {
		if res.Skipped {
			skipped++
		}
	}
	if len(items) > 0 && skipped == len(items) {
		return results, ErrStaleRecompute
	}
	return results, nil
}

// Flush is the explicit save path. It cancels every pending debounce timer,
// persists all shared cost pools and the entry settings in one transaction
// (upserts, safe to repeat), then runs one awaited recompute and write-back
// so the caller can observe success before any downstream cascade runs.
func (c *Coordinator) Flush(ctx context.Context) ([]WriteResult, error) {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	groups := make([]ShippingGroup, 0, len(c.vendorGroups)+len(c.customerGroups))
	groups = append(groups, c.vendorGroups...)
	groups = append(groups, c.customerGroups...)
	settings := c.settings
	c.mu.Unlock()

	err := c.repo.WithTx(ctx, func(ctx context.Context, txRepo Repository) error {
		for _, g := range groups {
			if err := txRepo.UpdateGroupCost(ctx, g.ID, g.Cost); err != nil {
				return fmt.Errorf("persist group %s cost: %w", g.GroupName, err)
			}
		}
		return txRepo.UpsertSettings(ctx, c.entry.Ref, settings)
	})
	if err != nil {
		return nil, err
	}

	return c.Reprice(ctx)
}
