package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service reacts to worksheet vendor signals. All operations are
// idempotent so the asynq worker can retry them safely.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the procurement service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EnsureDraftPO creates a draft purchase order for a vendor that appeared
// in a quoted entry. An existing non-cancelled PO for the pair is kept as
// is.
func (s *Service) EnsureDraftPO(ctx context.Context, quotationID, vendorID int64) (*PurchaseOrder, error) {
	existing, err := s.repo.FindVendorPO(ctx, quotationID, vendorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find vendor po: %w", err)
	}

	po := PurchaseOrder{
		Number:      draftNumber(),
		QuotationID: quotationID,
		VendorID:    vendorID,
		Status:      POStatusDraft,
	}
	id, err := s.repo.CreatePO(ctx, po)
	if err != nil {
		return nil, fmt.Errorf("create draft po: %w", err)
	}
	po.ID = id
	s.logger.Info("draft purchase order created",
		slog.Int64("quotation_id", quotationID),
		slog.Int64("vendor_id", vendorID),
		slog.String("number", po.Number))
	return &po, nil
}

// RetireVendorPOs cancels the draft/open purchase orders generated for a
// vendor from one quotation, after the vendor's last item left the entry.
func (s *Service) RetireVendorPOs(ctx context.Context, quotationID, vendorID int64) error {
	n, err := s.repo.CancelVendorPOs(ctx, quotationID, vendorID)
	if err != nil {
		return fmt.Errorf("cancel vendor pos: %w", err)
	}
	if n > 0 {
		s.logger.Info("vendor purchase orders retired",
			slog.Int64("quotation_id", quotationID),
			slog.Int64("vendor_id", vendorID),
			slog.Int64("count", n))
	}
	return nil
}

// RetireQuotationChain cancels every purchase order and retires every
// internal letter derived from the quotation, after its entry was emptied.
func (s *Service) RetireQuotationChain(ctx context.Context, quotationID int64) error {
	pos, err := s.repo.CancelQuotationPOs(ctx, quotationID)
	if err != nil {
		return fmt.Errorf("cancel quotation pos: %w", err)
	}
	letters, err := s.repo.RetireQuotationLetters(ctx, quotationID)
	if err != nil {
		return fmt.Errorf("retire quotation letters: %w", err)
	}
	s.logger.Info("quotation chain retired",
		slog.Int64("quotation_id", quotationID),
		slog.Int64("pos", pos),
		slog.Int64("letters", letters))
	return nil
}

// PO-{8 char suffix}; uniqueness comes from the uuid, the prefix keeps the
// number recognisable on printed documents.
func draftNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "PO-" + suffix
}
