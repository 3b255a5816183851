// Package procurement is the downstream collaborator of the worksheet
// engine: it creates draft purchase orders when a vendor first appears in a
// quoted entry and retires the generated document chain when vendors or
// whole entries disappear.
package procurement

import (
	"errors"
	"time"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusOpen      POStatus = "OPEN"
	POStatusClosed    POStatus = "CLOSED"
	POStatusCancelled POStatus = "CANCELLED"
)

// Internal letter statuses.
type LetterStatus string

const (
	LetterStatusActive  LetterStatus = "ACTIVE"
	LetterStatusRetired LetterStatus = "RETIRED"
)

// PurchaseOrder is a vendor-facing order generated from a quotation.
type PurchaseOrder struct {
	ID          int64
	Number      string
	QuotationID int64
	VendorID    int64
	Status      POStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InternalLetter is an internal work instruction derived from a quotation.
type InternalLetter struct {
	ID          int64
	Number      string
	QuotationID int64
	Status      LetterStatus
}

var (
	ErrNotFound = errors.New("record not found")
)
