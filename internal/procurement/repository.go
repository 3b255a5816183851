package procurement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	FindVendorPO(ctx context.Context, quotationID, vendorID int64) (*PurchaseOrder, error)
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	CancelVendorPOs(ctx context.Context, quotationID, vendorID int64) (int64, error)
	CancelQuotationPOs(ctx context.Context, quotationID int64) (int64, error)
	RetireQuotationLetters(ctx context.Context, quotationID int64) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) FindVendorPO(ctx context.Context, quotationID, vendorID int64) (*PurchaseOrder, error) {
	var po PurchaseOrder
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, `
		SELECT id, number, quotation_id, vendor_id, status, created_at, updated_at
		FROM purchase_orders
		WHERE quotation_id = $1 AND vendor_id = $2 AND status <> 'CANCELLED'
		ORDER BY id DESC
		LIMIT 1
	`, quotationID, vendorID).Scan(
		&po.ID, &po.Number, &po.QuotationID, &po.VendorID, &po.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if createdAt.Valid {
		po.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		po.UpdatedAt = updatedAt.Time
	}
	return &po, nil
}

func (r *repository) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (number, quotation_id, vendor_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, po.Number, po.QuotationID, po.VendorID, po.Status).Scan(&id)
	return id, err
}

func (r *repository) CancelVendorPOs(ctx context.Context, quotationID, vendorID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_orders
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE quotation_id = $1 AND vendor_id = $2 AND status IN ('DRAFT','OPEN')
	`, quotationID, vendorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) CancelQuotationPOs(ctx context.Context, quotationID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchase_orders
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE quotation_id = $1 AND status IN ('DRAFT','OPEN')
	`, quotationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) RetireQuotationLetters(ctx context.Context, quotationID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE internal_letters
		SET status = 'RETIRED'
		WHERE quotation_id = $1 AND status = 'ACTIVE'
	`, quotationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
