package worksheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sejoli-erp/sejoli-erp/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetEntry(ctx context.Context, ref EntryRef) (*Entry, error)
	ListItems(ctx context.Context, ref EntryRef) ([]LineItem, error)
	InsertItem(ctx context.Context, item LineItem) (int64, error)
	UpdateItem(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateItemPrices(ctx context.Context, id int64, unitPrice, totalPrice float64) error
	DeleteItem(ctx context.Context, id int64) error
	UpdatePositions(ctx context.Context, ref EntryRef, orderedIDs []int64) error
	EnsureDefaultGroups(ctx context.Context, ref EntryRef) error
	ListGroups(ctx context.Context, ref EntryRef, kind GroupKind) ([]ShippingGroup, error)
	UpdateGroupCost(ctx context.Context, groupID int64, cost float64) error
	GetSettings(ctx context.Context, ref EntryRef) (EntrySettings, error)
	UpsertSettings(ctx context.Context, ref EntryRef, settings EntrySettings) error
	DeleteVendorSettings(ctx context.Context, ref EntryRef, vendorID int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

func (r *repository) GetEntry(ctx context.Context, ref EntryRef) (*Entry, error) {
	var e Entry
	var quotationID pgtype.Int8
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, `
		SELECT balance_id, entry_id, customer_id, quotation_id, created_at, updated_at
		FROM balance_entries
		WHERE balance_id = $1 AND entry_id = $2
	`, ref.BalanceID, ref.EntryID).Scan(
		&e.Ref.BalanceID, &e.Ref.EntryID, &e.CustomerID, &quotationID, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if quotationID.Valid {
		val := quotationID.Int64
		e.QuotationID = &val
	}
	if createdAt.Valid {
		e.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	}
	return &e, nil
}

func (r *repository) ListItems(ctx context.Context, ref EntryRef) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, vendor_id, customer_spec, vendor_spec, purchase_price, qty, unit, weight,
		       shipping_vendor_group, shipping_customer_group, delivery_time, difficulty,
		       position, unit_selling_price, total_selling_price
		FROM balance_items
		WHERE balance_id = $1 AND entry_id = $2
		ORDER BY CASE WHEN position <= 0 THEN 2147483647 ELSE position END ASC, id ASC
	`, ref.BalanceID, ref.EntryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		var vendorID pgtype.Int8
		var purchasePrice, weight, unitPrice, totalPrice pgtype.Numeric
		err := rows.Scan(
			&it.ID, &vendorID, &it.CustomerSpec, &it.VendorSpec, &purchasePrice, &it.Qty,
			&it.Unit, &weight, &it.VendorGroup, &it.CustomerGroup, &it.DeliveryTime,
			&it.Difficulty, &it.Position, &unitPrice, &totalPrice,
		)
		if err != nil {
			return nil, err
		}
		it.Ref = ref
		if vendorID.Valid {
			val := vendorID.Int64
			it.VendorID = &val
		}
		it.PurchasePrice = numericToFloat(purchasePrice)
		it.Weight = numericToFloat(weight)
		it.UnitSellingPrice = numericToFloat(unitPrice)
		it.TotalSellingPrice = numericToFloat(totalPrice)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) InsertItem(ctx context.Context, item LineItem) (int64, error) {
	var vendorID pgtype.Int8
	if item.VendorID != nil {
		vendorID = pgtype.Int8{Int64: *item.VendorID, Valid: true}
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO balance_items
			(balance_id, entry_id, vendor_id, customer_spec, vendor_spec, purchase_price,
			 qty, unit, weight, shipping_vendor_group, shipping_customer_group,
			 delivery_time, difficulty, position, unit_selling_price, total_selling_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id
	`,
		item.Ref.BalanceID, item.Ref.EntryID, vendorID, item.CustomerSpec, item.VendorSpec,
		floatToNumeric(item.PurchasePrice), item.Qty, item.Unit, floatToNumeric(item.Weight),
		item.VendorGroup, item.CustomerGroup, item.DeliveryTime, item.Difficulty,
		item.Position, floatToNumeric(item.UnitSellingPrice), floatToNumeric(item.TotalSellingPrice),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateItem(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE balance_items SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{
		"vendor_id", "customer_spec", "vendor_spec", "purchase_price", "qty", "unit",
		"weight", "shipping_vendor_group", "shipping_customer_group", "delivery_time",
		"difficulty", "position",
	} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateItemPrices(ctx context.Context, id int64, unitPrice, totalPrice float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE balance_items
		SET unit_selling_price = $1, total_selling_price = $2, updated_at = NOW()
		WHERE id = $3
	`, floatToNumeric(unitPrice), floatToNumeric(totalPrice), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM balance_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdatePositions(ctx context.Context, ref EntryRef, orderedIDs []int64) error {
	for i, id := range orderedIDs {
		_, err := r.db.Exec(ctx, `
			UPDATE balance_items SET position = $1, updated_at = NOW()
			WHERE id = $2 AND balance_id = $3 AND entry_id = $4
		`, i+1, id, ref.BalanceID, ref.EntryID)
		if err != nil {
			return fmt.Errorf("update position for item %d: %w", id, err)
		}
	}
	return nil
}

func (r *repository) EnsureDefaultGroups(ctx context.Context, ref EntryRef) error {
	seed := func(kind GroupKind, names []string) error {
		for _, name := range names {
			_, err := r.db.Exec(ctx, `
				INSERT INTO balance_shipping_groups (balance_id, entry_id, kind, group_name, cost)
				VALUES ($1, $2, $3, $4, 0)
				ON CONFLICT (balance_id, entry_id, kind, group_name) DO NOTHING
			`, ref.BalanceID, ref.EntryID, kind, name)
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := seed(GroupKindVendor, DefaultVendorGroups); err != nil {
		return fmt.Errorf("seed vendor groups: %w", err)
	}
	if err := seed(GroupKindCustomer, DefaultCustomerGroups); err != nil {
		return fmt.Errorf("seed customer groups: %w", err)
	}
	return nil
}

func (r *repository) ListGroups(ctx context.Context, ref EntryRef, kind GroupKind) ([]ShippingGroup, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, group_name, cost
		FROM balance_shipping_groups
		WHERE balance_id = $1 AND entry_id = $2 AND kind = $3
		ORDER BY group_name ASC
	`, ref.BalanceID, ref.EntryID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []ShippingGroup
	for rows.Next() {
		var g ShippingGroup
		var cost pgtype.Numeric
		if err := rows.Scan(&g.ID, &g.Kind, &g.GroupName, &cost); err != nil {
			return nil, err
		}
		g.Ref = ref
		g.Cost = numericToFloat(cost)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *repository) UpdateGroupCost(ctx context.Context, groupID int64, cost float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE balance_shipping_groups SET cost = $1 WHERE id = $2
	`, floatToNumeric(cost), groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *repository) GetSettings(ctx context.Context, ref EntryRef) (EntrySettings, error) {
	s := EntrySettings{Ref: ref}
	var margin, ppn, document, ret, discount pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT margin_percentage, payment_terms, ppn_percentage, document_cost,
		       return_cost, discount_percentage
		FROM balance_entry_settings
		WHERE balance_id = $1 AND entry_id = $2
	`, ref.BalanceID, ref.EntryID).Scan(&margin, &s.PaymentTerms, &ppn, &document, &ret, &discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Entries without a settings row price with zero percentages.
			return s, nil
		}
		return s, err
	}
	s.MarginPercentage = numericToFloat(margin)
	s.PPNPercentage = numericToFloat(ppn)
	s.DocumentCost = numericToFloat(document)
	s.ReturnCost = numericToFloat(ret)
	s.DiscountPercentage = numericToFloat(discount)
	return s, nil
}

func (r *repository) UpsertSettings(ctx context.Context, ref EntryRef, settings EntrySettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO balance_entry_settings
			(balance_id, entry_id, margin_percentage, payment_terms, ppn_percentage,
			 document_cost, return_cost, discount_percentage)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (balance_id, entry_id) DO UPDATE SET
			margin_percentage = EXCLUDED.margin_percentage,
			payment_terms = EXCLUDED.payment_terms,
			ppn_percentage = EXCLUDED.ppn_percentage,
			document_cost = EXCLUDED.document_cost,
			return_cost = EXCLUDED.return_cost,
			discount_percentage = EXCLUDED.discount_percentage
	`, ref.BalanceID, ref.EntryID,
		floatToNumeric(settings.MarginPercentage), settings.PaymentTerms,
		floatToNumeric(settings.PPNPercentage), floatToNumeric(settings.DocumentCost),
		floatToNumeric(settings.ReturnCost), floatToNumeric(settings.DiscountPercentage))
	if err != nil {
		return fmt.Errorf("upsert entry settings: %w", err)
	}
	return nil
}

func (r *repository) DeleteVendorSettings(ctx context.Context, ref EntryRef, vendorID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM balance_vendor_settings
		WHERE balance_id = $1 AND entry_id = $2 AND vendor_id = $3
	`, ref.BalanceID, ref.EntryID, vendorID)
	return err
}

func numericToFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}

func floatToNumeric(v float64) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(fmt.Sprintf("%f", v))
	return n
}
