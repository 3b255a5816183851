package rates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	ListDifficulties(ctx context.Context) ([]DifficultySetting, error)
	ListDeliveryTimes(ctx context.Context) ([]DeliveryTimeSetting, error)
	GetCustomerSettings(ctx context.Context, customerID int64) (CustomerSettings, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListDifficulties(ctx context.Context) ([]DifficultySetting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, difficulty_level, percentage
		FROM difficulty_settings
		ORDER BY difficulty_level ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []DifficultySetting
	for rows.Next() {
		var s DifficultySetting
		var pct pgtype.Numeric
		if err := rows.Scan(&s.ID, &s.Level, &pct); err != nil {
			return nil, err
		}
		s.Percentage = numericToFloat(pct)
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *repository) ListDeliveryTimes(ctx context.Context) ([]DeliveryTimeSetting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, time_category, percentage
		FROM delivery_time_settings
		ORDER BY time_category ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []DeliveryTimeSetting
	for rows.Next() {
		var s DeliveryTimeSetting
		var pct pgtype.Numeric
		if err := rows.Scan(&s.ID, &s.Category, &pct); err != nil {
			return nil, err
		}
		s.Percentage = numericToFloat(pct)
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *repository) GetCustomerSettings(ctx context.Context, customerID int64) (CustomerSettings, error) {
	var s CustomerSettings
	var margin, payment pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT cs.customer_id, cs.margin_percentage, cs.payment_category,
		       COALESCE(pt.percentage, 0)
		FROM customer_settings cs
		LEFT JOIN payment_term_settings pt ON pt.category = cs.payment_category
		WHERE cs.customer_id = $1
	`, customerID).Scan(&s.CustomerID, &margin, &s.PaymentCategory, &payment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerSettings{}, ErrNotFound
		}
		return CustomerSettings{}, err
	}
	s.MarginPercentage = numericToFloat(margin)
	s.PaymentPercentage = numericToFloat(payment)
	return s, nil
}

func numericToFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
