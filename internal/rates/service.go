package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sejoli-erp/sejoli-erp/internal/pricing"
)

// Service exposes the rate tables as lookup maps for the pricing engine,
// read through the Redis cache. It satisfies the worksheet RateSource.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// DifficultyTable returns difficulty level to loading percentage.
func (s *Service) DifficultyTable(ctx context.Context) (map[string]float64, error) {
	var settings []DifficultySetting
	err := s.cache.FetchJSON(ctx, cacheKeyDifficulty, &settings, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListDifficulties(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load difficulty table: %w", err)
	}
	table := make(map[string]float64, len(settings))
	for _, st := range settings {
		table[st.Level] = st.Percentage
	}
	return table, nil
}

// DeliveryTable returns delivery-time category to loading percentage.
func (s *Service) DeliveryTable(ctx context.Context) (map[string]float64, error) {
	var settings []DeliveryTimeSetting
	err := s.cache.FetchJSON(ctx, cacheKeyDelivery, &settings, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListDeliveryTimes(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load delivery table: %w", err)
	}
	table := make(map[string]float64, len(settings))
	for _, st := range settings {
		table[st.Category] = st.Percentage
	}
	return table, nil
}

// CustomerTerms resolves the margin and payment percentages for one
// customer. A customer without configured settings prices with 0% margin
// and 0% payment loading; that configuration gap is logged, not surfaced.
func (s *Service) CustomerTerms(ctx context.Context, customerID int64) (pricing.CustomerTerms, error) {
	var settings CustomerSettings
	err := s.cache.FetchJSON(ctx, cacheKeyCustomer+strconv.FormatInt(customerID, 10), &settings, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetCustomerSettings(ctx, customerID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("customer settings missing, pricing with zero terms", slog.Int64("customer_id", customerID))
			return pricing.CustomerTerms{}, nil
		}
		return pricing.CustomerTerms{}, fmt.Errorf("load customer settings: %w", err)
	}
	return pricing.CustomerTerms{
		MarginPercentage:  settings.MarginPercentage,
		PaymentPercentage: settings.PaymentPercentage,
	}, nil
}
