package models

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/config"
	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrExchangeRateNotFound is the sentinel for a missing rate. Lookups never
// fail hard on a missing rate; callers decide the drop/fallback policy.
var ErrExchangeRateNotFound = errors.New("exchange rate not found")

// RateResult is a resolved rate plus the row it came from. Date is the date
// actually matched, which differs from the requested date on fallback hits.
type RateResult struct {
	RateId int
	Date   time.Time
	Rate   decimal.Decimal
}

// ExchangeRateService answers point rate lookups and currency conversions
// against DimExchangeRate. Each instance owns its cache; construct one per run
// and let it die with the run, or call ClearCache when reusing an instance.
type ExchangeRateService struct {
	db     *gorm.DB
	logger *logrus.Logger
	cache  map[string]RateResult
}

func NewExchangeRateService(db *gorm.DB) *ExchangeRateService {
	return &ExchangeRateService{
		db:     db,
		logger: config.GetLogger(),
		cache:  make(map[string]RateResult),
	}
}

func rateCacheKey(from, to string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s", from, to, date.Format("2006-01-02"))
}

// GetRate returns the rate for (from, to) on the given date. When no rate
// exists for the exact date it falls back to the most recent rate on or before
// it. Returns ErrExchangeRateNotFound when the pair has no history at all.
func (s *ExchangeRateService) GetRate(from, to string, on time.Time) (RateResult, error) {
	on = utils.DateOnly(on)

	key := rateCacheKey(from, to, on)
	if hit, ok := s.cache[key]; ok {
		return hit, nil
	}

	var row DimExchangeRate
	err := s.db.
		Where("from_currency = ? AND to_currency = ? AND date = ?", from, to, on).
		First(&row).Error
	if err == nil {
		result := RateResult{RateId: row.ID, Date: row.Date, Rate: row.Rate}
		s.cache[key] = result
		return result, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return RateResult{}, err
	}

	// No exact match: nearest prior date for the same pair.
	err = s.db.
		Where("from_currency = ? AND to_currency = ? AND date <= ?", from, to, on).
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RateResult{}, ErrExchangeRateNotFound
	}
	if err != nil {
		return RateResult{}, err
	}

	result := RateResult{RateId: row.ID, Date: row.Date, Rate: row.Rate}
	// Fallback hits are memoized under the date actually matched.
	s.cache[rateCacheKey(from, to, utils.DateOnly(row.Date))] = result
	s.logger.WithFields(logrus.Fields{
		"from":         from,
		"to":           to,
		"requested":    on.Format("2006-01-02"),
		"matched_date": row.Date.Format("2006-01-02"),
	}).Warn("rates.fallback_hit")
	return result, nil
}

// GetLatestRate returns the most recent persisted rate for the pair.
func (s *ExchangeRateService) GetLatestRate(from, to string) (RateResult, error) {
	key := fmt.Sprintf("%s_%s_latest", from, to)
	if hit, ok := s.cache[key]; ok {
		return hit, nil
	}

	var row DimExchangeRate
	err := s.db.
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RateResult{}, ErrExchangeRateNotFound
	}
	if err != nil {
		return RateResult{}, err
	}

	result := RateResult{RateId: row.ID, Date: row.Date, Rate: row.Rate}
	s.cache[key] = result
	return result, nil
}

// Convert converts amount from one currency to another at the given date.
// The stored rate is FromCurrency units per 1 ToCurrency unit, so converting
// forward divides by the rate. The series only stores one direction per pair;
// when the forward pair is absent the inverse pair is used by multiplying, so
// round-trips reconstruct the amount up to rounding.
func (s *ExchangeRateService) Convert(amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, *RateResult, error) {
	if from == to {
		return amount, nil, nil
	}

	rate, err := s.GetRate(from, to, on)
	if err == nil {
		if rate.Rate.IsZero() {
			return decimal.Zero, nil, fmt.Errorf("zero exchange rate for %s->%s on %s", from, to, rate.Date.Format("2006-01-02"))
		}
		return amount.Div(rate.Rate), &rate, nil
	}
	if !errors.Is(err, ErrExchangeRateNotFound) {
		return decimal.Zero, nil, err
	}

	inverse, invErr := s.GetRate(to, from, on)
	if invErr != nil {
		if errors.Is(invErr, ErrExchangeRateNotFound) {
			return decimal.Zero, nil, ErrExchangeRateNotFound
		}
		return decimal.Zero, nil, invErr
	}
	return amount.Mul(inverse.Rate), &inverse, nil
}

// ClearCache empties the memoized lookups. Must be called between runs when a
// service instance outlives a single pipeline run.
func (s *ExchangeRateService) ClearCache() {
	s.cache = make(map[string]RateResult)
}

// CachedRates exposes the cache size, for run summaries.
func (s *ExchangeRateService) CachedRates() int {
	return len(s.cache)
}

// GetRateRange returns the ordered rate series for a pair between two dates.
func (s *ExchangeRateService) GetRateRange(from, to string, start, end time.Time) ([]DimExchangeRate, error) {
	var rows []DimExchangeRate
	err := s.db.
		Where("from_currency = ? AND to_currency = ? AND date BETWEEN ? AND ?",
			from, to, utils.DateOnly(start), utils.DateOnly(end)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
