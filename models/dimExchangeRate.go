package models

import (
	"time"

	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DimExchangeRate holds the temporal exchange-rate series. Rate semantics:
// units of FromCurrency per 1 unit of ToCurrency (e.g. ~515 CRC per USD), so
// conversion to ToCurrency divides by the rate.
type DimExchangeRate struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Date         time.Time       `gorm:"uniqueIndex:idx_rate_date_pair;not null" json:"date"`
	FromCurrency string          `gorm:"uniqueIndex:idx_rate_date_pair;size:3;not null" json:"from_currency"`
	ToCurrency   string          `gorm:"uniqueIndex:idx_rate_date_pair;size:3;not null" json:"to_currency"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"rate"`
	Source       string          `gorm:"size:20" json:"source"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertExchangeRates inserts or updates rates keyed by (date, from, to).
// A second call with the same key updates the rate value in place.
func UpsertExchangeRates(db *gorm.DB, rates []DimExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	for i := range rates {
		rates[i].Date = utils.DateOnly(rates[i].Date)
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "updated_at"}),
	}).CreateInBatches(rates, 500).Error
}

// PromoteStagedRates copies the staged rate series into DimExchangeRate,
// updating rows whose rate changed since the last promotion.
func PromoteStagedRates(db *gorm.DB) (int, error) {
	var staged []StagedExchangeRate
	if err := db.Find(&staged).Error; err != nil {
		return 0, err
	}
	rates := make([]DimExchangeRate, 0, len(staged))
	for _, s := range staged {
		rates = append(rates, DimExchangeRate{
			Date:         s.Date,
			FromCurrency: s.FromCurrency,
			ToCurrency:   s.ToCurrency,
			Rate:         s.Rate,
			Source:       s.Source,
		})
	}
	if err := UpsertExchangeRates(db, rates); err != nil {
		return 0, err
	}
	return len(rates), nil
}
