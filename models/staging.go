package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Staging tables hold near-raw rows pulled by the source connectors, one batch
// per source per run. Values arrive in whatever shape the source produced
// (string dates, locale-formatted amounts, source gender tokens); the
// standardizer deals with them downstream. Batches are replaced wholesale,
// never appended to.

type StagedCustomer struct {
	ID            int          `gorm:"primary_key" json:"id"`
	SourceSystem  SourceSystem `gorm:"index;size:20;not null" json:"source_system"`
	SourceKey     string       `gorm:"size:100;not null" json:"source_key"`
	Name          string       `gorm:"size:150" json:"name"`
	Email         string       `gorm:"size:150" json:"email"`
	GenderRaw     string       `gorm:"size:30" json:"gender_raw"`
	Country       string       `gorm:"size:100" json:"country"`
	RegisteredRaw string       `gorm:"size:40" json:"registered_raw"`
}

type StagedProduct struct {
	ID           int          `gorm:"primary_key" json:"id"`
	SourceSystem SourceSystem `gorm:"index;size:20;not null" json:"source_system"`
	SourceKey    string       `gorm:"size:100;not null" json:"source_key"`
	Code         string       `gorm:"size:100" json:"code"`
	Name         string       `gorm:"size:150" json:"name"`
	Category     string       `gorm:"size:100" json:"category"`
}

type StagedLineItem struct {
	ID           int          `gorm:"primary_key" json:"id"`
	SourceSystem SourceSystem `gorm:"index;size:20;not null" json:"source_system"`
	OrderKey     string       `gorm:"size:100;not null" json:"order_key"`
	ProductKey   string       `gorm:"size:100" json:"product_key"`
	CustomerKey  string       `gorm:"size:100" json:"customer_key"`
	Quantity     int          `json:"quantity"`
	UnitPriceRaw string       `gorm:"size:40" json:"unit_price_raw"`
	Currency     string       `gorm:"size:3;not null" json:"currency"`
	OrderDateRaw string       `gorm:"size:40" json:"order_date_raw"`
	Channel      string       `gorm:"size:50" json:"channel"`
	DiscountRaw  string       `gorm:"size:20" json:"discount_raw"`
}

// StagedExchangeRate is the landing zone for the external rate publisher;
// rows are promoted into DimExchangeRate after each sync.
type StagedExchangeRate struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Date         time.Time       `gorm:"uniqueIndex:idx_staged_rate_key;not null" json:"date"`
	FromCurrency string          `gorm:"uniqueIndex:idx_staged_rate_key;size:3;not null" json:"from_currency"`
	ToCurrency   string          `gorm:"uniqueIndex:idx_staged_rate_key;size:3;not null" json:"to_currency"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"rate"`
	Source       string          `gorm:"size:20" json:"source"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReplaceStagedCustomers swaps a source's staged customer batch.
func ReplaceStagedCustomers(db *gorm.DB, source SourceSystem, rows []StagedCustomer) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_system = ?", source).Delete(&StagedCustomer{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func ReplaceStagedProducts(db *gorm.DB, source SourceSystem, rows []StagedProduct) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_system = ?", source).Delete(&StagedProduct{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func ReplaceStagedLineItems(db *gorm.DB, source SourceSystem, rows []StagedLineItem) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_system = ?", source).Delete(&StagedLineItem{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// UpsertStagedRates lands publisher rates keyed by (date, from, to); repeated
// syncs for the same date update the value.
func UpsertStagedRates(db *gorm.DB, rows []StagedExchangeRate) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "updated_at"}),
	}).CreateInBatches(rows, 500).Error
}

// StagingCounts is the precondition snapshot the orchestrator validates.
type StagingCounts struct {
	Customers int64
	Products  int64
	LineItems int64
}

func GetStagingCounts(db *gorm.DB) (StagingCounts, error) {
	var counts StagingCounts
	if err := db.Model(&StagedCustomer{}).Count(&counts.Customers).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&StagedProduct{}).Count(&counts.Products).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&StagedLineItem{}).Count(&counts.LineItems).Error; err != nil {
		return counts, err
	}
	return counts, nil
}
