package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FactSales is one row per staged order line, fully resolved to surrogate
// keys, with monetary values converted to the reporting currency.
// CreatedAt is the load timestamp, not the transaction date; the transaction
// date lives behind TimeId. That is an audit-timestamp choice, not a bug.
type FactSales struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ProductId          int             `gorm:"index;not null" json:"product_id"`
	TimeId             int             `gorm:"index;not null" json:"time_id"`
	CustomerId         int             `gorm:"index;not null" json:"customer_id"`
	ChannelId          int             `gorm:"not null" json:"channel_id"`
	OrderId            int             `gorm:"index;not null" json:"order_id"`
	ProductCant        int             `gorm:"not null" json:"product_cant"`
	ProductUnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"product_unit_price"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_percentage"`
	ExchangeRateId     *int            `json:"exchange_rate_id"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
