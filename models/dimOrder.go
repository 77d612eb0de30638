package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DimOrder is one row per source order. Facts resolve their order surrogate id
// through (source_system, source_order_key); TotalOrderUSD is filled in once
// the run's fact lines have been converted.
type DimOrder struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SourceSystem   SourceSystem    `gorm:"uniqueIndex:idx_order_source_key;size:20;not null" json:"source_system"`
	SourceOrderKey string          `gorm:"uniqueIndex:idx_order_source_key;size:100;not null" json:"source_order_key"`
	OrderDate      time.Time       `gorm:"index;not null" json:"order_date"`
	TotalOrderUSD  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_order_usd"`
	LoadedAt       time.Time       `gorm:"autoCreateTime" json:"loaded_at"`
}

func GetOrderIdsBySourceKey(db *gorm.DB) (map[SourceSystem]map[string]int, error) {
	var rows []DimOrder
	if err := db.Select("id", "source_system", "source_order_key").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[SourceSystem]map[string]int)
	for _, r := range rows {
		if out[r.SourceSystem] == nil {
			out[r.SourceSystem] = make(map[string]int)
		}
		out[r.SourceSystem][r.SourceOrderKey] = r.ID
	}
	return out, nil
}
