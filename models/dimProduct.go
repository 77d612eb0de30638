package models

import (
	"time"

	"gorm.io/gorm"
)

// DimProduct is the canonical product dimension, one row per official SKU.
type DimProduct struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Code       string    `gorm:"uniqueIndex;size:100;not null" json:"code"`
	Name       string    `gorm:"size:150;not null" json:"name"`
	CategoryId *int      `gorm:"index" json:"category_id"`
	LoadedAt   time.Time `gorm:"autoCreateTime" json:"loaded_at"`
}

type DimCategory struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

func GetProductIdsByCode(db *gorm.DB) (map[string]int, error) {
	var rows []DimProduct
	if err := db.Select("id", "code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Code] = r.ID
	}
	return out, nil
}

func GetCategoryIdsByName(db *gorm.DB) (map[string]int, error) {
	var rows []DimCategory
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Name] = r.ID
	}
	return out, nil
}
