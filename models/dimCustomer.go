package models

import (
	"time"

	"gorm.io/gorm"
)

// DimCustomer is the canonical customer dimension. Exactly one row exists per
// normalized email across all sources; later duplicates never update it.
type DimCustomer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:150;not null" json:"email"`
	Gender    Gender    `gorm:"type:enum('M','F','O');default:'O';not null" json:"gender"`
	Country   string    `gorm:"size:100" json:"country"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"` // earliest known registration date across sources
	LoadedAt  time.Time `gorm:"autoCreateTime" json:"loaded_at"`
}

func GetCustomerIdsByEmail(db *gorm.DB) (map[string]int, error) {
	var rows []DimCustomer
	if err := db.Select("id", "email").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Email] = r.ID
	}
	return out, nil
}
