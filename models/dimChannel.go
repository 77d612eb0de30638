package models

import "gorm.io/gorm"

// DimChannel holds the fixed sales channels with stable ids 1..5.
type DimChannel struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

// FixedChannels returns the channel dimension contents. Ids are stable across
// reloads so facts from previous runs stay comparable.
func FixedChannels() []DimChannel {
	return []DimChannel{
		{ID: 1, Name: "WEB"},
		{ID: 2, Name: "TIENDA"},
		{ID: 3, Name: "APP"},
		{ID: 4, Name: "PARTNER"},
		{ID: 5, Name: "TELEFONO"},
	}
}

func GetChannelIdsByName(db *gorm.DB) (map[string]int, error) {
	var rows []DimChannel
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Name] = r.ID
	}
	return out, nil
}
