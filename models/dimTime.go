package models

import (
	"time"

	"gorm.io/gorm"
)

// DimTime holds one row per calendar day covering the span of staged order
// dates. Dates are stored at midnight UTC (utils.DateOnly).
type DimTime struct {
	ID      int       `gorm:"primary_key" json:"id"`
	Date    time.Time `gorm:"uniqueIndex;not null" json:"date"`
	Year    int       `gorm:"not null" json:"year"`
	Month   int       `gorm:"not null" json:"month"`
	Day     int       `gorm:"not null" json:"day"`
	Quarter int       `gorm:"not null" json:"quarter"`
}

// NewDimTimeRange generates one DimTime row per day in [start, end].
func NewDimTimeRange(start, end time.Time) []DimTime {
	var rows []DimTime
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rows = append(rows, DimTime{
			Date:    d,
			Year:    d.Year(),
			Month:   int(d.Month()),
			Day:     d.Day(),
			Quarter: (int(d.Month())-1)/3 + 1,
		})
	}
	return rows
}

func GetTimeIdsByDate(db *gorm.DB) (map[time.Time]int, error) {
	var rows []DimTime
	if err := db.Select("id", "date").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		out[r.Date.UTC()] = r.ID
	}
	return out, nil
}
