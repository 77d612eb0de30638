package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductMapping is the bridge from a source system's native product code to
// the official SKU. Rows are kept indefinitely for traceability; many native
// codes may map to one canonical product.
type ProductMapping struct {
	ID           int          `gorm:"primary_key" json:"id"`
	SourceSystem SourceSystem `gorm:"uniqueIndex:idx_mapping_source_code;size:20;not null" json:"source_system"`
	SourceCode   string       `gorm:"uniqueIndex:idx_mapping_source_code;size:100;not null" json:"source_code"`
	OfficialCode string       `gorm:"index;size:100;not null" json:"official_code"`
	Description  string       `gorm:"size:150" json:"description"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// GetProductMappings loads the whole bridge keyed by source system and
// native code.
func GetProductMappings(db *gorm.DB) (map[SourceSystem]map[string]string, error) {
	var rows []ProductMapping
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[SourceSystem]map[string]string)
	for _, r := range rows {
		if out[r.SourceSystem] == nil {
			out[r.SourceSystem] = make(map[string]string)
		}
		out[r.SourceSystem][r.SourceCode] = r.OfficialCode
	}
	return out, nil
}

// UpsertProductMappings inserts bridge rows, updating the official code when a
// (source, native code) pair is re-registered.
func UpsertProductMappings(db *gorm.DB, mappings []ProductMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_system"}, {Name: "source_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"official_code", "description"}),
	}).CreateInBatches(mappings, 500).Error
}
