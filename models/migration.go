package models

import (
	"log"

	"bitbucket.org/grupodatos/dwh_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&StagedCustomer{}, &StagedProduct{}, &StagedLineItem{}, &StagedExchangeRate{},
		&DimCustomer{}, &DimCategory{}, &DimProduct{}, &DimTime{}, &DimChannel{}, &DimOrder{},
		&DimExchangeRate{}, &ProductMapping{},
		&FactSales{},
		&ConsolidationRun{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
