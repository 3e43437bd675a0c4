package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"skatt-service/internal/models"
)

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB) error {
	log.Println("Starting database migrations...")

	log.Println("  → Running schema migrations...")
	modelsToMigrate := []struct {
		name  string
		model interface{}
	}{
		{"Municipality", &models.Municipality{}},
		{"TaxCalculationCache", &models.TaxCalculationCache{}},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", m.name, err)
		}
		log.Printf("    ✓ %s migrated", m.name)
	}
	log.Println("  ✓ Schema migrations complete")

	log.Println("  → Seeding municipality rates...")
	if err := seedMunicipalities(db); err != nil {
		return fmt.Errorf("failed to seed municipalities: %w", err)
	}
	log.Println("  ✓ Seed data complete")

	log.Println("✓ All database migrations complete")
	return nil
}

// seedMunicipalities inserts the 2024 rate presets for the largest
// municipalities. Existing codes are left untouched so operator edits
// survive restarts.
func seedMunicipalities(db *gorm.DB) error {
	seeds := []models.Municipality{
		{Code: "0301", Name: "Oslo", CountyName: "Oslo", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
		{Code: "4601", Name: "Bergen", CountyName: "Vestland", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
		{Code: "5001", Name: "Trondheim", CountyName: "Trøndelag", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
		{Code: "1103", Name: "Stavanger", CountyName: "Rogaland", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
		{Code: "3301", Name: "Drammen", CountyName: "Buskerud", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
	}

	for _, seed := range seeds {
		seed.IsActive = true

		var count int64
		if err := db.Model(&models.Municipality{}).Where("code = ?", seed.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		if err := db.Create(&seed).Error; err != nil {
			return err
		}
	}

	return nil
}
