package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Municipality holds the sub-national tax rates for one Norwegian
// municipality. Code is the four-digit kommunenummer.
type Municipality struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code             string    `json:"code" gorm:"type:varchar(4);not null;uniqueIndex"`
	Name             string    `json:"name" gorm:"type:varchar(255);not null"`
	CountyName       string    `json:"countyName" gorm:"type:varchar(255)"`
	MunicipalTaxRate float64   `json:"municipalTaxRate" gorm:"type:decimal(5,2);not null"`
	CountyTaxRate    float64   `json:"countyTaxRate" gorm:"type:decimal(5,2);not null"`
	ChurchTaxRate    float64   `json:"churchTaxRate" gorm:"type:decimal(5,2);not null"`
	IsActive         bool      `json:"isActive" gorm:"default:true"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TaxCalculationCache represents cached tax calculations for performance
type TaxCalculationCache struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CacheKey          string    `json:"cacheKey" gorm:"type:varchar(255);not null;uniqueIndex"`
	EntityType        string    `json:"entityType" gorm:"type:varchar(50);not null"`
	GrossIncome       float64   `json:"grossIncome" gorm:"type:decimal(14,2);not null"`
	TotalTax          float64   `json:"totalTax" gorm:"type:decimal(14,2);not null"`
	CalculationResult string    `json:"calculationResult" gorm:"type:text"` // Full JSON response for cache
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt" gorm:"not null;index"`
}

// BeforeCreate hook for TaxCalculationCache to set expiry
func (c *TaxCalculationCache) BeforeCreate(tx *gorm.DB) error {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = time.Now().Add(1 * time.Hour) // Default 1 hour TTL
	}
	return nil
}
