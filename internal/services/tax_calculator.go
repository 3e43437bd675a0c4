package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"skatt-service/internal/events"
	"skatt-service/internal/models"
	"skatt-service/internal/repository"
)

// entityTitles maps entity types to their display titles in comparisons
var entityTitles = map[models.EntityType]string{
	models.EntityTypeIndividual:         "Person",
	models.EntityTypeCorporation:        "Aksjeselskap (AS)",
	models.EntityTypePartnership:        "Deltakerlignet selskap",
	models.EntityTypeSoleProprietorship: "ENK (Enkeltpersonforetak)",
}

// TaxCalculator handles tax calculation requests: it resolves municipal
// rates, runs the pure engine, caches results and publishes events
type TaxCalculator struct {
	repo     repository.RateRepositoryInterface
	engine   *TaxEngine
	cacheTTL time.Duration
}

// NewTaxCalculator creates a new tax calculator
func NewTaxCalculator(repo repository.RateRepositoryInterface, cacheTTL time.Duration) *TaxCalculator {
	return &TaxCalculator{
		repo:     repo,
		engine:   NewTaxEngine(),
		cacheTTL: cacheTTL,
	}
}

// CalculateTax calculates the tax liability for one request
func (c *TaxCalculator) CalculateTax(ctx context.Context, req models.CalculateTaxRequest) (*models.TaxCalculationResult, error) {
	input := c.resolveInput(ctx, req)

	// Check cache first
	cacheKey := c.generateCacheKey(input)
	if cached, err := c.repo.GetCachedCalculation(ctx, cacheKey); err == nil && cached != nil {
		var result models.TaxCalculationResult
		if err := json.Unmarshal([]byte(cached.CalculationResult), &result); err == nil {
			return &result, nil
		}
	}

	result := c.engine.Calculate(input)

	c.cacheResult(ctx, cacheKey, input, result)

	if pub := events.GetPublisher(); pub != nil {
		_ = pub.PublishTaxCalculated(ctx, string(input.EntityType), result.GrossIncome, result.TotalTax, result.EffectiveTaxRate)
	}

	return result, nil
}

// CompareEntityTypes computes the selected entity's result plus one
// comparison result per entity type. Each comparison variant zeroes the
// fields that do not apply to its entity type: business expenses are
// honored only for sole proprietorships, and corporations get neither
// church membership nor wealth-taxable investment holdings.
func (c *TaxCalculator) CompareEntityTypes(ctx context.Context, req models.CalculateTaxRequest) (*models.EntityComparisonResponse, error) {
	input := c.resolveInput(ctx, req)

	comparison := make([]models.EntityComparisonEntry, 0, len(models.AllEntityTypes))
	for _, entityType := range models.AllEntityTypes {
		variant := comparisonInput(input, entityType)
		comparison = append(comparison, models.EntityComparisonEntry{
			EntityType: entityType,
			Title:      entityTitles[entityType],
			Result:     c.engine.Calculate(variant),
		})
	}

	return &models.EntityComparisonResponse{
		Selected:   c.engine.Calculate(input),
		Comparison: comparison,
	}, nil
}

// DefaultRates returns the default sub-national tax rates
func (c *TaxCalculator) DefaultRates() models.DefaultRatesResponse {
	return c.engine.DefaultRates()
}

// resolveInput builds the engine input from a request. A known
// municipality code overrides the request's rate fields; an unknown
// code leaves them untouched.
func (c *TaxCalculator) resolveInput(ctx context.Context, req models.CalculateTaxRequest) models.TaxCalculationInput {
	input := models.TaxCalculationInput{
		GrossIncome:         req.GrossIncome,
		EntityType:          req.EntityType,
		MunicipalTaxRate:    req.MunicipalTaxRate,
		CountyTaxRate:       req.CountyTaxRate,
		ChurchTaxRate:       req.ChurchTaxRate,
		IsChurchMember:      req.IsChurchMember,
		AllowableDeductions: req.AllowableDeductions,
		DividendIncome:      req.DividendIncome,
		CapitalGains:        req.CapitalGains,
		InvestmentWealth:    req.InvestmentWealth,
		BusinessExpenses:    req.BusinessExpenses,
	}

	if input.EntityType == "" {
		input.EntityType = models.EntityTypeIndividual
	}

	if req.MunicipalityCode != "" {
		if municipality, err := c.repo.GetMunicipalityByCode(ctx, req.MunicipalityCode); err == nil && municipality != nil {
			input.MunicipalTaxRate = municipality.MunicipalTaxRate
			input.CountyTaxRate = municipality.CountyTaxRate
			input.ChurchTaxRate = municipality.ChurchTaxRate
		}
	}

	return input
}

// comparisonInput derives the input for one comparison variant
func comparisonInput(input models.TaxCalculationInput, entityType models.EntityType) models.TaxCalculationInput {
	variant := input
	variant.EntityType = entityType

	if entityType != models.EntityTypeSoleProprietorship {
		variant.BusinessExpenses = 0
	}
	if entityType == models.EntityTypeCorporation {
		variant.IsChurchMember = false
		variant.InvestmentWealth = 0
	}

	return variant
}

// generateCacheKey generates a deterministic cache key for an input
func (c *TaxCalculator) generateCacheKey(input models.TaxCalculationInput) string {
	key := fmt.Sprintf("%s:%f:%f:%f:%f:%t:%f:%f:%f:%f:%f",
		input.EntityType,
		input.GrossIncome,
		input.MunicipalTaxRate,
		input.CountyTaxRate,
		input.ChurchTaxRate,
		input.IsChurchMember,
		input.AllowableDeductions,
		input.DividendIncome,
		input.CapitalGains,
		input.InvestmentWealth,
		input.BusinessExpenses,
	)

	hash := md5.Sum([]byte(key))
	return fmt.Sprintf("%x", hash)
}

// cacheResult caches the tax calculation result
func (c *TaxCalculator) cacheResult(ctx context.Context, cacheKey string, input models.TaxCalculationInput, result *models.TaxCalculationResult) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return
	}

	cache := &models.TaxCalculationCache{
		CacheKey:          cacheKey,
		EntityType:        string(input.EntityType),
		GrossIncome:       result.GrossIncome,
		TotalTax:          result.TotalTax,
		CalculationResult: string(resultJSON),
		ExpiresAt:         time.Now().Add(c.cacheTTL),
	}

	_ = c.repo.CacheCalculation(ctx, cache)
}
