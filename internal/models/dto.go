package models

// EntityType represents the legal entity type being taxed
type EntityType string

const (
	EntityTypeIndividual         EntityType = "INDIVIDUAL"
	EntityTypeCorporation        EntityType = "CORPORATION"          // Aksjeselskap (AS)
	EntityTypePartnership        EntityType = "PARTNERSHIP"          // Deltakerlignet selskap
	EntityTypeSoleProprietorship EntityType = "SOLE_PROPRIETORSHIP"  // Enkeltpersonforetak (ENK)
)

// AllEntityTypes lists entity types in comparison order
var AllEntityTypes = []EntityType{
	EntityTypeIndividual,
	EntityTypeCorporation,
	EntityTypePartnership,
	EntityTypeSoleProprietorship,
}

// TaxCalculationInput is the immutable input to one engine run.
// Rates are percentages (0-100); amounts are NOK. The engine computes
// through whatever it is given and clamps negative bases to zero instead
// of rejecting anything.
type TaxCalculationInput struct {
	GrossIncome         float64    `json:"grossIncome"`
	EntityType          EntityType `json:"entityType"`
	MunicipalTaxRate    float64    `json:"municipalTaxRate"`
	CountyTaxRate       float64    `json:"countyTaxRate"`
	ChurchTaxRate       float64    `json:"churchTaxRate"`
	IsChurchMember      bool       `json:"isChurchMember"`
	AllowableDeductions float64    `json:"allowableDeductions"`
	DividendIncome      float64    `json:"dividendIncome"`
	CapitalGains        float64    `json:"capitalGains"`
	InvestmentWealth    float64    `json:"investmentWealth"`
	BusinessExpenses    float64    `json:"businessExpenses"`
}

// TaxBreakdownItem is one labeled line of the calculation. Negative
// amounts are deductions/allowances, positive amounts are tax owed, a
// zero amount is an informational marker. Items appear in insertion
// order; that order is part of the result contract.
type TaxBreakdownItem struct {
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Rate        *float64 `json:"rate,omitempty"` // disclosure only, never fed back into arithmetic
}

// TaxCalculationResult is the output of one engine run. GrossIncome
// echoes total economic income (nominal gross + dividends + capital
// gains). Categories not applicable to the entity type are zero, never
// absent, and TotalTax equals the sum of the populated categories.
type TaxCalculationResult struct {
	GrossIncome       float64            `json:"grossIncome"`
	PersonalAllowance float64            `json:"personalAllowance"`
	TaxableIncome     float64            `json:"taxableIncome"`
	MunicipalTax      float64            `json:"municipalTax"`
	CountyTax         float64            `json:"countyTax"`
	ChurchTax         float64            `json:"churchTax"`
	StateTax          float64            `json:"stateTax"`
	CorporateTax      float64            `json:"corporateTax"`
	NationalInsurance float64            `json:"nationalInsurance"`
	InvestmentTax     float64            `json:"investmentTax"`
	WealthTax         float64            `json:"wealthTax"`
	TotalTax          float64            `json:"totalTax"`
	NetIncome         float64            `json:"netIncome"`
	EffectiveTaxRate  float64            `json:"effectiveTaxRate"`
	Breakdown         []TaxBreakdownItem `json:"breakdown"`
}

// CalculateTaxRequest represents a request to calculate tax. If
// MunicipalityCode names a stored municipality, its rates override the
// three rate fields; otherwise the rates are used as given.
type CalculateTaxRequest struct {
	GrossIncome         float64    `json:"grossIncome"`
	EntityType          EntityType `json:"entityType"`
	MunicipalityCode    string     `json:"municipalityCode"`
	MunicipalTaxRate    float64    `json:"municipalTaxRate"`
	CountyTaxRate       float64    `json:"countyTaxRate"`
	ChurchTaxRate       float64    `json:"churchTaxRate"`
	IsChurchMember      bool       `json:"isChurchMember"`
	AllowableDeductions float64    `json:"allowableDeductions"`
	DividendIncome      float64    `json:"dividendIncome"`
	CapitalGains        float64    `json:"capitalGains"`
	InvestmentWealth    float64    `json:"investmentWealth"`
	BusinessExpenses    float64    `json:"businessExpenses"`
}

// EntityComparisonEntry pairs an entity type with its result
type EntityComparisonEntry struct {
	EntityType EntityType            `json:"entityType"`
	Title      string                `json:"title"`
	Result     *TaxCalculationResult `json:"result"`
}

// EntityComparisonResponse holds the selected entity's full result plus
// one comparison entry per entity type, each computed with
// entity-appropriate zeroing of inapplicable fields.
type EntityComparisonResponse struct {
	Selected   *TaxCalculationResult   `json:"selected"`
	Comparison []EntityComparisonEntry `json:"comparison"`
}

// DefaultRatesResponse carries the default sub-national tax rates
type DefaultRatesResponse struct {
	MunicipalTaxRate float64 `json:"municipalTaxRate"`
	CountyTaxRate    float64 `json:"countyTaxRate"`
	ChurchTaxRate    float64 `json:"churchTaxRate"`
}
