package services

import (
	"fmt"

	"skatt-service/internal/models"
)

// 2024 Norwegian tax rates and constants
const (
	PersonalAllowance        = 69100.0
	CorporateTaxRate         = 0.22   // 22% selskapsskatt
	NationalInsuranceRate    = 0.077  // 7.7% trygdeavgift for employees
	NationalInsuranceRateENK = 0.109  // 10.9% trygdeavgift for sole proprietors
	InvestmentTaxRate        = 0.3784 // 37.84% effective rate on share income
	WealthTaxRate            = 0.01   // 1% formueskatt
	WealthTaxThreshold       = 2000000.0
	RiskFreeRate             = 0.0172 // 1.72% skjermingsfradrag
)

// Default sub-national rates when no municipality is selected
const (
	DefaultMunicipalTaxRate = 10.0
	DefaultCountyTaxRate    = 11.4
	DefaultChurchTaxRate    = 1.3
)

// stateTaxBracket is one row of the progressive statsskatt table
type stateTaxBracket struct {
	Threshold float64
	Rate      float64
}

// Statsskatt brackets for 2024, ascending by threshold
var stateTaxBrackets = []stateTaxBracket{
	{208050, 0.017},
	{292850, 0.04},
	{670000, 0.136},
	{937900, 0.166},
	{1350000, 0.176},
}

// TaxEngine computes Norwegian tax liabilities for the four legal
// entity types. It is pure and stateless: every call owns its own
// breakdown and no state survives between calls, so concurrent use
// needs no synchronization.
type TaxEngine struct{}

// NewTaxEngine creates a new tax engine
func NewTaxEngine() *TaxEngine {
	return &TaxEngine{}
}

// Calculate runs the calculation strategy for the input's entity type.
// It is total: every input produces a result, negative intermediate
// bases are clamped to zero rather than rejected. Unknown entity types
// fall back to the individual strategy.
func (e *TaxEngine) Calculate(input models.TaxCalculationInput) *models.TaxCalculationResult {
	switch input.EntityType {
	case models.EntityTypeCorporation:
		return e.calculateCorporate(input)
	case models.EntityTypePartnership:
		return e.calculatePartnership(input)
	case models.EntityTypeSoleProprietorship:
		return e.calculateSoleProprietorship(input)
	default:
		return e.calculateIndividual(input)
	}
}

// DefaultRates returns the default municipal, county and church tax rates
func (e *TaxEngine) DefaultRates() models.DefaultRatesResponse {
	return models.DefaultRatesResponse{
		MunicipalTaxRate: DefaultMunicipalTaxRate,
		CountyTaxRate:    DefaultCountyTaxRate,
		ChurchTaxRate:    DefaultChurchTaxRate,
	}
}

func (e *TaxEngine) calculateIndividual(input models.TaxCalculationInput) *models.TaxCalculationResult {
	var breakdown []models.TaxBreakdownItem

	personalAllowance := PersonalAllowance
	taxableIncome := max0(input.GrossIncome - personalAllowance - input.AllowableDeductions)

	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Personfradrag",
		Amount:      -personalAllowance,
	})

	if input.AllowableDeductions > 0 {
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Fradrag",
			Amount:      -input.AllowableDeductions,
		})
	}

	municipalTax := taxableIncome * (input.MunicipalTaxRate / 100.0)
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Kommuneskatt",
		Amount:      municipalTax,
		Rate:        ratePercent(input.MunicipalTaxRate),
	})

	countyTax := taxableIncome * (input.CountyTaxRate / 100.0)
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Fylkeskatt",
		Amount:      countyTax,
		Rate:        ratePercent(input.CountyTaxRate),
	})

	var churchTax float64
	if input.IsChurchMember {
		churchTax = taxableIncome * (input.ChurchTaxRate / 100.0)
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Kirkeskatt",
			Amount:      churchTax,
			Rate:        ratePercent(input.ChurchTaxRate),
		})
	}

	// Statsskatt and trygdeavgift apply to gross income, not taxable income
	stateTax := e.calculateStateTax(input.GrossIncome, &breakdown)

	nationalInsurance := input.GrossIncome * NationalInsuranceRate
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Trygdeavgift",
		Amount:      nationalInsurance,
		Rate:        ratePercent(NationalInsuranceRate * 100.0),
	})

	investmentTax := e.calculateInvestmentTax(input, &breakdown)
	wealthTax := e.calculateWealthTax(input, &breakdown)

	totalTax := municipalTax + countyTax + churchTax + stateTax + nationalInsurance + investmentTax + wealthTax
	totalGrossIncome := input.GrossIncome + input.DividendIncome + input.CapitalGains

	return &models.TaxCalculationResult{
		GrossIncome:       totalGrossIncome,
		PersonalAllowance: personalAllowance,
		TaxableIncome:     taxableIncome,
		MunicipalTax:      municipalTax,
		CountyTax:         countyTax,
		ChurchTax:         churchTax,
		StateTax:          stateTax,
		NationalInsurance: nationalInsurance,
		InvestmentTax:     investmentTax,
		WealthTax:         wealthTax,
		TotalTax:          totalTax,
		NetIncome:         totalGrossIncome - totalTax,
		EffectiveTaxRate:  effectiveRate(totalTax, totalGrossIncome),
		Breakdown:         breakdown,
	}
}

func (e *TaxEngine) calculateCorporate(input models.TaxCalculationInput) *models.TaxCalculationResult {
	var breakdown []models.TaxBreakdownItem

	taxableIncome := max0(input.GrossIncome - input.AllowableDeductions)

	if input.AllowableDeductions > 0 {
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Fradrag",
			Amount:      -input.AllowableDeductions,
		})
	}

	corporateTax := taxableIncome * CorporateTaxRate
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Selskapsskatt",
		Amount:      corporateTax,
		Rate:        ratePercent(CorporateTaxRate * 100.0),
	})

	investmentTax := e.calculateCorporateInvestmentTax(input, &breakdown)

	totalTax := corporateTax + investmentTax
	totalGrossIncome := input.GrossIncome + input.DividendIncome + input.CapitalGains

	return &models.TaxCalculationResult{
		GrossIncome:      totalGrossIncome,
		TaxableIncome:    taxableIncome,
		CorporateTax:     corporateTax,
		InvestmentTax:    investmentTax,
		TotalTax:         totalTax,
		NetIncome:        totalGrossIncome - totalTax,
		EffectiveTaxRate: effectiveRate(totalTax, totalGrossIncome),
		Breakdown:        breakdown,
	}
}

// calculatePartnership taxes partnership income as personal income,
// marking the pass-through with an informational first line.
func (e *TaxEngine) calculatePartnership(input models.TaxCalculationInput) *models.TaxCalculationResult {
	result := e.calculateIndividual(input)

	marker := models.TaxBreakdownItem{
		Description: "Deltakerlignet selskap - beskattes som personinntekt",
		Amount:      0,
	}
	result.Breakdown = append([]models.TaxBreakdownItem{marker}, result.Breakdown...)

	return result
}

func (e *TaxEngine) calculateSoleProprietorship(input models.TaxCalculationInput) *models.TaxCalculationResult {
	var breakdown []models.TaxBreakdownItem

	businessProfit := max0(input.GrossIncome - input.BusinessExpenses)
	taxableIncome := max0(businessProfit - input.AllowableDeductions)

	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "ENK - Enkeltpersonforetak",
		Amount:      0,
	})

	if input.BusinessExpenses > 0 {
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Driftskostnader",
			Amount:      -input.BusinessExpenses,
		})
	}

	if input.AllowableDeductions > 0 {
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Fradrag",
			Amount:      -input.AllowableDeductions,
		})
	}

	municipalTax := taxableIncome * (input.MunicipalTaxRate / 100.0)
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Kommuneskatt",
		Amount:      municipalTax,
		Rate:        ratePercent(input.MunicipalTaxRate),
	})

	countyTax := taxableIncome * (input.CountyTaxRate / 100.0)
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Fylkeskatt",
		Amount:      countyTax,
		Rate:        ratePercent(input.CountyTaxRate),
	})

	var churchTax float64
	if input.IsChurchMember {
		churchTax = taxableIncome * (input.ChurchTaxRate / 100.0)
		breakdown = append(breakdown, models.TaxBreakdownItem{
			Description: "Kirkeskatt",
			Amount:      churchTax,
			Rate:        ratePercent(input.ChurchTaxRate),
		})
	}

	stateTax := e.calculateStateTax(input.GrossIncome, &breakdown)

	// Sole proprietors pay the higher trygdeavgift rate on raw gross
	// income, not on business profit
	nationalInsurance := input.GrossIncome * NationalInsuranceRateENK
	breakdown = append(breakdown, models.TaxBreakdownItem{
		Description: "Trygdeavgift (ENK)",
		Amount:      nationalInsurance,
		Rate:        ratePercent(NationalInsuranceRateENK * 100.0),
	})

	investmentTax := e.calculateInvestmentTax(input, &breakdown)
	wealthTax := e.calculateWealthTax(input, &breakdown)

	totalTax := municipalTax + countyTax + churchTax + stateTax + nationalInsurance + investmentTax + wealthTax
	totalGrossIncome := input.GrossIncome + input.DividendIncome + input.CapitalGains

	return &models.TaxCalculationResult{
		GrossIncome:       totalGrossIncome,
		TaxableIncome:     taxableIncome,
		MunicipalTax:      municipalTax,
		CountyTax:         countyTax,
		ChurchTax:         churchTax,
		StateTax:          stateTax,
		NationalInsurance: nationalInsurance,
		InvestmentTax:     investmentTax,
		WealthTax:         wealthTax,
		TotalTax:          totalTax,
		NetIncome:         totalGrossIncome - totalTax,
		EffectiveTaxRate:  effectiveRate(totalTax, totalGrossIncome),
		Breakdown:         breakdown,
	}
}

// calculateStateTax sweeps the progressive statsskatt brackets. Each
// bracket taxes only the income slice between its threshold and the
// next, so crossing a threshold never re-rates the slices below it.
func (e *TaxEngine) calculateStateTax(grossIncome float64, breakdown *[]models.TaxBreakdownItem) float64 {
	var stateTax float64

	for i, bracket := range stateTaxBrackets {
		if grossIncome <= bracket.Threshold {
			continue
		}

		taxableInBracket := grossIncome - bracket.Threshold
		if i+1 < len(stateTaxBrackets) {
			if width := stateTaxBrackets[i+1].Threshold - bracket.Threshold; taxableInBracket > width {
				taxableInBracket = width
			}
		}

		taxInBracket := taxableInBracket * bracket.Rate
		stateTax += taxInBracket

		*breakdown = append(*breakdown, models.TaxBreakdownItem{
			Description: fmt.Sprintf("Statsskatt (over %s NOK)", FormatNOK(bracket.Threshold)),
			Amount:      taxInBracket,
			Rate:        ratePercent(bracket.Rate * 100.0),
		})
	}

	return stateTax
}

// calculateInvestmentTax taxes dividend and capital gain income for
// individuals and sole proprietors, after the risk-free allowance
// (skjermingsfradrag) earned on invested wealth.
func (e *TaxEngine) calculateInvestmentTax(input models.TaxCalculationInput, breakdown *[]models.TaxBreakdownItem) float64 {
	totalInvestmentIncome := input.DividendIncome + input.CapitalGains
	if totalInvestmentIncome <= 0 {
		return 0
	}

	riskFreeAllowance := input.InvestmentWealth * RiskFreeRate
	taxableInvestmentIncome := max0(totalInvestmentIncome - riskFreeAllowance)

	if riskFreeAllowance > 0 {
		*breakdown = append(*breakdown, models.TaxBreakdownItem{
			Description: "Risikofritt fradrag",
			Amount:      -riskFreeAllowance,
			Rate:        ratePercent(RiskFreeRate * 100.0),
		})
	}

	investmentTax := taxableInvestmentIncome * InvestmentTaxRate
	if investmentTax > 0 {
		*breakdown = append(*breakdown, models.TaxBreakdownItem{
			Description: "Skatt på aksjeutbytte og gevinst",
			Amount:      investmentTax,
			Rate:        ratePercent(InvestmentTaxRate * 100.0),
		})
	}

	return investmentTax
}

// calculateCorporateInvestmentTax applies the participation exemption:
// only 3% of investment income is taxable, at the corporate rate. The
// disclosed rate is the blended 0.66 figure.
func (e *TaxEngine) calculateCorporateInvestmentTax(input models.TaxCalculationInput, breakdown *[]models.TaxBreakdownItem) float64 {
	totalInvestmentIncome := input.DividendIncome + input.CapitalGains
	if totalInvestmentIncome <= 0 {
		return 0
	}

	taxablePortion := totalInvestmentIncome * 0.03
	investmentTax := taxablePortion * CorporateTaxRate

	if investmentTax > 0 {
		*breakdown = append(*breakdown, models.TaxBreakdownItem{
			Description: "Deltakermodellen - 3% skattepliktig",
			Amount:      investmentTax,
			Rate:        ratePercent(0.66),
		})
	}

	return investmentTax
}

// calculateWealthTax applies formueskatt on investment wealth above the
// threshold, with the 20% valuation rebate on equities. The threshold
// boundary is exclusive: wealth exactly at the threshold owes nothing.
func (e *TaxEngine) calculateWealthTax(input models.TaxCalculationInput, breakdown *[]models.TaxBreakdownItem) float64 {
	if input.InvestmentWealth <= WealthTaxThreshold {
		return 0
	}

	taxableWealth := input.InvestmentWealth - WealthTaxThreshold
	discountedWealth := taxableWealth * 0.8
	wealthTax := discountedWealth * WealthTaxRate

	if wealthTax > 0 {
		*breakdown = append(*breakdown, models.TaxBreakdownItem{
			Description: "Formueskatt (20% rabatt på aksjer)",
			Amount:      wealthTax,
			Rate:        ratePercent(WealthTaxRate * 100.0),
		})
	}

	return wealthTax
}

func effectiveRate(totalTax, totalGrossIncome float64) float64 {
	if totalGrossIncome > 0 {
		return (totalTax / totalGrossIncome) * 100.0
	}
	return 0
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func ratePercent(r float64) *float64 {
	return &r
}
