package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"skatt-service/internal/models"
	"skatt-service/internal/repository"
)

// MockRateRepository is a mock implementation of RateRepositoryInterface
type MockRateRepository struct {
	mock.Mock
}

// Ensure MockRateRepository implements the interface
var _ repository.RateRepositoryInterface = (*MockRateRepository)(nil)

func (m *MockRateRepository) GetMunicipalityByCode(ctx context.Context, code string) (*models.Municipality, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Municipality), args.Error(1)
}

func (m *MockRateRepository) GetMunicipality(ctx context.Context, id uuid.UUID) (*models.Municipality, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Municipality), args.Error(1)
}

func (m *MockRateRepository) ListMunicipalities(ctx context.Context) ([]models.Municipality, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Municipality), args.Error(1)
}

func (m *MockRateRepository) CreateMunicipality(ctx context.Context, municipality *models.Municipality) error {
	args := m.Called(ctx, municipality)
	return args.Error(0)
}

func (m *MockRateRepository) UpdateMunicipality(ctx context.Context, municipality *models.Municipality) error {
	args := m.Called(ctx, municipality)
	return args.Error(0)
}

func (m *MockRateRepository) DeleteMunicipality(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRateRepository) GetCachedCalculation(ctx context.Context, cacheKey string) (*models.TaxCalculationCache, error) {
	args := m.Called(ctx, cacheKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaxCalculationCache), args.Error(1)
}

func (m *MockRateRepository) CacheCalculation(ctx context.Context, cache *models.TaxCalculationCache) error {
	args := m.Called(ctx, cache)
	return args.Error(0)
}

func TestTaxCalculator_CalculateTax_MunicipalityOverridesRates(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("GetMunicipalityByCode", mock.Anything, "0301").Return(&models.Municipality{
		Code:             "0301",
		Name:             "Oslo",
		MunicipalTaxRate: 11.1,
		CountyTaxRate:    12.2,
		ChurchTaxRate:    2.0,
	}, nil)
	repo.On("GetCachedCalculation", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	repo.On("CacheCalculation", mock.Anything, mock.Anything).Return(nil)

	calculator := NewTaxCalculator(repo, time.Hour)

	result, err := calculator.CalculateTax(context.Background(), models.CalculateTaxRequest{
		GrossIncome:      300000,
		EntityType:       models.EntityTypeIndividual,
		MunicipalityCode: "0301",
		MunicipalTaxRate: 10.0, // overridden by the municipality preset
		CountyTaxRate:    11.4,
		ChurchTaxRate:    1.3,
		IsChurchMember:   true,
	})

	assert.NoError(t, err)
	taxable := 300000.0 - PersonalAllowance
	assert.InDelta(t, taxable*0.111, result.MunicipalTax, tolerance)
	assert.InDelta(t, taxable*0.122, result.CountyTax, tolerance)
	assert.InDelta(t, taxable*0.02, result.ChurchTax, tolerance)

	repo.AssertCalled(t, "CacheCalculation", mock.Anything, mock.Anything)
}

func TestTaxCalculator_CalculateTax_UnknownMunicipalityKeepsRequestRates(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("GetMunicipalityByCode", mock.Anything, "9999").Return(nil, gorm.ErrRecordNotFound)
	repo.On("GetCachedCalculation", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	repo.On("CacheCalculation", mock.Anything, mock.Anything).Return(nil)

	calculator := NewTaxCalculator(repo, time.Hour)

	result, err := calculator.CalculateTax(context.Background(), models.CalculateTaxRequest{
		GrossIncome:      300000,
		EntityType:       models.EntityTypeIndividual,
		MunicipalityCode: "9999",
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
	})

	assert.NoError(t, err)
	assert.InDelta(t, (300000.0-PersonalAllowance)*0.10, result.MunicipalTax, tolerance)
}

func TestTaxCalculator_CalculateTax_ReturnsCachedResult(t *testing.T) {
	cached := &models.TaxCalculationResult{
		GrossIncome: 600000,
		TotalTax:    123456,
		NetIncome:   476544,
	}
	cachedJSON, err := json.Marshal(cached)
	assert.NoError(t, err)

	repo := new(MockRateRepository)
	repo.On("GetCachedCalculation", mock.Anything, mock.Anything).Return(&models.TaxCalculationCache{
		CalculationResult: string(cachedJSON),
	}, nil)

	calculator := NewTaxCalculator(repo, time.Hour)

	result, err := calculator.CalculateTax(context.Background(), models.CalculateTaxRequest{
		GrossIncome: 600000,
		EntityType:  models.EntityTypeIndividual,
	})

	assert.NoError(t, err)
	assert.Equal(t, cached, result)
	repo.AssertNotCalled(t, "CacheCalculation", mock.Anything, mock.Anything)
}

func TestTaxCalculator_CalculateTax_EmptyEntityTypeDefaultsToIndividual(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("GetCachedCalculation", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	repo.On("CacheCalculation", mock.Anything, mock.Anything).Return(nil)

	calculator := NewTaxCalculator(repo, time.Hour)

	result, err := calculator.CalculateTax(context.Background(), models.CalculateTaxRequest{
		GrossIncome:      400000,
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
	})

	assert.NoError(t, err)
	assert.Contains(t, breakdownDescriptions(result.Breakdown), "Personfradrag")
	assert.Zero(t, result.CorporateTax)
}

func TestTaxCalculator_CompareEntityTypes(t *testing.T) {
	repo := new(MockRateRepository)
	calculator := NewTaxCalculator(repo, time.Hour)

	response, err := calculator.CompareEntityTypes(context.Background(), models.CalculateTaxRequest{
		GrossIncome:      800000,
		EntityType:       models.EntityTypeSoleProprietorship,
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
		ChurchTaxRate:    1.3,
		IsChurchMember:   true,
		DividendIncome:   50000,
		InvestmentWealth: 3000000,
		BusinessExpenses: 200000,
	})

	assert.NoError(t, err)
	assert.NotNil(t, response.Selected)
	assert.Len(t, response.Comparison, 4)

	assert.Equal(t, models.EntityTypeIndividual, response.Comparison[0].EntityType)
	assert.Equal(t, models.EntityTypeCorporation, response.Comparison[1].EntityType)
	assert.Equal(t, models.EntityTypePartnership, response.Comparison[2].EntityType)
	assert.Equal(t, models.EntityTypeSoleProprietorship, response.Comparison[3].EntityType)
	assert.Equal(t, "Aksjeselskap (AS)", response.Comparison[1].Title)

	individual := response.Comparison[0].Result
	corporation := response.Comparison[1].Result
	partnership := response.Comparison[2].Result
	enk := response.Comparison[3].Result

	// Business expenses are honored only for the sole proprietorship
	assert.InDelta(t, 800000.0-PersonalAllowance, individual.TaxableIncome, tolerance)
	assert.InDelta(t, 600000.0, enk.TaxableIncome, tolerance)

	// Corporations get neither church tax nor wealth tax in comparison
	assert.Zero(t, corporation.ChurchTax)
	assert.Zero(t, corporation.WealthTax)

	// Individual and sole proprietorship keep the wealth tax above threshold
	assert.InDelta(t, 1000000.0*0.8*0.01, individual.WealthTax, tolerance)
	assert.InDelta(t, individual.WealthTax, enk.WealthTax, tolerance)

	// Partnership matches the individual run plus its marker line
	assert.Equal(t, "Deltakerlignet selskap - beskattes som personinntekt", partnership.Breakdown[0].Description)
	assert.Equal(t, individual.TotalTax, partnership.TotalTax)

	// The selected result matches the matching comparison variant
	assert.Equal(t, enk, response.Selected)
}

func TestTaxCalculator_DefaultRates(t *testing.T) {
	calculator := NewTaxCalculator(new(MockRateRepository), time.Hour)

	rates := calculator.DefaultRates()
	assert.Equal(t, 10.0, rates.MunicipalTaxRate)
	assert.Equal(t, 11.4, rates.CountyTaxRate)
	assert.Equal(t, 1.3, rates.ChurchTaxRate)
}
