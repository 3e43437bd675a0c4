package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"skatt-service/internal/models"
	"skatt-service/internal/repository"
	"skatt-service/internal/services"
)

// MockRateRepository is a mock implementation of RateRepositoryInterface
type MockRateRepository struct {
	mock.Mock
}

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

func setupTestRouter(repo repository.RateRepositoryInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)

	calculator := services.NewTaxCalculator(repo, time.Hour)
	handler := NewTaxHandler(calculator, repo)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/tax/calculate", handler.CalculateTax)
	v1.POST("/tax/compare", handler.CompareEntityTypes)
	v1.GET("/rates/defaults", handler.GetDefaultRates)
	v1.GET("/municipalities", handler.ListMunicipalities)
	v1.GET("/municipalities/:id", handler.GetMunicipality)
	v1.POST("/municipalities", handler.CreateMunicipality)
	v1.PUT("/municipalities/:id", handler.UpdateMunicipality)
	v1.DELETE("/municipalities/:id", handler.DeleteMunicipality)
	return router
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTaxHandler_CalculateTax(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("GetCachedCalculation", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	repo.On("CacheCalculation", mock.Anything, mock.Anything).Return(nil)

	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodPost, "/api/v1/tax/calculate", models.CalculateTaxRequest{
		GrossIncome:      600000,
		EntityType:       models.EntityTypeIndividual,
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
		ChurchTaxRate:    1.3,
		IsChurchMember:   true,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.TaxCalculationResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.InDelta(t, 530900.0, result.TaxableIncome, 1e-6)
	assert.InDelta(t, 53090.0, result.MunicipalTax, 1e-6)
	assert.NotEmpty(t, result.Breakdown)
	assert.Equal(t, "Personfradrag", result.Breakdown[0].Description)
}

func TestTaxHandler_CalculateTax_InvalidBody(t *testing.T) {
	router := setupTestRouter(new(MockRateRepository))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxHandler_CompareEntityTypes(t *testing.T) {
	repo := new(MockRateRepository)
	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodPost, "/api/v1/tax/compare", models.CalculateTaxRequest{
		GrossIncome:      600000,
		EntityType:       models.EntityTypeCorporation,
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.EntityComparisonResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Comparison, 4)
	assert.Equal(t, models.EntityTypeIndividual, response.Comparison[0].EntityType)
	assert.NotNil(t, response.Selected)
}

func TestTaxHandler_GetDefaultRates(t *testing.T) {
	router := setupTestRouter(new(MockRateRepository))

	w := performRequest(router, http.MethodGet, "/api/v1/rates/defaults", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var rates models.DefaultRatesResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rates))
	assert.Equal(t, 10.0, rates.MunicipalTaxRate)
	assert.Equal(t, 11.4, rates.CountyTaxRate)
	assert.Equal(t, 1.3, rates.ChurchTaxRate)
}

func TestTaxHandler_ListMunicipalities(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("ListMunicipalities", mock.Anything).Return([]models.Municipality{
		{Code: "0301", Name: "Oslo", MunicipalTaxRate: 10.0, CountyTaxRate: 11.4, ChurchTaxRate: 1.3},
	}, nil)

	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodGet, "/api/v1/municipalities", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var municipalities []models.Municipality
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &municipalities))
	assert.Len(t, municipalities, 1)
	assert.Equal(t, "Oslo", municipalities[0].Name)
}

func TestTaxHandler_GetMunicipality_InvalidID(t *testing.T) {
	router := setupTestRouter(new(MockRateRepository))

	w := performRequest(router, http.MethodGet, "/api/v1/municipalities/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxHandler_GetMunicipality_NotFound(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("GetMunicipality", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodGet, "/api/v1/municipalities/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaxHandler_CreateMunicipality(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("CreateMunicipality", mock.Anything, mock.Anything).Return(nil)

	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodPost, "/api/v1/municipalities", models.Municipality{
		Code:             "4601",
		Name:             "Bergen",
		MunicipalTaxRate: 10.0,
		CountyTaxRate:    11.4,
		ChurchTaxRate:    1.3,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertCalled(t, "CreateMunicipality", mock.Anything, mock.Anything)
}

func TestTaxHandler_DeleteMunicipality(t *testing.T) {
	repo := new(MockRateRepository)
	repo.On("DeleteMunicipality", mock.Anything, mock.Anything).Return(nil)

	router := setupTestRouter(repo)

	w := performRequest(router, http.MethodDelete, "/api/v1/municipalities/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
