package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skatt-service/internal/models"
	"skatt-service/internal/repository"
	"skatt-service/internal/services"
)

// TaxHandler handles tax calculation HTTP requests
type TaxHandler struct {
	calculator *services.TaxCalculator
	repo       repository.RateRepositoryInterface
}

// NewTaxHandler creates a new tax handler
func NewTaxHandler(calculator *services.TaxCalculator, repo repository.RateRepositoryInterface) *TaxHandler {
	return &TaxHandler{
		calculator: calculator,
		repo:       repo,
	}
}

// CalculateTax handles POST /api/v1/tax/calculate
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	var req models.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	result, err := h.calculator.CalculateTax(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to calculate tax",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompareEntityTypes handles POST /api/v1/tax/compare
func (h *TaxHandler) CompareEntityTypes(c *gin.Context) {
	var req models.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	response, err := h.calculator.CompareEntityTypes(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compare entity types",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetDefaultRates handles GET /api/v1/rates/defaults
func (h *TaxHandler) GetDefaultRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.calculator.DefaultRates())
}

// ==================== Municipality CRUD ====================

// ListMunicipalities handles GET /api/v1/municipalities
func (h *TaxHandler) ListMunicipalities(c *gin.Context) {
	municipalities, err := h.repo.ListMunicipalities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list municipalities",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, municipalities)
}

// GetMunicipality handles GET /api/v1/municipalities/:id
func (h *TaxHandler) GetMunicipality(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid municipality ID",
			"message": err.Error(),
		})
		return
	}

	municipality, err := h.repo.GetMunicipality(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Municipality not found",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, municipality)
}

// CreateMunicipality handles POST /api/v1/municipalities
func (h *TaxHandler) CreateMunicipality(c *gin.Context) {
	var municipality models.Municipality
	if err := c.ShouldBindJSON(&municipality); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	if err := h.repo.CreateMunicipality(c.Request.Context(), &municipality); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create municipality",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, municipality)
}

// UpdateMunicipality handles PUT /api/v1/municipalities/:id
func (h *TaxHandler) UpdateMunicipality(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid municipality ID",
			"message": err.Error(),
		})
		return
	}

	var municipality models.Municipality
	if err := c.ShouldBindJSON(&municipality); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	municipality.ID = id
	if err := h.repo.UpdateMunicipality(c.Request.Context(), &municipality); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update municipality",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, municipality)
}

// DeleteMunicipality handles DELETE /api/v1/municipalities/:id
func (h *TaxHandler) DeleteMunicipality(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid municipality ID",
			"message": err.Error(),
		})
		return
	}

	if err := h.repo.DeleteMunicipality(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete municipality",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Municipality deleted successfully"})
}
