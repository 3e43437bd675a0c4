package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"skatt-service/internal/models"
)

// Cache TTL constants for rate data
const (
	MunicipalityCacheTTL = 30 * time.Minute // Municipal rates change once a year

	cacheKeyPrefix = "skatt:rates:"
)

// RateRepositoryInterface defines the rate data operations used by the
// calculation service
type RateRepositoryInterface interface {
	GetMunicipalityByCode(ctx context.Context, code string) (*models.Municipality, error)
	GetMunicipality(ctx context.Context, id uuid.UUID) (*models.Municipality, error)
	ListMunicipalities(ctx context.Context) ([]models.Municipality, error)
	CreateMunicipality(ctx context.Context, municipality *models.Municipality) error
	UpdateMunicipality(ctx context.Context, municipality *models.Municipality) error
	DeleteMunicipality(ctx context.Context, id uuid.UUID) error
	GetCachedCalculation(ctx context.Context, cacheKey string) (*models.TaxCalculationCache, error)
	CacheCalculation(ctx context.Context, cache *models.TaxCalculationCache) error
}

// RateRepository handles municipality rate and calculation cache storage
type RateRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// Ensure RateRepository implements the interface
var _ RateRepositoryInterface = (*RateRepository)(nil)

// NewRateRepository creates a new rate repository. redisClient may be
// nil; lookups then go straight to the database.
func NewRateRepository(db *gorm.DB, redisClient *redis.Client) *RateRepository {
	return &RateRepository{
		db:    db,
		redis: redisClient,
	}
}

func municipalityCacheKey(code string) string {
	return fmt.Sprintf("%smunicipality:%s", cacheKeyPrefix, code)
}

// invalidateMunicipalityCache drops the cached entry for a municipality code
func (r *RateRepository) invalidateMunicipalityCache(ctx context.Context, code string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, municipalityCacheKey(code)).Err()
}

// GetMunicipalityByCode gets an active municipality by kommunenummer
func (r *RateRepository) GetMunicipalityByCode(ctx context.Context, code string) (*models.Municipality, error) {
	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, municipalityCacheKey(code)).Result()
		if err == nil {
			var municipality models.Municipality
			if err := json.Unmarshal([]byte(val), &municipality); err == nil {
				return &municipality, nil
			}
		}
	}

	var municipality models.Municipality
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = true", code).
		First(&municipality).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		if data, marshalErr := json.Marshal(municipality); marshalErr == nil {
			r.redis.Set(ctx, municipalityCacheKey(code), data, MunicipalityCacheTTL)
		}
	}

	return &municipality, nil
}

// GetMunicipality gets a municipality by ID
func (r *RateRepository) GetMunicipality(ctx context.Context, id uuid.UUID) (*models.Municipality, error) {
	var municipality models.Municipality
	err := r.db.WithContext(ctx).First(&municipality, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &municipality, nil
}

// ListMunicipalities lists all active municipalities ordered by code
func (r *RateRepository) ListMunicipalities(ctx context.Context) ([]models.Municipality, error) {
	var municipalities []models.Municipality
	err := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("code").
		Find(&municipalities).Error
	return municipalities, err
}

// CreateMunicipality creates a new municipality rate preset
func (r *RateRepository) CreateMunicipality(ctx context.Context, municipality *models.Municipality) error {
	err := r.db.WithContext(ctx).Create(municipality).Error
	if err == nil {
		r.invalidateMunicipalityCache(ctx, municipality.Code)
	}
	return err
}

// UpdateMunicipality updates a municipality rate preset
func (r *RateRepository) UpdateMunicipality(ctx context.Context, municipality *models.Municipality) error {
	municipality.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(municipality).Error
	if err == nil {
		r.invalidateMunicipalityCache(ctx, municipality.Code)
	}
	return err
}

// DeleteMunicipality soft deletes a municipality (marks as inactive)
func (r *RateRepository) DeleteMunicipality(ctx context.Context, id uuid.UUID) error {
	municipality, err := r.GetMunicipality(ctx, id)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Model(&models.Municipality{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err == nil {
		r.invalidateMunicipalityCache(ctx, municipality.Code)
	}
	return err
}

// GetCachedCalculation retrieves a cached tax calculation
func (r *RateRepository) GetCachedCalculation(ctx context.Context, cacheKey string) (*models.TaxCalculationCache, error) {
	var cache models.TaxCalculationCache

	err := r.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", cacheKey, time.Now()).
		First(&cache).Error
	if err != nil {
		return nil, err
	}

	return &cache, nil
}

// CacheCalculation stores a tax calculation in cache
func (r *RateRepository) CacheCalculation(ctx context.Context, cache *models.TaxCalculationCache) error {
	return r.db.WithContext(ctx).Create(cache).Error
}
