package appraisals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists appraisal snapshots
type Repository interface {
	Create(ctx context.Context, appraisal *Appraisal) error
	Get(ctx context.Context, id string) (*Appraisal, error)
	List(ctx context.Context, filters ListFilters) ([]Appraisal, int64, error)
}

// GormRepository stores appraisals in PostgreSQL through gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm-backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the appraisals table
func (r *GormRepository) Migrate() error {
	if err := r.db.AutoMigrate(&Appraisal{}); err != nil {
		return fmt.Errorf("failed to migrate appraisals: %w", err)
	}
	return nil
}

func (r *GormRepository) Create(ctx context.Context, appraisal *Appraisal) error {
	return r.db.WithContext(ctx).Create(appraisal).Error
}

func (r *GormRepository) Get(ctx context.Context, id string) (*Appraisal, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrAppraisalNotFound
	}

	var appraisal Appraisal
	if err := r.db.WithContext(ctx).First(&appraisal, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppraisalNotFound
		}
		return nil, err
	}
	return &appraisal, nil
}

func (r *GormRepository) List(ctx context.Context, filters ListFilters) ([]Appraisal, int64, error) {
	query := r.db.WithContext(ctx).Model(&Appraisal{})

	if filters.Category != "" {
		query = query.Where("category = ?", string(filters.Category))
	}
	if filters.State != "" {
		query = query.Where("upper(state) = ?", strings.ToUpper(filters.State))
	}
	if filters.City != "" {
		query = query.Where("lower(city) = ?", strings.ToLower(filters.City))
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var appraisals []Appraisal
	offset := (filters.Page - 1) * filters.PageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(filters.PageSize).
		Find(&appraisals).Error
	if err != nil {
		return nil, 0, err
	}

	return appraisals, total, nil
}
