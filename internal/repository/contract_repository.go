package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepository) List(ctx context.Context, filter model.ContractFilter) ([]model.Contract, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Contract{})
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.PublicEntityID != nil {
		query = query.Where("public_entity_id = ?", *filter.PublicEntityID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var contracts []model.Contract
	if err := paginate(query.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&contracts).Error; err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ContractStatus, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Contract{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *ContractRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var current int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(MAX(CAST(SPLIT_PART(number, '-', 3) AS INTEGER)), 0)
		FROM contracts
		WHERE number LIKE ?
	`, fmt.Sprintf("CT-%d-%%", year)).Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// ActiveTotals returns the number of active contracts and their summed value.
func (r *ContractRepository) ActiveTotals(ctx context.Context) (int64, float64, error) {
	var row struct {
		Total int64
		Value float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total, COALESCE(SUM(value), 0) AS value
		FROM contracts
		WHERE status = ?
	`, model.ContractStatusActive).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Value, nil
}
