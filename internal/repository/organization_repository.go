package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) Create(ctx context.Context, supplier *model.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *SupplierRepository) Update(ctx context.Context, supplier *model.Supplier) error {
	return r.db.WithContext(ctx).Model(supplier).
		Select("company_name", "trade_name", "cnpj", "phone", "address", "city", "state", "is_verified", "updated_at").
		Updates(supplier).Error
}

func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) List(ctx context.Context, filter model.OrganizationFilter) ([]model.Supplier, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Supplier{})
	query = applyOrganizationFilter(query, filter, "company_name", "trade_name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var suppliers []model.Supplier
	if err := paginate(query.Order("company_name ASC"), filter.Limit, filter.Offset).Find(&suppliers).Error; err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

func (r *SupplierRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return setVerified(ctx, r.db, &model.Supplier{}, id, verified)
}

// ActiveUserIDs returns the user ids of verified suppliers whose accounts are active.
func (r *SupplierRepository) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT s.user_id
		FROM suppliers s
		JOIN users u ON u.id = s.user_id
		WHERE u.is_active = TRUE AND s.is_verified = TRUE
	`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type PublicEntityRepository struct {
	db *gorm.DB
}

func NewPublicEntityRepository(db *gorm.DB) *PublicEntityRepository {
	return &PublicEntityRepository{db: db}
}

func (r *PublicEntityRepository) Create(ctx context.Context, entity *model.PublicEntity) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *PublicEntityRepository) Update(ctx context.Context, entity *model.PublicEntity) error {
	return r.db.WithContext(ctx).Model(entity).
		Select("name", "cnpj", "sphere", "phone", "city", "state", "is_verified", "updated_at").
		Updates(entity).Error
}

func (r *PublicEntityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PublicEntity, error) {
	var entity model.PublicEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *PublicEntityRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PublicEntity, error) {
	var entity model.PublicEntity
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *PublicEntityRepository) List(ctx context.Context, filter model.OrganizationFilter) ([]model.PublicEntity, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.PublicEntity{})
	query = applyOrganizationFilter(query, filter, "name", "city")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entities []model.PublicEntity
	if err := paginate(query.Order("name ASC"), filter.Limit, filter.Offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func (r *PublicEntityRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return setVerified(ctx, r.db, &model.PublicEntity{}, id, verified)
}

func applyOrganizationFilter(query *gorm.DB, filter model.OrganizationFilter, nameColumns ...string) *gorm.DB {
	if filter.Verified != nil {
		query = query.Where("is_verified = ?", *filter.Verified)
	}
	if state := strings.ToUpper(strings.TrimSpace(filter.State)); state != "" {
		query = query.Where("state = ?", state)
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		clauses := make([]string, 0, len(nameColumns)+1)
		args := make([]any, 0, len(nameColumns)+1)
		for _, column := range nameColumns {
			clauses = append(clauses, column+" ILIKE ?")
			args = append(args, pattern)
		}
		if digits := strings.Map(keepDigits, filter.Search); digits != "" {
			clauses = append(clauses, "cnpj LIKE ?")
			args = append(args, likePattern(digits))
		}
		query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	return query
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func setVerified(ctx context.Context, db *gorm.DB, target any, id uuid.UUID, verified bool) error {
	result := db.WithContext(ctx).Model(target).Where("id = ?", id).
		Updates(map[string]any{"is_verified": verified, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
