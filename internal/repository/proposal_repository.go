package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

func (r *ProposalRepository) Create(ctx context.Context, proposal *model.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	var proposal model.Proposal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// UpdateStatus applies a status change only if the proposal is still in from.
func (r *ProposalRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ProposalStatus,
	reason *string,
	at time.Time,
) error {
	result := r.db.WithContext(ctx).Model(&model.Proposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":           to,
			"rejection_reason": reason,
			"updated_at":       at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *ProposalRepository) ListByBidding(ctx context.Context, biddingID uuid.UUID) ([]model.Proposal, error) {
	var proposals []model.Proposal
	err := r.db.WithContext(ctx).
		Where("bidding_id = ?", biddingID).
		Order("amount ASC, submitted_at ASC").
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *ProposalRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Proposal, error) {
	var proposals []model.Proposal
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("submitted_at DESC").
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *ProposalRepository) HasLive(ctx context.Context, biddingID, supplierID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Proposal{}).
		Where("bidding_id = ? AND supplier_id = ? AND status <> ?", biddingID, supplierID, model.ProposalStatusWithdrawn).
		Count(&count).Error
	return count > 0, err
}

// SupplierUserIDs returns the users behind every live proposal of a bidding.
func (r *ProposalRepository) SupplierUserIDs(ctx context.Context, biddingID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT s.user_id
		FROM proposals p
		JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.bidding_id = ?
			AND p.status <> ?
	`, biddingID, model.ProposalStatusWithdrawn).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ProposalRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Proposal{}).Count(&count).Error
	return count, err
}
