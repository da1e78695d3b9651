package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

type BiddingRepository struct {
	db *gorm.DB
}

func NewBiddingRepository(db *gorm.DB) *BiddingRepository {
	return &BiddingRepository{db: db}
}

func (r *BiddingRepository) Create(ctx context.Context, bidding *model.Bidding) error {
	return r.db.WithContext(ctx).Create(bidding).Error
}

func (r *BiddingRepository) Update(ctx context.Context, bidding *model.Bidding) error {
	return r.db.WithContext(ctx).Model(bidding).
		Select("title", "description", "modality", "category", "estimated_value", "opening_date", "closing_date", "updated_at").
		Updates(bidding).Error
}

func (r *BiddingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Bidding, error) {
	var bidding model.Bidding
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bidding).Error; err != nil {
		return nil, err
	}
	return &bidding, nil
}

func (r *BiddingRepository) List(ctx context.Context, filter model.BiddingFilter) ([]model.Bidding, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Bidding{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Modality != nil {
		query = query.Where("modality = ?", *filter.Modality)
	}
	if filter.PublicEntityID != nil {
		query = query.Where("public_entity_id = ?", *filter.PublicEntityID)
	}
	if filter.ExcludeDraft {
		if filter.OwnerEntityID != nil {
			query = query.Where("(status <> ? OR public_entity_id = ?)", model.BiddingStatusDraft, *filter.OwnerEntityID)
		} else {
			query = query.Where("status <> ?", model.BiddingStatusDraft)
		}
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("(title ILIKE ? OR description ILIKE ? OR number ILIKE ? OR category ILIKE ?)",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var biddings []model.Bidding
	if err := paginate(query.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&biddings).Error; err != nil {
		return nil, 0, err
	}
	return biddings, total, nil
}

// NextSequence returns the next free sequence for numbers starting with prefix-year.
func (r *BiddingRepository) NextSequence(ctx context.Context, prefix string, year int) (int, error) {
	var current int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(MAX(CAST(SPLIT_PART(number, '-', 3) AS INTEGER)), 0)
		FROM biddings
		WHERE number LIKE ?
	`, fmt.Sprintf("%s-%d-%%", prefix, year)).Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// UpdateStatus moves a bidding from one status to another. ErrStaleState is
// returned when the bidding is no longer in the expected status.
func (r *BiddingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BiddingStatus, at time.Time) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == model.BiddingStatusPublished {
		updates["published_at"] = gorm.Expr("COALESCE(published_at, ?)", at)
	}
	result := r.db.WithContext(ctx).Model(&model.Bidding{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *BiddingRepository) SetDocument(ctx context.Context, id uuid.UUID, key, name string) error {
	return r.db.WithContext(ctx).Model(&model.Bidding{}).Where("id = ?", id).
		Updates(map[string]any{
			"document_key":  key,
			"document_name": name,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// ListDue returns biddings in status whose date column is not after now.
func (r *BiddingRepository) ListDue(ctx context.Context, status model.BiddingStatus, now time.Time) ([]model.Bidding, error) {
	column := "opening_date"
	if status == model.BiddingStatusOpen {
		column = "closing_date"
	}
	var biddings []model.Bidding
	err := r.db.WithContext(ctx).
		Where("status = ? AND "+column+" <= ?", status, now).
		Order(column + " ASC").
		Find(&biddings).Error
	if err != nil {
		return nil, err
	}
	return biddings, nil
}

type AwardParams struct {
	BiddingID       uuid.UUID
	ProposalID      uuid.UUID
	Contract        model.Contract
	RejectionReason string
	At              time.Time
}

type AwardResult struct {
	Contract model.Contract
	Winner   model.Proposal
	Rejected []model.Proposal
}

// Award closes the bidding in a single transaction: the chosen proposal wins,
// every other live proposal is rejected and the contract is created.
func (r *BiddingRepository) Award(ctx context.Context, params AwardParams) (*AwardResult, error) {
	var result AwardResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated := tx.Model(&model.Bidding{}).
			Where("id = ? AND status = ?", params.BiddingID, model.BiddingStatusClosed).
			Updates(map[string]any{"status": model.BiddingStatusAwarded, "updated_at": params.At})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return ErrStaleState
		}

		won := tx.Model(&model.Proposal{}).
			Where("id = ? AND bidding_id = ? AND status IN ?", params.ProposalID, params.BiddingID, []model.ProposalStatus{
				model.ProposalStatusSubmitted,
				model.ProposalStatusUnderReview,
				model.ProposalStatusAccepted,
			}).
			Updates(map[string]any{"status": model.ProposalStatusWinner, "updated_at": params.At})
		if won.Error != nil {
			return won.Error
		}
		if won.RowsAffected == 0 {
			return ErrStaleState
		}
		if err := tx.Where("id = ?", params.ProposalID).First(&result.Winner).Error; err != nil {
			return err
		}

		if err := tx.Where("bidding_id = ? AND id <> ? AND status NOT IN ?", params.BiddingID, params.ProposalID, []model.ProposalStatus{
			model.ProposalStatusWithdrawn,
			model.ProposalStatusRejected,
		}).Find(&result.Rejected).Error; err != nil {
			return err
		}
		if len(result.Rejected) > 0 {
			ids := make([]uuid.UUID, 0, len(result.Rejected))
			for i := range result.Rejected {
				ids = append(ids, result.Rejected[i].ID)
				result.Rejected[i].Status = model.ProposalStatusRejected
				reason := params.RejectionReason
				result.Rejected[i].RejectionReason = &reason
				result.Rejected[i].UpdatedAt = params.At
			}
			if err := tx.Model(&model.Proposal{}).Where("id IN ?", ids).Updates(map[string]any{
				"status":           model.ProposalStatusRejected,
				"rejection_reason": params.RejectionReason,
				"updated_at":       params.At,
			}).Error; err != nil {
				return err
			}
		}

		contract := params.Contract
		if err := tx.Create(&contract).Error; err != nil {
			return err
		}
		result.Contract = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *BiddingRepository) CountByStatus(ctx context.Context) (map[model.BiddingStatus]int64, error) {
	var rows []struct {
		Status model.BiddingStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT status, COUNT(*) AS total
		FROM biddings
		GROUP BY status
	`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[model.BiddingStatus]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}
