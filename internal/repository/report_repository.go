package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// BiddingRows lists biddings whose opening date falls in [from, to) together
// with proposal counts and the winning proposal, if any.
func (r *ReportRepository) BiddingRows(
	ctx context.Context,
	from, to time.Time,
	status *model.BiddingStatus,
) ([]model.BiddingReportRow, error) {
	baseQuery := `
		SELECT
			b.id,
			b.number,
			b.title,
			COALESCE(pe.name, 'Desconhecido') AS entity_name,
			b.modality,
			b.status,
			b.estimated_value,
			b.opening_date,
			b.closing_date,
			(
				SELECT COUNT(*)
				FROM proposals p
				WHERE p.bidding_id = b.id AND p.status <> 'WITHDRAWN'
			) AS proposal_count,
			w.amount AS winning_amount,
			ws.company_name AS winner_name
		FROM biddings b
		LEFT JOIN public_entities pe ON pe.id = b.public_entity_id
		LEFT JOIN proposals w ON w.bidding_id = b.id AND w.status = 'WINNER'
		LEFT JOIN suppliers ws ON ws.id = w.supplier_id
		WHERE b.opening_date >= ?
			AND b.opening_date < ?
			AND b.status <> 'DRAFT'
	`
	args := []interface{}{from, to}
	if status != nil {
		baseQuery += " AND b.status = ?"
		args = append(args, *status)
	}
	baseQuery += " ORDER BY b.opening_date ASC, b.number ASC"

	var rows []model.BiddingReportRow
	if err := r.db.WithContext(ctx).Raw(baseQuery, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
