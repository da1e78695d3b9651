package model

import (
	"time"

	"github.com/google/uuid"
)

type Dashboard struct {
	UsersByRole         map[Role]int64          `json:"users_by_role"`
	BiddingsByStatus    map[BiddingStatus]int64 `json:"biddings_by_status"`
	ProposalsTotal      int64                   `json:"proposals_total"`
	ActiveContracts     int64                   `json:"active_contracts"`
	ContractedValue     float64                 `json:"contracted_value"`
	UnreadNotifications int64                   `json:"unread_notifications"`
	GeneratedAt         time.Time               `json:"generated_at"`
}

// BiddingReportRow is one line of the bidding export.
type BiddingReportRow struct {
	ID             uuid.UUID
	Number         string
	Title          string
	EntityName     string
	Modality       Modality
	Status         BiddingStatus
	EstimatedValue float64
	OpeningDate    time.Time
	ClosingDate    time.Time
	ProposalCount  int64
	WinningAmount  *float64
	WinnerName     *string
}

type BiddingReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      *BiddingStatus
	Rows        []BiddingReportRow
	GeneratedAt time.Time
}

func (r BiddingReport) TotalEstimated() float64 {
	total := 0.0
	for _, row := range r.Rows {
		total += row.EstimatedValue
	}
	return total
}

func (r BiddingReport) TotalAwarded() float64 {
	total := 0.0
	for _, row := range r.Rows {
		if row.WinningAmount != nil {
			total += *row.WinningAmount
		}
	}
	return total
}

func (r BiddingReport) TotalProposals() int64 {
	var total int64
	for _, row := range r.Rows {
		total += row.ProposalCount
	}
	return total
}
