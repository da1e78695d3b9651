package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalStatusSubmitted   ProposalStatus = "SUBMITTED"
	ProposalStatusUnderReview ProposalStatus = "UNDER_REVIEW"
	ProposalStatusAccepted    ProposalStatus = "ACCEPTED"
	ProposalStatusRejected    ProposalStatus = "REJECTED"
	ProposalStatusWinner      ProposalStatus = "WINNER"
	ProposalStatusWithdrawn   ProposalStatus = "WITHDRAWN"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusSubmitted:   {ProposalStatusUnderReview},
	ProposalStatusUnderReview: {ProposalStatusAccepted, ProposalStatusRejected},
}

func ParseProposalStatus(raw string) (ProposalStatus, bool) {
	status := ProposalStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case ProposalStatusSubmitted, ProposalStatusUnderReview, ProposalStatusAccepted,
		ProposalStatusRejected, ProposalStatusWinner, ProposalStatusWithdrawn:
		return status, true
	default:
		return "", false
	}
}

// CanReview reports whether the reviewing entity may move a proposal to the given status.
func (s ProposalStatus) CanReview(to ProposalStatus) bool {
	for _, next := range proposalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Live proposals take part in the bidding.
func (s ProposalStatus) Live() bool {
	return s != ProposalStatusWithdrawn && s != ProposalStatusRejected
}

func (s ProposalStatus) Withdrawable() bool {
	return s == ProposalStatusSubmitted || s == ProposalStatusUnderReview
}

type Proposal struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BiddingID       uuid.UUID      `json:"bidding_id" gorm:"type:uuid"`
	SupplierID      uuid.UUID      `json:"supplier_id" gorm:"type:uuid"`
	Amount          float64        `json:"amount"`
	Description     string         `json:"description"`
	DeliveryDays    int            `json:"delivery_days"`
	Status          ProposalStatus `json:"status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Proposal) TableName() string { return "proposals" }
