package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusCompleted  ContractStatus = "COMPLETED"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

func ParseContractStatus(raw string) (ContractStatus, bool) {
	status := ContractStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case ContractStatusActive, ContractStatusCompleted, ContractStatusTerminated:
		return status, true
	default:
		return "", false
	}
}

type Contract struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number         string         `json:"number"`
	BiddingID      uuid.UUID      `json:"bidding_id" gorm:"type:uuid"`
	ProposalID     uuid.UUID      `json:"proposal_id" gorm:"type:uuid"`
	SupplierID     uuid.UUID      `json:"supplier_id" gorm:"type:uuid"`
	PublicEntityID uuid.UUID      `json:"public_entity_id" gorm:"type:uuid"`
	Value          float64        `json:"value"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	Status         ContractStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

type ContractFilter struct {
	SupplierID     *uuid.UUID
	PublicEntityID *uuid.UUID
	Status         *ContractStatus
	Limit          int
	Offset         int
}
