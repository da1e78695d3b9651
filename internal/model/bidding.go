package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type BiddingStatus string

const (
	BiddingStatusDraft     BiddingStatus = "DRAFT"
	BiddingStatusPublished BiddingStatus = "PUBLISHED"
	BiddingStatusOpen      BiddingStatus = "OPEN"
	BiddingStatusClosed    BiddingStatus = "CLOSED"
	BiddingStatusAwarded   BiddingStatus = "AWARDED"
	BiddingStatusSuspended BiddingStatus = "SUSPENDED"
	BiddingStatusCancelled BiddingStatus = "CANCELLED"
)

var biddingTransitions = map[BiddingStatus][]BiddingStatus{
	BiddingStatusDraft:     {BiddingStatusPublished, BiddingStatusCancelled},
	BiddingStatusPublished: {BiddingStatusOpen, BiddingStatusSuspended, BiddingStatusCancelled},
	BiddingStatusOpen:      {BiddingStatusClosed, BiddingStatusSuspended, BiddingStatusCancelled},
	BiddingStatusSuspended: {BiddingStatusPublished, BiddingStatusOpen, BiddingStatusCancelled},
	BiddingStatusClosed:    {BiddingStatusAwarded, BiddingStatusCancelled},
}

func ParseBiddingStatus(raw string) (BiddingStatus, bool) {
	status := BiddingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case BiddingStatusDraft, BiddingStatusPublished, BiddingStatusOpen, BiddingStatusClosed,
		BiddingStatusAwarded, BiddingStatusSuspended, BiddingStatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// CanTransition reports whether a bidding may move from one status to another.
func (s BiddingStatus) CanTransition(to BiddingStatus) bool {
	for _, next := range biddingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s BiddingStatus) Terminal() bool {
	return len(biddingTransitions[s]) == 0
}

type Modality string

const (
	ModalityPregaoEletronico Modality = "PREGAO_ELETRONICO"
	ModalityConcorrencia     Modality = "CONCORRENCIA"
	ModalityTomadaDePrecos   Modality = "TOMADA_DE_PRECOS"
	ModalityConvite          Modality = "CONVITE"
	ModalityDispensa         Modality = "DISPENSA"
)

var modalityPrefixes = map[Modality]string{
	ModalityPregaoEletronico: "PE",
	ModalityConcorrencia:     "CC",
	ModalityTomadaDePrecos:   "TP",
	ModalityConvite:          "CV",
	ModalityDispensa:         "DL",
}

func ParseModality(raw string) (Modality, bool) {
	modality := Modality(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := modalityPrefixes[modality]
	return modality, ok
}

// Prefix is the short code used in bidding numbers.
func (m Modality) Prefix() string {
	return modalityPrefixes[m]
}

type Bidding struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PublicEntityID uuid.UUID     `json:"public_entity_id" gorm:"type:uuid"`
	Number         string        `json:"number"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Modality       Modality      `json:"modality"`
	Category       string        `json:"category"`
	EstimatedValue float64       `json:"estimated_value"`
	Status         BiddingStatus `json:"status"`
	OpeningDate    time.Time     `json:"opening_date"`
	ClosingDate    time.Time     `json:"closing_date"`
	PublishedAt    *time.Time    `json:"published_at,omitempty"`
	DocumentKey    *string       `json:"-"`
	DocumentName   *string       `json:"document_name,omitempty"`
	CreatedBy      uuid.UUID     `json:"created_by" gorm:"type:uuid"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Bidding) TableName() string { return "biddings" }

func (b Bidding) HasDocument() bool {
	return b.DocumentKey != nil && *b.DocumentKey != ""
}

type BiddingFilter struct {
	Status         *BiddingStatus
	Modality       *Modality
	PublicEntityID *uuid.UUID
	Search         string
	ExcludeDraft   bool
	// OwnerEntityID keeps drafts of this entity visible when ExcludeDraft is set.
	OwnerEntityID *uuid.UUID
	Limit         int
	Offset        int
}
