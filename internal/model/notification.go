package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationBiddingPublished      NotificationType = "BIDDING_PUBLISHED"
	NotificationBiddingStatusChanged  NotificationType = "BIDDING_STATUS_CHANGED"
	NotificationProposalReceived      NotificationType = "PROPOSAL_RECEIVED"
	NotificationProposalStatusChanged NotificationType = "PROPOSAL_STATUS_CHANGED"
	NotificationContractCreated       NotificationType = "CONTRACT_CREATED"
	NotificationAdmin                 NotificationType = "ADMIN"
	NotificationSystem                NotificationType = "SYSTEM"
)

func ParseNotificationType(raw string) (NotificationType, bool) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case NotificationBiddingPublished, NotificationBiddingStatusChanged, NotificationProposalReceived,
		NotificationProposalStatusChanged, NotificationContractCreated, NotificationAdmin, NotificationSystem:
		return t, true
	default:
		return "", false
	}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type Notification struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID         `json:"user_id" gorm:"type:uuid"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      datatypes.JSONMap `json:"data,omitempty" gorm:"type:jsonb"`
	Priority  Priority          `json:"priority"`
	IsRead    bool              `json:"is_read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

type NotificationFilter struct {
	UnreadOnly bool
	Type       *NotificationType
	Limit      int
	Offset     int
}

type NotificationStats struct {
	Total  int64                      `json:"total"`
	Unread int64                      `json:"unread"`
	ByType map[NotificationType]int64 `json:"by_type"`
}
