package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    *uuid.UUID        `json:"user_id,omitempty" gorm:"type:uuid"`
	Action    string            `json:"action"`
	Entity    string            `json:"entity"`
	EntityID  *uuid.UUID        `json:"entity_id,omitempty" gorm:"type:uuid"`
	Details   datatypes.JSONMap `json:"details,omitempty" gorm:"type:jsonb"`
	IPAddress string            `json:"ip_address"`
	UserAgent string            `json:"user_agent"`
	CreatedAt time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditFilter struct {
	UserID *uuid.UUID
	Action string
	Entity string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type Setting struct {
	Key         string     `json:"key" gorm:"primaryKey"`
	Value       string     `json:"value"`
	Description string     `json:"description"`
	UpdatedBy   *uuid.UUID `json:"updated_by,omitempty" gorm:"type:uuid"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

type UserFilter struct {
	Role   *Role
	Active *bool
	Search string
	Limit  int
	Offset int
}
