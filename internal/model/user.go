package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RolePublicEntity Role = "PUBLIC_ENTITY"
	RoleSupplier     Role = "SUPPLIER"
	RoleAuditor      Role = "AUDITOR"
	RoleCitizen      Role = "CITIZEN"
)

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RolePublicEntity, RoleSupplier, RoleAuditor, RoleCitizen:
		return role, true
	default:
		return "", false
	}
}

type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	CPF          *string    `json:"cpf,omitempty" gorm:"column:cpf"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Principal is the authenticated caller extracted from an access token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Email  string
}

func (p Principal) IsAdmin() bool        { return p.Role == RoleAdmin }
func (p Principal) IsPublicEntity() bool { return p.Role == RolePublicEntity }
func (p Principal) IsSupplier() bool     { return p.Role == RoleSupplier }
func (p Principal) IsAuditor() bool      { return p.Role == RoleAuditor }
func (p Principal) IsCitizen() bool      { return p.Role == RoleCitizen }

// CanInspect reports whether the caller may read data regardless of ownership.
func (p Principal) CanInspect() bool {
	return p.IsAdmin() || p.IsAuditor()
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}
