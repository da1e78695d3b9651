package model

import (
	"time"

	"github.com/google/uuid"
)

type Supplier struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid"`
	CompanyName string    `json:"company_name"`
	TradeName   string    `json:"trade_name"`
	CNPJ        string    `json:"cnpj" gorm:"column:cnpj"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Supplier) TableName() string { return "suppliers" }

type Sphere string

const (
	SphereMunicipal Sphere = "MUNICIPAL"
	SphereState     Sphere = "STATE"
	SphereFederal   Sphere = "FEDERAL"
)

func ValidSphere(s Sphere) bool {
	switch s {
	case SphereMunicipal, SphereState, SphereFederal:
		return true
	default:
		return false
	}
}

type PublicEntity struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid"`
	Name       string    `json:"name"`
	CNPJ       string    `json:"cnpj" gorm:"column:cnpj"`
	Sphere     Sphere    `json:"sphere"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Phone      string    `json:"phone"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PublicEntity) TableName() string { return "public_entities" }

// OrganizationFilter is shared by supplier and public entity listings.
type OrganizationFilter struct {
	Verified *bool
	State    string
	Search   string
	Limit    int
	Offset   int
}
