package client

import (
	"time"

	"github.com/google/uuid"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type User struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	CPF         *string    `json:"cpf,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Bidding struct {
	ID             uuid.UUID  `json:"id"`
	PublicEntityID uuid.UUID  `json:"public_entity_id"`
	Number         string     `json:"number"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Modality       string     `json:"modality"`
	Category       string     `json:"category"`
	EstimatedValue float64    `json:"estimated_value"`
	Status         string     `json:"status"`
	OpeningDate    time.Time  `json:"opening_date"`
	ClosingDate    time.Time  `json:"closing_date"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	DocumentName   *string    `json:"document_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Priority  string         `json:"priority"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type NotificationStats struct {
	Total  int64            `json:"total"`
	Unread int64            `json:"unread"`
	ByType map[string]int64 `json:"by_type"`
}

// Page is one slice of a list endpoint.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type BiddingQuery struct {
	Status   string
	Modality string
	Search   string
	Limit    int
	Offset   int
}

type NotificationQuery struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}
