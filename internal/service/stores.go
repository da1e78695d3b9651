package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CPFExists(ctx context.Context, cpf string) (bool, error)
	List(ctx context.Context, filter model.UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ActiveIDsByRole(ctx context.Context, role model.Role) ([]uuid.UUID, error)
	CountByRole(ctx context.Context) (map[model.Role]int64, error)
}

type SupplierStore interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	Update(ctx context.Context, supplier *model.Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context, filter model.OrganizationFilter) ([]model.Supplier, int64, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type PublicEntityStore interface {
	Create(ctx context.Context, entity *model.PublicEntity) error
	Update(ctx context.Context, entity *model.PublicEntity) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PublicEntity, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PublicEntity, error)
	List(ctx context.Context, filter model.OrganizationFilter) ([]model.PublicEntity, int64, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type BiddingStore interface {
	Create(ctx context.Context, bidding *model.Bidding) error
	Update(ctx context.Context, bidding *model.Bidding) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bidding, error)
	List(ctx context.Context, filter model.BiddingFilter) ([]model.Bidding, int64, error)
	NextSequence(ctx context.Context, prefix string, year int) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BiddingStatus, at time.Time) error
	SetDocument(ctx context.Context, id uuid.UUID, key, name string) error
	ListDue(ctx context.Context, status model.BiddingStatus, now time.Time) ([]model.Bidding, error)
	Award(ctx context.Context, params repository.AwardParams) (*repository.AwardResult, error)
	CountByStatus(ctx context.Context) (map[model.BiddingStatus]int64, error)
}

type ProposalStore interface {
	Create(ctx context.Context, proposal *model.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Proposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ProposalStatus, reason *string, at time.Time) error
	ListByBidding(ctx context.Context, biddingID uuid.UUID) ([]model.Proposal, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Proposal, error)
	HasLive(ctx context.Context, biddingID, supplierID uuid.UUID) (bool, error)
	SupplierUserIDs(ctx context.Context, biddingID uuid.UUID) ([]uuid.UUID, error)
	Count(ctx context.Context) (int64, error)
}

type ContractStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	List(ctx context.Context, filter model.ContractFilter) ([]model.Contract, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ContractStatus, at time.Time) error
	NextSequence(ctx context.Context, year int) (int, error)
	ActiveTotals(ctx context.Context) (int64, float64, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *model.Notification) error
	CreateBatch(ctx context.Context, notifications []model.Notification) error
	List(ctx context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]model.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error)
	CountUnread(ctx context.Context) (int64, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter model.AuditFilter) ([]model.AuditLog, int64, error)
}

type SettingStore interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (*model.Setting, error)
	Upsert(ctx context.Context, setting *model.Setting) error
}

type ReportStore interface {
	BiddingRows(ctx context.Context, from, to time.Time, status *model.BiddingStatus) ([]model.BiddingReportRow, error)
}

// RefreshTokenStore keeps single-use refresh tokens.
type RefreshTokenStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, token string) (uuid.UUID, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type AccessTokenIssuer interface {
	Issue(user model.User) (string, error)
	TTL() time.Duration
}

type DocumentStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key, downloadName string) (string, error)
}

// Emitter pushes realtime events to connected clients. Delivery is best-effort.
type Emitter interface {
	EmitToUser(userID uuid.UUID, event string, payload any)
	EmitToRole(role model.Role, event string, payload any)
	Broadcast(event string, payload any)
}
