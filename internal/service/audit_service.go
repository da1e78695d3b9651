package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/model"
)

// Audit actions.
const (
	ActionLogin          = "LOGIN"
	ActionRegister       = "REGISTER"
	ActionUserCreate     = "USER_CREATE"
	ActionUserUpdate     = "USER_UPDATE"
	ActionUserDelete     = "USER_DELETE"
	ActionBiddingCreate  = "BIDDING_CREATE"
	ActionBiddingUpdate  = "BIDDING_UPDATE"
	ActionBiddingStatus  = "BIDDING_STATUS"
	ActionBiddingAward   = "BIDDING_AWARD"
	ActionSettingUpdate  = "SETTING_UPDATE"
	ActionSupplierVerify = "SUPPLIER_VERIFY"
	ActionEntityVerify   = "ENTITY_VERIFY"
)

type AuditEntry struct {
	UserID    *uuid.UUID
	Action    string
	Entity    string
	EntityID  *uuid.UUID
	Details   datatypes.JSONMap
	IPAddress string
	UserAgent string
}

type AuditService struct {
	store AuditStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuditService(store AuditStore, log zerolog.Logger) *AuditService {
	return &AuditService{
		store: store,
		log:   log.With().Str("component", "audit").Logger(),
		now:   time.Now,
	}
}

// Record stores an audit entry. Failures are logged and never surfaced.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	record := &model.AuditLog{
		ID:        uuid.New(),
		UserID:    entry.UserID,
		Action:    strings.ToUpper(entry.Action),
		Entity:    strings.ToLower(entry.Entity),
		EntityID:  entry.EntityID,
		Details:   entry.Details,
		IPAddress: entry.IPAddress,
		UserAgent: truncate(entry.UserAgent, 512),
		CreatedAt: s.now().UTC(),
	}
	if record.Details == nil {
		record.Details = datatypes.JSONMap{}
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.log.Error().Err(err).Str("action", record.Action).Msg("audit record failed")
	}
}

func (s *AuditService) List(ctx context.Context, principal model.Principal, filter model.AuditFilter) ([]model.AuditLog, int64, error) {
	if !principal.CanInspect() {
		return nil, 0, ErrPermissionDenied
	}
	return s.store.List(ctx, filter)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
