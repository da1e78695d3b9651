package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/taxid"
)

var ufPattern = regexp.MustCompile(`^[A-Z]{2}$`)

type SupplierProfileInput struct {
	CompanyName string
	TradeName   string
	CNPJ        string
	Phone       string
	Address     string
	City        string
	State       string
}

type SupplierService struct {
	suppliers     SupplierStore
	notifications *NotificationService
	log           zerolog.Logger
	now           func() time.Time
}

func NewSupplierService(suppliers SupplierStore, notifications *NotificationService, log zerolog.Logger) *SupplierService {
	return &SupplierService{
		suppliers:     suppliers,
		notifications: notifications,
		log:           log.With().Str("component", "suppliers").Logger(),
		now:           time.Now,
	}
}

func (s *SupplierService) CreateProfile(ctx context.Context, principal model.Principal, input SupplierProfileInput) (*model.Supplier, error) {
	if !principal.IsSupplier() {
		return nil, fmt.Errorf("%w: only suppliers have a supplier profile", ErrPermissionDenied)
	}
	if _, err := s.suppliers.GetByUserID(ctx, principal.UserID); err == nil {
		return nil, fmt.Errorf("%w: profile already exists", ErrConflict)
	} else if !errors.Is(translate(err), ErrNotFound) {
		return nil, err
	}

	cnpj, state, err := validateOrganization(input.CompanyName, input.CNPJ, input.State)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	supplier := &model.Supplier{
		ID:          uuid.New(),
		UserID:      principal.UserID,
		CompanyName: strings.TrimSpace(input.CompanyName),
		TradeName:   strings.TrimSpace(input.TradeName),
		CNPJ:        cnpj,
		Phone:       strings.TrimSpace(input.Phone),
		Address:     strings.TrimSpace(input.Address),
		City:        strings.TrimSpace(input.City),
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.suppliers.Create(ctx, supplier); err != nil {
		return nil, translate(err)
	}

	s.notifications.NotifyAdmins(ctx, "Novo fornecedor aguardando verificação",
		fmt.Sprintf("%s (CNPJ %s) completou o cadastro", supplier.CompanyName, taxid.FormatCNPJ(supplier.CNPJ)),
		datatypes.JSONMap{"supplier_id": supplier.ID})
	return supplier, nil
}

// UpdateProfile edits the caller's profile. A changed CNPJ clears verification.
func (s *SupplierService) UpdateProfile(ctx context.Context, principal model.Principal, input SupplierProfileInput) (*model.Supplier, error) {
	supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, translate(err)
	}
	cnpj, state, err := validateOrganization(input.CompanyName, input.CNPJ, input.State)
	if err != nil {
		return nil, err
	}
	if cnpj != supplier.CNPJ {
		supplier.IsVerified = false
	}
	supplier.CompanyName = strings.TrimSpace(input.CompanyName)
	supplier.TradeName = strings.TrimSpace(input.TradeName)
	supplier.CNPJ = cnpj
	supplier.Phone = strings.TrimSpace(input.Phone)
	supplier.Address = strings.TrimSpace(input.Address)
	supplier.City = strings.TrimSpace(input.City)
	supplier.State = state
	supplier.UpdatedAt = s.now().UTC()

	if err := s.suppliers.Update(ctx, supplier); err != nil {
		return nil, translate(err)
	}
	return supplier, nil
}

func (s *SupplierService) Get(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	supplier, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return supplier, nil
}

func (s *SupplierService) Mine(ctx context.Context, principal model.Principal) (*model.Supplier, error) {
	supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, translate(err)
	}
	return supplier, nil
}

func (s *SupplierService) List(ctx context.Context, filter model.OrganizationFilter) ([]model.Supplier, int64, error) {
	filter.State = strings.ToUpper(strings.TrimSpace(filter.State))
	return s.suppliers.List(ctx, filter)
}

func (s *SupplierService) Verify(ctx context.Context, principal model.Principal, id uuid.UUID, verified bool) (*model.Supplier, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	supplier, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.suppliers.SetVerified(ctx, id, verified); err != nil {
		return nil, translate(err)
	}
	supplier.IsVerified = verified

	title, message := verificationMessage(supplier.CompanyName, verified)
	if _, err := s.notifications.CreateNotification(ctx, CreateNotificationInput{
		UserID:   supplier.UserID,
		Type:     model.NotificationSystem,
		Title:    title,
		Message:  message,
		Data:     datatypes.JSONMap{"supplier_id": supplier.ID, "verified": verified},
		Priority: model.PriorityHigh,
	}); err != nil {
		s.log.Warn().Err(err).Str("supplier_id", id.String()).Msg("verification notice failed")
	}
	return supplier, nil
}

type PublicEntityProfileInput struct {
	Name   string
	CNPJ   string
	Sphere model.Sphere
	City   string
	State  string
	Phone  string
}

type PublicEntityService struct {
	entities      PublicEntityStore
	notifications *NotificationService
	log           zerolog.Logger
	now           func() time.Time
}

func NewPublicEntityService(entities PublicEntityStore, notifications *NotificationService, log zerolog.Logger) *PublicEntityService {
	return &PublicEntityService{
		entities:      entities,
		notifications: notifications,
		log:           log.With().Str("component", "public_entities").Logger(),
		now:           time.Now,
	}
}

func (s *PublicEntityService) CreateProfile(ctx context.Context, principal model.Principal, input PublicEntityProfileInput) (*model.PublicEntity, error) {
	if !principal.IsPublicEntity() {
		return nil, fmt.Errorf("%w: only public entity accounts have an entity profile", ErrPermissionDenied)
	}
	if _, err := s.entities.GetByUserID(ctx, principal.UserID); err == nil {
		return nil, fmt.Errorf("%w: profile already exists", ErrConflict)
	} else if !errors.Is(translate(err), ErrNotFound) {
		return nil, err
	}

	cnpj, state, err := validateOrganization(input.Name, input.CNPJ, input.State)
	if err != nil {
		return nil, err
	}
	sphere := model.Sphere(strings.ToUpper(string(input.Sphere)))
	if !model.ValidSphere(sphere) {
		return nil, fmt.Errorf("%w: sphere must be MUNICIPAL, STATE or FEDERAL", ErrInvalidInput)
	}
	now := s.now().UTC()
	entity := &model.PublicEntity{
		ID:        uuid.New(),
		UserID:    principal.UserID,
		Name:      strings.TrimSpace(input.Name),
		CNPJ:      cnpj,
		Sphere:    sphere,
		City:      strings.TrimSpace(input.City),
		State:     state,
		Phone:     strings.TrimSpace(input.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.entities.Create(ctx, entity); err != nil {
		return nil, translate(err)
	}

	s.notifications.NotifyAdmins(ctx, "Novo órgão público aguardando verificação",
		fmt.Sprintf("%s (CNPJ %s) completou o cadastro", entity.Name, taxid.FormatCNPJ(entity.CNPJ)),
		datatypes.JSONMap{"public_entity_id": entity.ID})
	return entity, nil
}

func (s *PublicEntityService) UpdateProfile(ctx context.Context, principal model.Principal, input PublicEntityProfileInput) (*model.PublicEntity, error) {
	entity, err := s.entities.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, translate(err)
	}
	cnpj, state, err := validateOrganization(input.Name, input.CNPJ, input.State)
	if err != nil {
		return nil, err
	}
	sphere := model.Sphere(strings.ToUpper(string(input.Sphere)))
	if !model.ValidSphere(sphere) {
		return nil, fmt.Errorf("%w: sphere must be MUNICIPAL, STATE or FEDERAL", ErrInvalidInput)
	}
	if cnpj != entity.CNPJ {
		entity.IsVerified = false
	}
	entity.Name = strings.TrimSpace(input.Name)
	entity.CNPJ = cnpj
	entity.Sphere = sphere
	entity.City = strings.TrimSpace(input.City)
	entity.State = state
	entity.Phone = strings.TrimSpace(input.Phone)
	entity.UpdatedAt = s.now().UTC()

	if err := s.entities.Update(ctx, entity); err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

func (s *PublicEntityService) Get(ctx context.Context, id uuid.UUID) (*model.PublicEntity, error) {
	entity, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

func (s *PublicEntityService) Mine(ctx context.Context, principal model.Principal) (*model.PublicEntity, error) {
	entity, err := s.entities.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

func (s *PublicEntityService) List(ctx context.Context, filter model.OrganizationFilter) ([]model.PublicEntity, int64, error) {
	filter.State = strings.ToUpper(strings.TrimSpace(filter.State))
	return s.entities.List(ctx, filter)
}

func (s *PublicEntityService) Verify(ctx context.Context, principal model.Principal, id uuid.UUID, verified bool) (*model.PublicEntity, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	entity, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.entities.SetVerified(ctx, id, verified); err != nil {
		return nil, translate(err)
	}
	entity.IsVerified = verified

	title, message := verificationMessage(entity.Name, verified)
	if _, err := s.notifications.CreateNotification(ctx, CreateNotificationInput{
		UserID:   entity.UserID,
		Type:     model.NotificationSystem,
		Title:    title,
		Message:  message,
		Data:     datatypes.JSONMap{"public_entity_id": entity.ID, "verified": verified},
		Priority: model.PriorityHigh,
	}); err != nil {
		s.log.Warn().Err(err).Str("public_entity_id", id.String()).Msg("verification notice failed")
	}
	return entity, nil
}

func validateOrganization(name, cnpj, state string) (string, string, error) {
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !taxid.ValidCNPJ(cnpj) {
		return "", "", fmt.Errorf("%w: invalid cnpj", ErrInvalidInput)
	}
	state = strings.ToUpper(strings.TrimSpace(state))
	if !ufPattern.MatchString(state) {
		return "", "", fmt.Errorf("%w: state must be a two-letter UF", ErrInvalidInput)
	}
	return taxid.Digits(cnpj), state, nil
}

func verificationMessage(name string, verified bool) (string, string) {
	if verified {
		return "Cadastro verificado", fmt.Sprintf("O cadastro de %s foi verificado", name)
	}
	return "Verificação revogada", fmt.Sprintf("A verificação do cadastro de %s foi revogada", name)
}
