package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/licitabrasil/licita-api/internal/model"
)

type ContractService struct {
	contracts ContractStore
	suppliers SupplierStore
	entities  PublicEntityStore
	now       func() time.Time
}

func NewContractService(contracts ContractStore, suppliers SupplierStore, entities PublicEntityStore) *ContractService {
	return &ContractService{
		contracts: contracts,
		suppliers: suppliers,
		entities:  entities,
		now:       time.Now,
	}
}

// List scopes contracts to the caller: suppliers and entities see their own,
// inspectors see everything.
func (s *ContractService) List(ctx context.Context, principal model.Principal, filter model.ContractFilter) ([]model.Contract, int64, error) {
	switch {
	case principal.CanInspect():
	case principal.IsSupplier():
		supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(translate(err), ErrNotFound) {
				return []model.Contract{}, 0, nil
			}
			return nil, 0, err
		}
		filter.SupplierID = &supplier.ID
	case principal.IsPublicEntity():
		entity, err := s.entities.GetByUserID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(translate(err), ErrNotFound) {
				return []model.Contract{}, 0, nil
			}
			return nil, 0, err
		}
		filter.PublicEntityID = &entity.ID
	default:
		return nil, 0, ErrPermissionDenied
	}
	return s.contracts.List(ctx, filter)
}

func (s *ContractService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if principal.CanInspect() || s.isParty(ctx, principal, contract) {
		return contract, nil
	}
	return nil, ErrNotFound
}

// ChangeStatus finishes an active contract. Only the contracting entity or an
// admin may do so.
func (s *ContractService) ChangeStatus(ctx context.Context, principal model.Principal, id uuid.UUID, to model.ContractStatus) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !principal.IsAdmin() {
		if !principal.IsPublicEntity() || !s.isParty(ctx, principal, contract) {
			return nil, ErrPermissionDenied
		}
	}
	if contract.Status != model.ContractStatusActive ||
		(to != model.ContractStatusCompleted && to != model.ContractStatusTerminated) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, contract.Status, to)
	}

	now := s.now().UTC()
	if err := s.contracts.UpdateStatus(ctx, id, contract.Status, to, now); err != nil {
		return nil, translate(err)
	}
	contract.Status = to
	contract.UpdatedAt = now
	return contract, nil
}

func (s *ContractService) isParty(ctx context.Context, principal model.Principal, contract *model.Contract) bool {
	switch {
	case principal.IsSupplier():
		supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
		return err == nil && supplier.ID == contract.SupplierID
	case principal.IsPublicEntity():
		entity, err := s.entities.GetByUserID(ctx, principal.UserID)
		return err == nil && entity.ID == contract.PublicEntityID
	default:
		return false
	}
}
