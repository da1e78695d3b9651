package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/model"
)

type ProposalService struct {
	proposals     ProposalStore
	biddings      BiddingStore
	suppliers     SupplierStore
	entities      PublicEntityStore
	notifications *NotificationService
	settings      *SettingsService
	log           zerolog.Logger
	now           func() time.Time
}

type ProposalDeps struct {
	Proposals     ProposalStore
	Biddings      BiddingStore
	Suppliers     SupplierStore
	Entities      PublicEntityStore
	Notifications *NotificationService
	Settings      *SettingsService
}

type ProposalInput struct {
	Amount       float64
	Description  string
	DeliveryDays int
}

func NewProposalService(deps ProposalDeps, log zerolog.Logger) *ProposalService {
	return &ProposalService{
		proposals:     deps.Proposals,
		biddings:      deps.Biddings,
		suppliers:     deps.Suppliers,
		entities:      deps.Entities,
		notifications: deps.Notifications,
		settings:      deps.Settings,
		log:           log.With().Str("component", "proposals").Logger(),
		now:           time.Now,
	}
}

func (s *ProposalService) Submit(ctx context.Context, principal model.Principal, biddingID uuid.UUID, input ProposalInput) (*model.Proposal, error) {
	if !principal.IsSupplier() {
		return nil, fmt.Errorf("%w: only suppliers can submit proposals", ErrPermissionDenied)
	}
	if s.settings.MaintenanceMode(ctx) {
		return nil, fmt.Errorf("%w: platform is in maintenance", ErrUnavailable)
	}
	supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: supplier profile required", ErrPermissionDenied)
		}
		return nil, err
	}
	if !supplier.IsVerified {
		return nil, fmt.Errorf("%w: supplier profile is not verified", ErrPermissionDenied)
	}

	bidding, err := s.biddings.GetByID(ctx, biddingID)
	if err != nil {
		return nil, translate(err)
	}
	now := s.now().UTC()
	if bidding.Status != model.BiddingStatusOpen || !now.Before(bidding.ClosingDate) {
		return nil, fmt.Errorf("%w: bidding is not accepting proposals", ErrInvalidTransition)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if input.DeliveryDays < 0 {
		return nil, fmt.Errorf("%w: delivery days must not be negative", ErrInvalidInput)
	}

	exists, err := s.proposals.HasLive(ctx, bidding.ID, supplier.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: a proposal for this bidding already exists", ErrConflict)
	}

	proposal := &model.Proposal{
		ID:           uuid.New(),
		BiddingID:    bidding.ID,
		SupplierID:   supplier.ID,
		Amount:       input.Amount,
		Description:  strings.TrimSpace(input.Description),
		DeliveryDays: input.DeliveryDays,
		Status:       model.ProposalStatusSubmitted,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, translate(err)
	}

	s.notifications.NotifyProposalReceived(ctx, *bidding, *proposal)
	return proposal, nil
}

func (s *ProposalService) Withdraw(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Proposal, error) {
	if !principal.IsSupplier() {
		return nil, ErrPermissionDenied
	}
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
	if err != nil || supplier.ID != proposal.SupplierID {
		return nil, ErrNotFound
	}
	if !proposal.Status.Withdrawable() {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidTransition, proposal.Status)
	}
	bidding, err := s.biddings.GetByID(ctx, proposal.BiddingID)
	if err != nil {
		return nil, translate(err)
	}
	if bidding.Status != model.BiddingStatusOpen {
		return nil, fmt.Errorf("%w: bidding is %s", ErrInvalidTransition, bidding.Status)
	}

	now := s.now().UTC()
	if err := s.proposals.UpdateStatus(ctx, id, proposal.Status, model.ProposalStatusWithdrawn, nil, now); err != nil {
		return nil, translate(err)
	}
	proposal.Status = model.ProposalStatusWithdrawn
	proposal.UpdatedAt = now
	return proposal, nil
}

func (s *ProposalService) ListMine(ctx context.Context, principal model.Principal) ([]model.Proposal, error) {
	if !principal.IsSupplier() {
		return nil, ErrPermissionDenied
	}
	supplier, err := s.suppliers.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return []model.Proposal{}, nil
		}
		return nil, err
	}
	return s.proposals.ListBySupplier(ctx, supplier.ID)
}

// ListForBidding returns every proposal of a bidding to its owner and inspectors.
func (s *ProposalService) ListForBidding(ctx context.Context, principal model.Principal, biddingID uuid.UUID) ([]model.Proposal, error) {
	bidding, err := s.biddings.GetByID(ctx, biddingID)
	if err != nil {
		return nil, translate(err)
	}
	if !principal.CanInspect() && !s.ownsBidding(ctx, principal, bidding) {
		return nil, ErrPermissionDenied
	}
	return s.proposals.ListByBidding(ctx, biddingID)
}

// ChangeStatus is the review step performed by the owning entity.
func (s *ProposalService) ChangeStatus(ctx context.Context, principal model.Principal, id uuid.UUID, to model.ProposalStatus, reason string) (*model.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	bidding, err := s.biddings.GetByID(ctx, proposal.BiddingID)
	if err != nil {
		return nil, translate(err)
	}
	if !principal.IsAdmin() && !s.ownsBidding(ctx, principal, bidding) {
		return nil, ErrPermissionDenied
	}
	// Review may start while the bidding is open; decisions wait for closing.
	switch {
	case bidding.Status == model.BiddingStatusClosed:
	case bidding.Status == model.BiddingStatusOpen && to == model.ProposalStatusUnderReview:
	default:
		return nil, fmt.Errorf("%w: cannot move proposal to %s while bidding is %s", ErrInvalidTransition, to, bidding.Status)
	}
	if !proposal.Status.CanReview(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, proposal.Status, to)
	}

	var rejection *string
	if to == model.ProposalStatusRejected {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
		}
		rejection = &reason
	}

	now := s.now().UTC()
	if err := s.proposals.UpdateStatus(ctx, id, proposal.Status, to, rejection, now); err != nil {
		return nil, translate(err)
	}
	proposal.Status = to
	proposal.RejectionReason = rejection
	proposal.UpdatedAt = now

	s.notifications.NotifyProposalStatusChange(ctx, *proposal, *bidding)
	return proposal, nil
}

func (s *ProposalService) ownsBidding(ctx context.Context, principal model.Principal, bidding *model.Bidding) bool {
	if !principal.IsPublicEntity() {
		return false
	}
	entity, err := s.entities.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return false
	}
	return entity.ID == bidding.PublicEntityID
}
