package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/metrics"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/repository"
)

const (
	numberAttempts        = 3
	awardRejectionReason  = "Outra proposta foi declarada vencedora"
	pdfContentType        = "application/pdf"
	transitionOriginUser  = "manual"
	transitionOriginClock = "scheduler"
)

type BiddingService struct {
	biddings      BiddingStore
	proposals     ProposalStore
	entities      PublicEntityStore
	contracts     ContractStore
	notifications *NotificationService
	settings      *SettingsService
	storage       DocumentStorage
	maxUploadMB   int
	metrics       *metrics.Metrics
	log           zerolog.Logger
	now           func() time.Time
}

type BiddingDeps struct {
	Biddings      BiddingStore
	Proposals     ProposalStore
	Entities      PublicEntityStore
	Contracts     ContractStore
	Notifications *NotificationService
	Settings      *SettingsService
	// Storage is optional; document operations fail with ErrUnavailable without it.
	Storage     DocumentStorage
	MaxUploadMB int
	Metrics     *metrics.Metrics
}

type BiddingInput struct {
	PublicEntityID *uuid.UUID
	Title          string
	Description    string
	Modality       model.Modality
	Category       string
	EstimatedValue float64
	OpeningDate    time.Time
	ClosingDate    time.Time
}

type AwardInput struct {
	ProposalID uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
}

type DocumentUpload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

type AdvanceResult struct {
	Opened int `json:"opened"`
	Closed int `json:"closed"`
}

func NewBiddingService(deps BiddingDeps, log zerolog.Logger) *BiddingService {
	maxUpload := deps.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 20
	}
	return &BiddingService{
		biddings:      deps.Biddings,
		proposals:     deps.Proposals,
		entities:      deps.Entities,
		contracts:     deps.Contracts,
		notifications: deps.Notifications,
		settings:      deps.Settings,
		storage:       deps.Storage,
		maxUploadMB:   maxUpload,
		metrics:       deps.Metrics,
		log:           log.With().Str("component", "biddings").Logger(),
		now:           time.Now,
	}
}

func (s *BiddingService) Create(ctx context.Context, principal model.Principal, input BiddingInput) (*model.Bidding, error) {
	entityID, err := s.resolveEntity(ctx, principal, input.PublicEntityID)
	if err != nil {
		return nil, err
	}
	modality, err := validateBiddingInput(&input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	bidding := &model.Bidding{
		PublicEntityID: entityID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Modality:       modality,
		Category:       strings.TrimSpace(input.Category),
		EstimatedValue: input.EstimatedValue,
		Status:         model.BiddingStatusDraft,
		OpeningDate:    input.OpeningDate.UTC(),
		ClosingDate:    input.ClosingDate.UTC(),
		CreatedBy:      principal.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Numbers are derived from the current maximum, so a concurrent insert
	// can take ours; retry with a fresh sequence on conflict.
	for attempt := 1; ; attempt++ {
		seq, err := s.biddings.NextSequence(ctx, modality.Prefix(), now.Year())
		if err != nil {
			return nil, err
		}
		bidding.ID = uuid.New()
		bidding.Number = fmt.Sprintf("%s-%d-%04d", modality.Prefix(), now.Year(), seq)

		err = translate(s.biddings.Create(ctx, bidding))
		if err == nil {
			return bidding, nil
		}
		if !errors.Is(err, ErrConflict) || attempt == numberAttempts {
			return nil, err
		}
		s.log.Warn().Str("number", bidding.Number).Int("attempt", attempt).Msg("bidding number taken, retrying")
	}
}

// Update edits a bidding that is still a draft.
func (s *BiddingService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input BiddingInput) (*model.Bidding, error) {
	bidding, err := s.managed(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if bidding.Status != model.BiddingStatusDraft {
		return nil, fmt.Errorf("%w: only draft biddings can be edited", ErrInvalidTransition)
	}
	modality, err := validateBiddingInput(&input)
	if err != nil {
		return nil, err
	}

	bidding.Title = strings.TrimSpace(input.Title)
	bidding.Description = strings.TrimSpace(input.Description)
	bidding.Modality = modality
	bidding.Category = strings.TrimSpace(input.Category)
	bidding.EstimatedValue = input.EstimatedValue
	bidding.OpeningDate = input.OpeningDate.UTC()
	bidding.ClosingDate = input.ClosingDate.UTC()
	bidding.UpdatedAt = s.now().UTC()

	if err := s.biddings.Update(ctx, bidding); err != nil {
		return nil, translate(err)
	}
	return bidding, nil
}

// Get returns a bidding. Drafts are reported as missing to anyone but the
// owning entity and inspectors.
func (s *BiddingService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Bidding, error) {
	bidding, err := s.biddings.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if bidding.Status == model.BiddingStatusDraft && !s.canManage(ctx, principal, bidding) && !principal.CanInspect() {
		return nil, ErrNotFound
	}
	return bidding, nil
}

func (s *BiddingService) List(ctx context.Context, principal model.Principal, filter model.BiddingFilter) ([]model.Bidding, int64, error) {
	filter.ExcludeDraft = false
	filter.OwnerEntityID = nil
	if !principal.CanInspect() {
		filter.ExcludeDraft = true
		if principal.IsPublicEntity() {
			if entity, err := s.entities.GetByUserID(ctx, principal.UserID); err == nil {
				filter.OwnerEntityID = &entity.ID
			}
		}
	}
	return s.biddings.List(ctx, filter)
}

func (s *BiddingService) ChangeStatus(ctx context.Context, principal model.Principal, id uuid.UUID, to model.BiddingStatus, reason string) (*model.Bidding, error) {
	bidding, err := s.managed(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if to == model.BiddingStatusAwarded {
		return nil, fmt.Errorf("%w: use the award operation", ErrInvalidTransition)
	}
	from := bidding.Status
	if !from.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	reason = strings.TrimSpace(reason)
	if (to == model.BiddingStatusCancelled || to == model.BiddingStatusSuspended) && reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	if to == model.BiddingStatusPublished {
		if err := s.checkPublishable(ctx, bidding, now); err != nil {
			return nil, err
		}
	}

	if err := s.biddings.UpdateStatus(ctx, id, from, to, now); err != nil {
		return nil, translate(err)
	}
	bidding.Status = to
	bidding.UpdatedAt = now
	if to == model.BiddingStatusPublished && bidding.PublishedAt == nil {
		bidding.PublishedAt = &now
	}
	s.metrics.BiddingTransition(string(to), transitionOriginUser)
	s.log.Info().
		Str("bidding_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("bidding status changed")

	if from == model.BiddingStatusDraft && to == model.BiddingStatusPublished {
		s.notifications.NotifyNewBidding(ctx, *bidding)
	}
	s.notifications.NotifyBiddingStatusChange(ctx, *bidding, from, to)
	return bidding, nil
}

// Award declares the winning proposal of a closed bidding and creates its contract.
func (s *BiddingService) Award(ctx context.Context, principal model.Principal, id uuid.UUID, input AwardInput) (*repository.AwardResult, error) {
	bidding, err := s.managed(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if bidding.Status != model.BiddingStatusClosed {
		return nil, fmt.Errorf("%w: only closed biddings can be awarded", ErrInvalidTransition)
	}

	proposal, err := s.proposals.GetByID(ctx, input.ProposalID)
	if err != nil {
		return nil, translate(err)
	}
	if proposal.BiddingID != bidding.ID {
		return nil, fmt.Errorf("%w: proposal does not belong to this bidding", ErrInvalidInput)
	}
	switch proposal.Status {
	case model.ProposalStatusSubmitted, model.ProposalStatusUnderReview, model.ProposalStatusAccepted:
	default:
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidTransition, proposal.Status)
	}

	now := s.now().UTC()
	start := input.StartDate.UTC()
	if start.IsZero() {
		start = now
	}
	end := input.EndDate.UTC()
	if end.IsZero() || !end.After(start) {
		return nil, fmt.Errorf("%w: contract end date must be after start date", ErrInvalidInput)
	}

	seq, err := s.contracts.NextSequence(ctx, now.Year())
	if err != nil {
		return nil, err
	}
	result, err := s.biddings.Award(ctx, repository.AwardParams{
		BiddingID:  bidding.ID,
		ProposalID: proposal.ID,
		Contract: model.Contract{
			ID:             uuid.New(),
			Number:         fmt.Sprintf("CT-%d-%04d", now.Year(), seq),
			BiddingID:      bidding.ID,
			ProposalID:     proposal.ID,
			SupplierID:     proposal.SupplierID,
			PublicEntityID: bidding.PublicEntityID,
			Value:          proposal.Amount,
			StartDate:      start,
			EndDate:        end,
			Status:         model.ContractStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		RejectionReason: awardRejectionReason,
		At:              now,
	})
	if err != nil {
		return nil, translate(err)
	}

	bidding.Status = model.BiddingStatusAwarded
	bidding.UpdatedAt = now
	s.metrics.BiddingTransition(string(model.BiddingStatusAwarded), transitionOriginUser)

	s.notifications.NotifyContractCreated(ctx, result.Contract, *bidding)
	s.notifications.NotifyProposalStatusChange(ctx, result.Winner, *bidding)
	for _, rejected := range result.Rejected {
		s.notifications.NotifyProposalStatusChange(ctx, rejected, *bidding)
	}
	s.notifications.NotifyBiddingStatusChange(ctx, *bidding, model.BiddingStatusClosed, model.BiddingStatusAwarded)
	return result, nil
}

// AdvanceByDate opens published biddings whose opening date has passed and
// closes open biddings whose closing date has passed.
func (s *BiddingService) AdvanceByDate(ctx context.Context, now time.Time) (AdvanceResult, error) {
	var result AdvanceResult
	now = now.UTC()

	opened, err := s.advance(ctx, model.BiddingStatusPublished, model.BiddingStatusOpen, now)
	result.Opened = opened
	if err != nil {
		return result, err
	}
	closed, err := s.advance(ctx, model.BiddingStatusOpen, model.BiddingStatusClosed, now)
	result.Closed = closed
	return result, err
}

func (s *BiddingService) advance(ctx context.Context, from, to model.BiddingStatus, now time.Time) (int, error) {
	due, err := s.biddings.ListDue(ctx, from, now)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, bidding := range due {
		if err := s.biddings.UpdateStatus(ctx, bidding.ID, from, to, now); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				continue
			}
			s.log.Error().Err(err).Str("bidding_id", bidding.ID.String()).Msg("scheduled status change failed")
			continue
		}
		bidding.Status = to
		bidding.UpdatedAt = now
		moved++
		s.metrics.BiddingTransition(string(to), transitionOriginClock)
		s.notifications.NotifyBiddingStatusChange(ctx, bidding, from, to)
	}
	return moved, nil
}

func (s *BiddingService) AttachDocument(ctx context.Context, principal model.Principal, id uuid.UUID, upload DocumentUpload) (*model.Bidding, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("%w: document storage is not configured", ErrUnavailable)
	}
	bidding, err := s.managed(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if bidding.Status.Terminal() {
		return nil, fmt.Errorf("%w: bidding is %s", ErrInvalidTransition, bidding.Status)
	}

	name := path.Base(strings.TrimSpace(upload.Name))
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if !strings.EqualFold(path.Ext(name), ".pdf") || (contentType != "" && !strings.HasPrefix(contentType, pdfContentType)) {
		return nil, fmt.Errorf("%w: only PDF documents are accepted", ErrInvalidInput)
	}
	limitMB := s.settings.Int(ctx, SettingMaxUploadMB, s.maxUploadMB)
	if upload.Size <= 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidInput)
	}
	if upload.Size > int64(limitMB)<<20 {
		return nil, fmt.Errorf("%w: document exceeds %d MB", ErrInvalidInput, limitMB)
	}

	key := fmt.Sprintf("biddings/%s/%s.pdf", bidding.ID, uuid.NewString())
	if err := s.storage.Upload(ctx, key, upload.Body, upload.Size, pdfContentType); err != nil {
		s.log.Error().Err(err).Str("bidding_id", id.String()).Msg("document upload failed")
		return nil, fmt.Errorf("%w: document upload failed", ErrUnavailable)
	}
	if err := s.biddings.SetDocument(ctx, bidding.ID, key, name); err != nil {
		return nil, translate(err)
	}
	bidding.DocumentKey = &key
	bidding.DocumentName = &name
	return bidding, nil
}

// DocumentURL returns a short-lived download link for the bidding notice.
func (s *BiddingService) DocumentURL(ctx context.Context, principal model.Principal, id uuid.UUID) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: document storage is not configured", ErrUnavailable)
	}
	bidding, err := s.Get(ctx, principal, id)
	if err != nil {
		return "", err
	}
	if !bidding.HasDocument() {
		return "", fmt.Errorf("%w: bidding has no document", ErrNotFound)
	}
	name := "edital.pdf"
	if bidding.DocumentName != nil && *bidding.DocumentName != "" {
		name = *bidding.DocumentName
	}
	url, err := s.storage.PresignedURL(ctx, *bidding.DocumentKey, name)
	if err != nil {
		s.log.Error().Err(err).Str("bidding_id", id.String()).Msg("presign document failed")
		return "", fmt.Errorf("%w: document link unavailable", ErrUnavailable)
	}
	return url, nil
}

func (s *BiddingService) checkPublishable(ctx context.Context, bidding *model.Bidding, now time.Time) error {
	if !bidding.ClosingDate.After(now) {
		return fmt.Errorf("%w: closing date must be in the future", ErrInvalidInput)
	}
	if !bidding.OpeningDate.Before(bidding.ClosingDate) {
		return fmt.Errorf("%w: opening date must precede closing date", ErrInvalidInput)
	}
	minDays := s.settings.Int(ctx, SettingProposalMinDays, 0)
	if minDays > 0 && bidding.ClosingDate.Sub(bidding.OpeningDate) < time.Duration(minDays)*24*time.Hour {
		return fmt.Errorf("%w: proposals must stay open for at least %d days", ErrInvalidInput, minDays)
	}
	return nil
}

// resolveEntity picks the public entity a new bidding belongs to.
func (s *BiddingService) resolveEntity(ctx context.Context, principal model.Principal, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case principal.IsPublicEntity():
		entity, err := s.entities.GetByUserID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(translate(err), ErrNotFound) {
				return uuid.Nil, fmt.Errorf("%w: public entity profile required", ErrPermissionDenied)
			}
			return uuid.Nil, err
		}
		return entity.ID, nil
	case principal.IsAdmin():
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, fmt.Errorf("%w: public_entity_id is required", ErrInvalidInput)
		}
		entity, err := s.entities.GetByID(ctx, *requested)
		if err != nil {
			if errors.Is(translate(err), ErrNotFound) {
				return uuid.Nil, fmt.Errorf("%w: unknown public entity", ErrInvalidInput)
			}
			return uuid.Nil, err
		}
		return entity.ID, nil
	default:
		return uuid.Nil, ErrPermissionDenied
	}
}

// managed loads a bidding the caller is allowed to administer.
func (s *BiddingService) managed(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Bidding, error) {
	bidding, err := s.biddings.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !s.canManage(ctx, principal, bidding) {
		if bidding.Status == model.BiddingStatusDraft && !principal.CanInspect() {
			return nil, ErrNotFound
		}
		return nil, ErrPermissionDenied
	}
	return bidding, nil
}

func (s *BiddingService) canManage(ctx context.Context, principal model.Principal, bidding *model.Bidding) bool {
	if principal.IsAdmin() {
		return true
	}
	if !principal.IsPublicEntity() {
		return false
	}
	entity, err := s.entities.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return false
	}
	return entity.ID == bidding.PublicEntityID
}

func validateBiddingInput(input *BiddingInput) (model.Modality, error) {
	if strings.TrimSpace(input.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	modality, ok := model.ParseModality(string(input.Modality))
	if !ok {
		return "", fmt.Errorf("%w: unknown modality %q", ErrInvalidInput, input.Modality)
	}
	if input.EstimatedValue <= 0 {
		return "", fmt.Errorf("%w: estimated value must be positive", ErrInvalidInput)
	}
	if input.OpeningDate.IsZero() || input.ClosingDate.IsZero() {
		return "", fmt.Errorf("%w: opening and closing dates are required", ErrInvalidInput)
	}
	if !input.OpeningDate.Before(input.ClosingDate) {
		return "", fmt.Errorf("%w: opening date must precede closing date", ErrInvalidInput)
	}
	return modality, nil
}
