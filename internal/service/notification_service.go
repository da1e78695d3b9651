package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/metrics"
	"github.com/licitabrasil/licita-api/internal/model"
)

// Realtime event names.
const (
	EventNewNotification   = "new-notification"
	EventNewBidding        = "new-bidding"
	EventAdminNotification = "admin-notification"
)

type NotificationService struct {
	store     NotificationStore
	users     UserStore
	suppliers SupplierStore
	entities  PublicEntityStore
	proposals ProposalStore
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	emitter Emitter
}

type NotificationDeps struct {
	Store     NotificationStore
	Users     UserStore
	Suppliers SupplierStore
	Entities  PublicEntityStore
	Proposals ProposalStore
	Metrics   *metrics.Metrics
}

type CreateNotificationInput struct {
	UserID   uuid.UUID
	Type     model.NotificationType
	Title    string
	Message  string
	Data     datatypes.JSONMap
	Priority model.Priority
}

func NewNotificationService(deps NotificationDeps, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:     deps.Store,
		users:     deps.Users,
		suppliers: deps.Suppliers,
		entities:  deps.Entities,
		proposals: deps.Proposals,
		metrics:   deps.Metrics,
		log:       log.With().Str("component", "notifications").Logger(),
		now:       time.Now,
	}
}

// SetEmitter registers the realtime channel. Passing nil disables socket delivery.
func (s *NotificationService) SetEmitter(emitter Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = emitter
}

func (s *NotificationService) currentEmitter() Emitter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emitter
}

func (s *NotificationService) CreateNotification(ctx context.Context, input CreateNotificationInput) (*model.Notification, error) {
	notification, err := s.build(input)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID.String()).Msg("create notification rejected")
		return nil, err
	}

	if err := s.store.Create(ctx, notification); err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID.String()).Msg("create notification failed")
		return nil, translate(err)
	}
	s.metrics.NotificationsCreated(string(notification.Type), 1)

	if emitter := s.currentEmitter(); emitter != nil {
		emitter.EmitToUser(notification.UserID, EventNewNotification, notification)
	}
	return notification, nil
}

// CreateBulkNotifications stores all inputs in one batch and pushes each row
// to its user. Failures are logged and swallowed; the number of stored
// notifications is returned.
func (s *NotificationService) CreateBulkNotifications(ctx context.Context, inputs []CreateNotificationInput) int {
	if len(inputs) == 0 {
		return 0
	}

	notifications := make([]model.Notification, 0, len(inputs))
	for _, input := range inputs {
		notification, err := s.build(input)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", input.UserID.String()).Msg("skipping invalid bulk notification")
			continue
		}
		notifications = append(notifications, *notification)
	}
	if len(notifications) == 0 {
		return 0
	}

	if err := s.store.CreateBatch(ctx, notifications); err != nil {
		s.log.Error().Err(err).Int("count", len(notifications)).Msg("bulk notification insert failed")
		return 0
	}

	perType := make(map[model.NotificationType]int)
	for _, n := range notifications {
		perType[n.Type]++
	}
	for t, count := range perType {
		s.metrics.NotificationsCreated(string(t), count)
	}

	if emitter := s.currentEmitter(); emitter != nil {
		for i := range notifications {
			emitter.EmitToUser(notifications[i].UserID, EventNewNotification, notifications[i])
		}
	}
	return len(notifications)
}

func (s *NotificationService) NotifyNewBidding(ctx context.Context, bidding model.Bidding) int {
	userIDs, err := s.suppliers.ActiveUserIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("bidding_id", bidding.ID.String()).Msg("load suppliers for new bidding failed")
		return 0
	}

	data := biddingData(bidding)
	inputs := make([]CreateNotificationInput, 0, len(userIDs))
	for _, userID := range userIDs {
		inputs = append(inputs, CreateNotificationInput{
			UserID:   userID,
			Type:     model.NotificationBiddingPublished,
			Title:    "Nova licitação publicada",
			Message:  fmt.Sprintf("%s: %s", bidding.Number, bidding.Title),
			Data:     data,
			Priority: model.PriorityMedium,
		})
	}
	created := s.CreateBulkNotifications(ctx, inputs)

	if emitter := s.currentEmitter(); emitter != nil {
		emitter.Broadcast(EventNewBidding, bidding)
	}
	return created
}

func (s *NotificationService) NotifyAdmins(ctx context.Context, title, message string, data datatypes.JSONMap) int {
	adminIDs, err := s.users.ActiveIDsByRole(ctx, model.RoleAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("load admins failed")
		return 0
	}

	inputs := make([]CreateNotificationInput, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		inputs = append(inputs, CreateNotificationInput{
			UserID:   adminID,
			Type:     model.NotificationAdmin,
			Title:    title,
			Message:  message,
			Data:     data,
			Priority: model.PriorityHigh,
		})
	}
	created := s.CreateBulkNotifications(ctx, inputs)

	if emitter := s.currentEmitter(); emitter != nil {
		emitter.EmitToRole(model.RoleAdmin, EventAdminNotification, adminPayload(title, message, data))
	}
	return created
}

func (s *NotificationService) NotifyBiddingStatusChange(ctx context.Context, bidding model.Bidding, from, to model.BiddingStatus) int {
	userIDs, err := s.proposals.SupplierUserIDs(ctx, bidding.ID)
	if err != nil {
		s.log.Error().Err(err).Str("bidding_id", bidding.ID.String()).Msg("load bidders failed")
		return 0
	}

	data := biddingData(bidding)
	data["from"] = from
	data["to"] = to
	priority := model.PriorityMedium
	if to == model.BiddingStatusCancelled || to == model.BiddingStatusSuspended {
		priority = model.PriorityHigh
	}

	inputs := make([]CreateNotificationInput, 0, len(userIDs))
	for _, userID := range userIDs {
		inputs = append(inputs, CreateNotificationInput{
			UserID:   userID,
			Type:     model.NotificationBiddingStatusChanged,
			Title:    "Situação da licitação alterada",
			Message:  fmt.Sprintf("A licitação %s passou de %s para %s", bidding.Number, from, to),
			Data:     data,
			Priority: priority,
		})
	}
	return s.CreateBulkNotifications(ctx, inputs)
}

func (s *NotificationService) NotifyProposalReceived(ctx context.Context, bidding model.Bidding, proposal model.Proposal) {
	entity, err := s.entities.GetByID(ctx, bidding.PublicEntityID)
	if err != nil {
		s.log.Error().Err(err).Str("bidding_id", bidding.ID.String()).Msg("load entity for proposal notification failed")
		return
	}

	data := biddingData(bidding)
	data["proposal_id"] = proposal.ID
	data["amount"] = proposal.Amount
	s.CreateBulkNotifications(ctx, []CreateNotificationInput{{
		UserID:   entity.UserID,
		Type:     model.NotificationProposalReceived,
		Title:    "Nova proposta recebida",
		Message:  fmt.Sprintf("A licitação %s recebeu uma nova proposta", bidding.Number),
		Data:     data,
		Priority: model.PriorityMedium,
	}})
}

func (s *NotificationService) NotifyProposalStatusChange(ctx context.Context, proposal model.Proposal, bidding model.Bidding) {
	supplier, err := s.suppliers.GetByID(ctx, proposal.SupplierID)
	if err != nil {
		s.log.Error().Err(err).Str("proposal_id", proposal.ID.String()).Msg("load supplier for proposal notification failed")
		return
	}

	data := biddingData(bidding)
	data["proposal_id"] = proposal.ID
	data["status"] = proposal.Status
	if proposal.RejectionReason != nil {
		data["reason"] = *proposal.RejectionReason
	}
	priority := model.PriorityMedium
	if proposal.Status == model.ProposalStatusWinner {
		priority = model.PriorityUrgent
	}
	s.CreateBulkNotifications(ctx, []CreateNotificationInput{{
		UserID:   supplier.UserID,
		Type:     model.NotificationProposalStatusChanged,
		Title:    "Situação da proposta alterada",
		Message:  fmt.Sprintf("Sua proposta na licitação %s está agora %s", bidding.Number, proposal.Status),
		Data:     data,
		Priority: priority,
	}})
}

func (s *NotificationService) NotifyContractCreated(ctx context.Context, contract model.Contract, bidding model.Bidding) {
	recipients := make([]uuid.UUID, 0, 2)
	if supplier, err := s.suppliers.GetByID(ctx, contract.SupplierID); err == nil {
		recipients = append(recipients, supplier.UserID)
	} else {
		s.log.Error().Err(err).Str("contract_id", contract.ID.String()).Msg("load contract supplier failed")
	}
	if entity, err := s.entities.GetByID(ctx, contract.PublicEntityID); err == nil {
		recipients = append(recipients, entity.UserID)
	} else {
		s.log.Error().Err(err).Str("contract_id", contract.ID.String()).Msg("load contract entity failed")
	}

	data := biddingData(bidding)
	data["contract_id"] = contract.ID
	data["contract_number"] = contract.Number
	data["value"] = contract.Value

	inputs := make([]CreateNotificationInput, 0, len(recipients))
	for _, userID := range recipients {
		inputs = append(inputs, CreateNotificationInput{
			UserID:   userID,
			Type:     model.NotificationContractCreated,
			Title:    "Contrato gerado",
			Message:  fmt.Sprintf("Contrato %s gerado para a licitação %s", contract.Number, bidding.Number),
			Data:     data,
			Priority: model.PriorityHigh,
		})
	}
	s.CreateBulkNotifications(ctx, inputs)
}

// BroadcastToRole sends a system notification to every active user of role.
func (s *NotificationService) BroadcastToRole(ctx context.Context, role model.Role, title, message string, priority model.Priority) (int, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return 0, fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	userIDs, err := s.users.ActiveIDsByRole(ctx, role)
	if err != nil {
		return 0, err
	}
	inputs := make([]CreateNotificationInput, 0, len(userIDs))
	for _, userID := range userIDs {
		inputs = append(inputs, CreateNotificationInput{
			UserID:   userID,
			Type:     model.NotificationSystem,
			Title:    title,
			Message:  message,
			Priority: priority,
		})
	}
	return s.CreateBulkNotifications(ctx, inputs), nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.store.MarkAsRead(ctx, id, userID, s.now().UTC()); err != nil {
		err = translate(err)
		s.log.Error().Err(err).Str("notification_id", id.String()).Msg("mark notification as read failed")
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllAsRead(ctx, userID, s.now().UTC())
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	return s.store.List(ctx, userID, filter)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return translate(s.store.Delete(ctx, id, userID))
}

func (s *NotificationService) GetNotificationStats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	stats, err := s.store.Stats(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("notification stats failed")
		return nil, err
	}
	return stats, nil
}

func (s *NotificationService) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.store.DeleteReadBefore(ctx, olderThan)
}

func (s *NotificationService) build(input CreateNotificationInput) (*model.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	notificationType, ok := model.ParseNotificationType(string(input.Type))
	if !ok {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, input.Type)
	}
	priority := model.Priority(strings.ToUpper(strings.TrimSpace(string(input.Priority))))
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	data := input.Data
	if data == nil {
		data = datatypes.JSONMap{}
	}

	return &model.Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Data:      data,
		Priority:  priority,
		CreatedAt: s.now().UTC(),
	}, nil
}

func biddingData(bidding model.Bidding) datatypes.JSONMap {
	return datatypes.JSONMap{
		"bidding_id":     bidding.ID,
		"bidding_number": bidding.Number,
		"title":          bidding.Title,
		"status":         bidding.Status,
	}
}

func adminPayload(title, message string, data datatypes.JSONMap) map[string]any {
	return map[string]any{
		"title":   title,
		"message": message,
		"data":    data,
	}
}
