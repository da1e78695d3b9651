package http

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/auth"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.User
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{items: map[uuid.UUID]*model.User{}}
	for i := range users {
		user := users[i]
		m.items[user.ID] = &user
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.items {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) CPFExists(_ context.Context, cpf string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.items {
		if user.CPF != nil && *user.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) List(_ context.Context, filter model.UserFilter) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, user := range m.items {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, int64(len(out)), nil
}

func (m *memUsers) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = hash
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.items[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memUsers) ActiveIDsByRole(_ context.Context, role model.Role) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, user := range m.items {
		if user.Role == role && user.IsActive {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

func (m *memUsers) CountByRole(_ context.Context) (map[model.Role]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.Role]int64{}
	for _, user := range m.items {
		counts[user.Role]++
	}
	return counts, nil
}

type memRefresh struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newMemRefresh() *memRefresh {
	return &memRefresh{tokens: map[string]uuid.UUID{}}
}

func (m *memRefresh) Save(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *memRefresh) Consume(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, auth.ErrRefreshTokenNotFound
	}
	delete(m.tokens, token)
	return userID, nil
}

func (m *memRefresh) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memRefresh) RevokeAll(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, owner := range m.tokens {
		if owner == userID {
			delete(m.tokens, token)
		}
	}
	return nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []model.Notification
}

func (m *memNotifications) Create(_ context.Context, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *notification)
	return nil
}

func (m *memNotifications) CreateBatch(_ context.Context, notifications []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, notifications...)
	return nil
}

func (m *memNotifications) List(_ context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (m *memNotifications) MarkAsRead(_ context.Context, id, userID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			if !m.items[i].IsRead {
				m.items[i].IsRead = true
				m.items[i].ReadAt = &at
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memNotifications) MarkAllAsRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			m.items[i].ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func (m *memNotifications) Delete(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memNotifications) Stats(_ context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.NotificationStats{ByType: map[model.NotificationType]int64{}}
	for _, n := range m.items {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByType[n.Type]++
		if !n.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

func (m *memNotifications) CountUnread(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unread int64
	for _, n := range m.items {
		if !n.IsRead {
			unread++
		}
	}
	return unread, nil
}

func (m *memNotifications) DeleteReadBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memNotifications) forUser(userID uuid.UUID) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (m *memAudit) Create(_ context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) List(_ context.Context, filter model.AuditFilter) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AuditLog
	for _, entry := range m.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		out = append(out, entry)
	}
	return out, int64(len(out)), nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry.Action)
	}
	return out
}

type memSuppliers struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Supplier
	users *memUsers
}

func (m *memSuppliers) Create(_ context.Context, supplier *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	copied := *supplier
	m.items[supplier.ID] = &copied
	return nil
}

func (m *memSuppliers) Update(_ context.Context, supplier *model.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *supplier
	m.items[supplier.ID] = &copied
	return nil
}

func (m *memSuppliers) GetByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	supplier, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *supplier
	return &copied, nil
}

func (m *memSuppliers) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, supplier := range m.items {
		if supplier.UserID == userID {
			copied := *supplier
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memSuppliers) List(_ context.Context, filter model.OrganizationFilter) ([]model.Supplier, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Supplier
	for _, supplier := range m.items {
		if filter.Verified != nil && supplier.IsVerified != *filter.Verified {
			continue
		}
		out = append(out, *supplier)
	}
	return out, int64(len(out)), nil
}

func (m *memSuppliers) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	supplier, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.IsVerified = verified
	return nil
}

func (m *memSuppliers) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	var candidates []uuid.UUID
	for _, supplier := range m.items {
		if supplier.IsVerified {
			candidates = append(candidates, supplier.UserID)
		}
	}
	m.mu.Unlock()

	var ids []uuid.UUID
	for _, id := range candidates {
		if user, err := m.users.GetByID(ctx, id); err == nil && user.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memEntities struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.PublicEntity
}

func (m *memEntities) Create(_ context.Context, entity *model.PublicEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	copied := *entity
	m.items[entity.ID] = &copied
	return nil
}

func (m *memEntities) Update(_ context.Context, entity *model.PublicEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entity
	m.items[entity.ID] = &copied
	return nil
}

func (m *memEntities) GetByID(_ context.Context, id uuid.UUID) (*model.PublicEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entity
	return &copied, nil
}

func (m *memEntities) GetByUserID(_ context.Context, userID uuid.UUID) (*model.PublicEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entity := range m.items {
		if entity.UserID == userID {
			copied := *entity
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memEntities) List(_ context.Context, _ model.OrganizationFilter) ([]model.PublicEntity, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PublicEntity
	for _, entity := range m.items {
		out = append(out, *entity)
	}
	return out, int64(len(out)), nil
}

func (m *memEntities) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entity.IsVerified = verified
	return nil
}

type memProposals struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*model.Proposal
	suppliers *memSuppliers
}

func (m *memProposals) Create(_ context.Context, proposal *model.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *proposal
	m.items[proposal.ID] = &copied
	return nil
}

func (m *memProposals) GetByID(_ context.Context, id uuid.UUID) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proposal, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *proposal
	return &copied, nil
}

func (m *memProposals) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ProposalStatus, reason *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	proposal, ok := m.items[id]
	if !ok || proposal.Status != from {
		return repository.ErrStaleState
	}
	proposal.Status = to
	proposal.RejectionReason = reason
	proposal.UpdatedAt = at
	return nil
}

func (m *memProposals) ListByBidding(_ context.Context, biddingID uuid.UUID) ([]model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Proposal
	for _, proposal := range m.items {
		if proposal.BiddingID == biddingID {
			out = append(out, *proposal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

func (m *memProposals) ListBySupplier(_ context.Context, supplierID uuid.UUID) ([]model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Proposal
	for _, proposal := range m.items {
		if proposal.SupplierID == supplierID {
			out = append(out, *proposal)
		}
	}
	return out, nil
}

func (m *memProposals) HasLive(_ context.Context, biddingID, supplierID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, proposal := range m.items {
		if proposal.BiddingID == biddingID && proposal.SupplierID == supplierID && proposal.Status != model.ProposalStatusWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProposals) SupplierUserIDs(ctx context.Context, biddingID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	var supplierIDs []uuid.UUID
	for _, proposal := range m.items {
		if proposal.BiddingID == biddingID && proposal.Status != model.ProposalStatusWithdrawn {
			supplierIDs = append(supplierIDs, proposal.SupplierID)
		}
	}
	m.mu.Unlock()

	var ids []uuid.UUID
	for _, id := range supplierIDs {
		if supplier, err := m.suppliers.GetByID(ctx, id); err == nil {
			ids = append(ids, supplier.UserID)
		}
	}
	return ids, nil
}

func (m *memProposals) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

type memContracts struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Contract
}

func (m *memContracts) put(contract model.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[contract.ID] = &contract
}

func (m *memContracts) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contract, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contract
	return &copied, nil
}

func (m *memContracts) List(_ context.Context, filter model.ContractFilter) ([]model.Contract, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Contract
	for _, contract := range m.items {
		if filter.SupplierID != nil && contract.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.PublicEntityID != nil && contract.PublicEntityID != *filter.PublicEntityID {
			continue
		}
		if filter.Status != nil && contract.Status != *filter.Status {
			continue
		}
		out = append(out, *contract)
	}
	return out, int64(len(out)), nil
}

func (m *memContracts) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ContractStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	contract, ok := m.items[id]
	if !ok || contract.Status != from {
		return repository.ErrStaleState
	}
	contract.Status = to
	contract.UpdatedAt = at
	return nil
}

func (m *memContracts) NextSequence(_ context.Context, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) + 1, nil
}

func (m *memContracts) ActiveTotals(_ context.Context) (int64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	var total float64
	for _, contract := range m.items {
		if contract.Status == model.ContractStatusActive {
			count++
			total += contract.Value
		}
	}
	return count, total, nil
}

type memBiddings struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*model.Bidding
	proposals *memProposals
	contracts *memContracts
}

func (m *memBiddings) Create(_ context.Context, bidding *model.Bidding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bidding
	m.items[bidding.ID] = &copied
	return nil
}

func (m *memBiddings) Update(_ context.Context, bidding *model.Bidding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bidding
	m.items[bidding.ID] = &copied
	return nil
}

func (m *memBiddings) GetByID(_ context.Context, id uuid.UUID) (*model.Bidding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bidding, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bidding
	return &copied, nil
}

func (m *memBiddings) List(_ context.Context, filter model.BiddingFilter) ([]model.Bidding, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Bidding
	for _, bidding := range m.items {
		if filter.ExcludeDraft && bidding.Status == model.BiddingStatusDraft {
			continue
		}
		if filter.Status != nil && bidding.Status != *filter.Status {
			continue
		}
		out = append(out, *bidding)
	}
	return out, int64(len(out)), nil
}

func (m *memBiddings) NextSequence(_ context.Context, _ string, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) + 1, nil
}

func (m *memBiddings) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.BiddingStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bidding, ok := m.items[id]
	if !ok || bidding.Status != from {
		return repository.ErrStaleState
	}
	bidding.Status = to
	bidding.UpdatedAt = at
	return nil
}

func (m *memBiddings) SetDocument(_ context.Context, id uuid.UUID, key, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bidding, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	bidding.DocumentKey = &key
	bidding.DocumentName = &name
	return nil
}

func (m *memBiddings) ListDue(_ context.Context, _ model.BiddingStatus, _ time.Time) ([]model.Bidding, error) {
	return nil, nil
}

func (m *memBiddings) Award(_ context.Context, params repository.AwardParams) (*repository.AwardResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bidding, ok := m.items[params.BiddingID]
	if !ok || bidding.Status != model.BiddingStatusClosed {
		return nil, repository.ErrStaleState
	}

	m.proposals.mu.Lock()
	winner, ok := m.proposals.items[params.ProposalID]
	if !ok {
		m.proposals.mu.Unlock()
		return nil, repository.ErrStaleState
	}
	bidding.Status = model.BiddingStatusAwarded
	winner.Status = model.ProposalStatusWinner
	result := &repository.AwardResult{Winner: *winner, Contract: params.Contract}
	for _, proposal := range m.proposals.items {
		if proposal.BiddingID != params.BiddingID || proposal.ID == params.ProposalID || !proposal.Status.Live() {
			continue
		}
		reason := params.RejectionReason
		proposal.Status = model.ProposalStatusRejected
		proposal.RejectionReason = &reason
		result.Rejected = append(result.Rejected, *proposal)
	}
	m.proposals.mu.Unlock()

	m.contracts.put(params.Contract)
	return result, nil
}

func (m *memBiddings) CountByStatus(_ context.Context) (map[model.BiddingStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.BiddingStatus]int64{}
	for _, bidding := range m.items {
		counts[bidding.Status]++
	}
	return counts, nil
}

type memDocuments struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memDocuments) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = raw
	return nil
}

func (m *memDocuments) PresignedURL(_ context.Context, key, downloadName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://storage.test/" + key + "?name=" + downloadName, nil
}

func (m *memDocuments) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for key := range m.objects {
		out = append(out, key)
	}
	return out
}
