package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/licitabrasil/licita-api/internal/auth"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/repository"
)

var (
	errBoom  = errors.New("boom")
	testNow  = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	nopLog   = zerolog.Nop()
	fixedNow = func() time.Time { return testNow }
)

type fakeUsers struct {
	mu            sync.Mutex
	items         map[uuid.UUID]*model.User
	createErr     error
	deleteErr     error
	activeIDsErr  error
	touchedLogins []uuid.UUID
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{items: map[uuid.UUID]*model.User{}}
	for i := range users {
		user := users[i]
		f.items[user.ID] = &user
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *user
	f.items[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.items {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) CPFExists(_ context.Context, cpf string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.items {
		if user.CPF != nil && *user.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) List(_ context.Context, filter model.UserFilter) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.User
	for _, user := range f.items {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, *user)
	}
	return result, int64(len(result)), nil
}

func (f *fakeUsers) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	f.items[user.ID] = &copied
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = hash
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchedLogins = append(f.touchedLogins, id)
	if user, ok := f.items[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeUsers) ActiveIDsByRole(_ context.Context, role model.Role) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeIDsErr != nil {
		return nil, f.activeIDsErr
	}
	var ids []uuid.UUID
	for _, user := range f.items {
		if user.Role == role && user.IsActive {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

func (f *fakeUsers) CountByRole(_ context.Context) (map[model.Role]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := map[model.Role]int64{}
	for _, user := range f.items {
		result[user.Role]++
	}
	return result, nil
}

type fakeSuppliers struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*model.Supplier
	users        *fakeUsers
	activeIDsErr error
}

func newFakeSuppliers(users *fakeUsers, suppliers ...model.Supplier) *fakeSuppliers {
	f := &fakeSuppliers{items: map[uuid.UUID]*model.Supplier{}, users: users}
	for i := range suppliers {
		supplier := suppliers[i]
		f.items[supplier.ID] = &supplier
	}
	return f
}

func (f *fakeSuppliers) Create(_ context.Context, supplier *model.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.CNPJ == supplier.CNPJ {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *supplier
	f.items[supplier.ID] = &copied
	return nil
}

func (f *fakeSuppliers) Update(_ context.Context, supplier *model.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *supplier
	f.items[supplier.ID] = &copied
	return nil
}

func (f *fakeSuppliers) GetByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	supplier, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *supplier
	return &copied, nil
}

func (f *fakeSuppliers) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, supplier := range f.items {
		if supplier.UserID == userID {
			copied := *supplier
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSuppliers) List(_ context.Context, filter model.OrganizationFilter) ([]model.Supplier, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Supplier
	for _, supplier := range f.items {
		if filter.Verified != nil && supplier.IsVerified != *filter.Verified {
			continue
		}
		if filter.State != "" && supplier.State != filter.State {
			continue
		}
		result = append(result, *supplier)
	}
	return result, int64(len(result)), nil
}

func (f *fakeSuppliers) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	supplier, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.IsVerified = verified
	return nil
}

func (f *fakeSuppliers) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	if f.activeIDsErr != nil {
		return nil, f.activeIDsErr
	}
	f.mu.Lock()
	suppliers := make([]model.Supplier, 0, len(f.items))
	for _, supplier := range f.items {
		suppliers = append(suppliers, *supplier)
	}
	f.mu.Unlock()

	var ids []uuid.UUID
	for _, supplier := range suppliers {
		if !supplier.IsVerified {
			continue
		}
		if f.users != nil {
			user, err := f.users.GetByID(ctx, supplier.UserID)
			if err != nil || !user.IsActive {
				continue
			}
		}
		ids = append(ids, supplier.UserID)
	}
	return ids, nil
}

type fakeEntities struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.PublicEntity
}

func newFakeEntities(entities ...model.PublicEntity) *fakeEntities {
	f := &fakeEntities{items: map[uuid.UUID]*model.PublicEntity{}}
	for i := range entities {
		entity := entities[i]
		f.items[entity.ID] = &entity
	}
	return f
}

func (f *fakeEntities) Create(_ context.Context, entity *model.PublicEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.CNPJ == entity.CNPJ {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *entity
	f.items[entity.ID] = &copied
	return nil
}

func (f *fakeEntities) Update(_ context.Context, entity *model.PublicEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entity
	f.items[entity.ID] = &copied
	return nil
}

func (f *fakeEntities) GetByID(_ context.Context, id uuid.UUID) (*model.PublicEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entity, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entity
	return &copied, nil
}

func (f *fakeEntities) GetByUserID(_ context.Context, userID uuid.UUID) (*model.PublicEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entity := range f.items {
		if entity.UserID == userID {
			copied := *entity
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEntities) List(_ context.Context, _ model.OrganizationFilter) ([]model.PublicEntity, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.PublicEntity
	for _, entity := range f.items {
		result = append(result, *entity)
	}
	return result, int64(len(result)), nil
}

func (f *fakeEntities) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entity, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entity.IsVerified = verified
	return nil
}

type fakeBiddings struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*model.Bidding
	proposals *fakeProposals
	contracts *fakeContracts
	// takenNumbers makes Create fail with a duplicate key for these numbers.
	takenNumbers map[string]bool
	lastFilter   model.BiddingFilter
}

func newFakeBiddings(proposals *fakeProposals, contracts *fakeContracts, biddings ...model.Bidding) *fakeBiddings {
	f := &fakeBiddings{
		items:        map[uuid.UUID]*model.Bidding{},
		proposals:    proposals,
		contracts:    contracts,
		takenNumbers: map[string]bool{},
	}
	for i := range biddings {
		bidding := biddings[i]
		f.items[bidding.ID] = &bidding
	}
	return f
}

func (f *fakeBiddings) Create(_ context.Context, bidding *model.Bidding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.takenNumbers[bidding.Number] {
		delete(f.takenNumbers, bidding.Number)
		return gorm.ErrDuplicatedKey
	}
	copied := *bidding
	f.items[bidding.ID] = &copied
	return nil
}

func (f *fakeBiddings) Update(_ context.Context, bidding *model.Bidding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bidding
	f.items[bidding.ID] = &copied
	return nil
}

func (f *fakeBiddings) GetByID(_ context.Context, id uuid.UUID) (*model.Bidding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bidding, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bidding
	return &copied, nil
}

func (f *fakeBiddings) List(_ context.Context, filter model.BiddingFilter) ([]model.Bidding, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var result []model.Bidding
	for _, bidding := range f.items {
		if filter.ExcludeDraft && bidding.Status == model.BiddingStatusDraft {
			if filter.OwnerEntityID == nil || *filter.OwnerEntityID != bidding.PublicEntityID {
				continue
			}
		}
		if filter.Status != nil && bidding.Status != *filter.Status {
			continue
		}
		result = append(result, *bidding)
	}
	return result, int64(len(result)), nil
}

func (f *fakeBiddings) NextSequence(_ context.Context, prefix string, year int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	head := fmt.Sprintf("%s-%d-", prefix, year)
	highest := 0
	for _, bidding := range f.items {
		if !strings.HasPrefix(bidding.Number, head) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(bidding.Number, head)); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func (f *fakeBiddings) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.BiddingStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bidding, ok := f.items[id]
	if !ok || bidding.Status != from {
		return repository.ErrStaleState
	}
	bidding.Status = to
	bidding.UpdatedAt = at
	if to == model.BiddingStatusPublished && bidding.PublishedAt == nil {
		published := at
		bidding.PublishedAt = &published
	}
	return nil
}

func (f *fakeBiddings) SetDocument(_ context.Context, id uuid.UUID, key, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bidding, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	bidding.DocumentKey = &key
	bidding.DocumentName = &name
	return nil
}

func (f *fakeBiddings) ListDue(_ context.Context, status model.BiddingStatus, now time.Time) ([]model.Bidding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Bidding
	for _, bidding := range f.items {
		if bidding.Status != status {
			continue
		}
		due := bidding.OpeningDate
		if status == model.BiddingStatusOpen {
			due = bidding.ClosingDate
		}
		if !due.After(now) {
			result = append(result, *bidding)
		}
	}
	return result, nil
}

func (f *fakeBiddings) Award(ctx context.Context, params repository.AwardParams) (*repository.AwardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bidding, ok := f.items[params.BiddingID]
	if !ok || bidding.Status != model.BiddingStatusClosed {
		return nil, repository.ErrStaleState
	}

	f.proposals.mu.Lock()
	defer f.proposals.mu.Unlock()
	winner, ok := f.proposals.items[params.ProposalID]
	if !ok {
		return nil, repository.ErrStaleState
	}
	bidding.Status = model.BiddingStatusAwarded
	winner.Status = model.ProposalStatusWinner

	result := &repository.AwardResult{Winner: *winner, Contract: params.Contract}
	for _, proposal := range f.proposals.items {
		if proposal.BiddingID != params.BiddingID || proposal.ID == params.ProposalID || !proposal.Status.Live() {
			continue
		}
		reason := params.RejectionReason
		proposal.Status = model.ProposalStatusRejected
		proposal.RejectionReason = &reason
		result.Rejected = append(result.Rejected, *proposal)
	}
	if f.contracts != nil {
		f.contracts.put(params.Contract)
	}
	return result, nil
}

func (f *fakeBiddings) CountByStatus(_ context.Context) (map[model.BiddingStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := map[model.BiddingStatus]int64{}
	for _, bidding := range f.items {
		result[bidding.Status]++
	}
	return result, nil
}

type fakeProposals struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*model.Proposal
	suppliers *fakeSuppliers
}

func newFakeProposals(suppliers *fakeSuppliers, proposals ...model.Proposal) *fakeProposals {
	f := &fakeProposals{items: map[uuid.UUID]*model.Proposal{}, suppliers: suppliers}
	for i := range proposals {
		proposal := proposals[i]
		f.items[proposal.ID] = &proposal
	}
	return f
}

func (f *fakeProposals) Create(_ context.Context, proposal *model.Proposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *proposal
	f.items[proposal.ID] = &copied
	return nil
}

func (f *fakeProposals) GetByID(_ context.Context, id uuid.UUID) (*model.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	proposal, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *proposal
	return &copied, nil
}

func (f *fakeProposals) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ProposalStatus, reason *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	proposal, ok := f.items[id]
	if !ok || proposal.Status != from {
		return repository.ErrStaleState
	}
	proposal.Status = to
	proposal.RejectionReason = reason
	proposal.UpdatedAt = at
	return nil
}

func (f *fakeProposals) ListByBidding(_ context.Context, biddingID uuid.UUID) ([]model.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Proposal
	for _, proposal := range f.items {
		if proposal.BiddingID == biddingID {
			result = append(result, *proposal)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Amount < result[j].Amount })
	return result, nil
}

func (f *fakeProposals) ListBySupplier(_ context.Context, supplierID uuid.UUID) ([]model.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Proposal
	for _, proposal := range f.items {
		if proposal.SupplierID == supplierID {
			result = append(result, *proposal)
		}
	}
	return result, nil
}

func (f *fakeProposals) HasLive(_ context.Context, biddingID, supplierID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, proposal := range f.items {
		if proposal.BiddingID == biddingID && proposal.SupplierID == supplierID && proposal.Status != model.ProposalStatusWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProposals) SupplierUserIDs(ctx context.Context, biddingID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	var supplierIDs []uuid.UUID
	for _, proposal := range f.items {
		if proposal.BiddingID == biddingID && proposal.Status != model.ProposalStatusWithdrawn {
			supplierIDs = append(supplierIDs, proposal.SupplierID)
		}
	}
	f.mu.Unlock()

	var ids []uuid.UUID
	for _, supplierID := range supplierIDs {
		supplier, err := f.suppliers.GetByID(ctx, supplierID)
		if err == nil {
			ids = append(ids, supplier.UserID)
		}
	}
	return ids, nil
}

func (f *fakeProposals) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

type fakeContracts struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*model.Contract
	lastFilter model.ContractFilter
}

func newFakeContracts(contracts ...model.Contract) *fakeContracts {
	f := &fakeContracts{items: map[uuid.UUID]*model.Contract{}}
	for _, contract := range contracts {
		f.put(contract)
	}
	return f
}

func (f *fakeContracts) put(contract model.Contract) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[contract.ID] = &contract
}

func (f *fakeContracts) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *contract
	return &copied, nil
}

func (f *fakeContracts) List(_ context.Context, filter model.ContractFilter) ([]model.Contract, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var result []model.Contract
	for _, contract := range f.items {
		if filter.SupplierID != nil && contract.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.PublicEntityID != nil && contract.PublicEntityID != *filter.PublicEntityID {
			continue
		}
		result = append(result, *contract)
	}
	return result, int64(len(result)), nil
}

func (f *fakeContracts) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ContractStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.items[id]
	if !ok || contract.Status != from {
		return repository.ErrStaleState
	}
	contract.Status = to
	contract.UpdatedAt = at
	return nil
}

func (f *fakeContracts) NextSequence(_ context.Context, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) + 1, nil
}

func (f *fakeContracts) ActiveTotals(_ context.Context) (int64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	var total float64
	for _, contract := range f.items {
		if contract.Status == model.ContractStatusActive {
			count++
			total += contract.Value
		}
	}
	return count, total, nil
}

type fakeNotifications struct {
	mu        sync.Mutex
	items     []model.Notification
	createErr error
	batchErr  error
	batches   int
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{}
}

func (f *fakeNotifications) Create(_ context.Context, notification *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.items = append(f.items, *notification)
	return nil
}

func (f *fakeNotifications) CreateBatch(_ context.Context, notifications []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches++
	f.items = append(f.items, notifications...)
	return nil
}

func (f *fakeNotifications) List(_ context.Context, userID uuid.UUID, filter model.NotificationFilter) ([]model.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Notification
	for _, n := range f.items {
		if n.UserID != userID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		result = append(result, n)
	}
	return result, int64(len(result)), nil
}

func (f *fakeNotifications) MarkAsRead(_ context.Context, id, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			if !f.items[i].IsRead {
				f.items[i].IsRead = true
				f.items[i].ReadAt = &at
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeNotifications) MarkAllAsRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			f.items[i].ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) Delete(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeNotifications) Stats(_ context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &model.NotificationStats{ByType: map[model.NotificationType]int64{}}
	for _, n := range f.items {
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

func (f *fakeNotifications) CountUnread(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.items {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) DeleteReadBefore(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	var removed int64
	for _, n := range f.items {
		if n.IsRead && n.ReadAt != nil && n.ReadAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	f.items = kept
	return removed, nil
}

func (f *fakeNotifications) forUser(userID uuid.UUID) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Notification
	for _, n := range f.items {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result
}

func (f *fakeNotifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeSettings struct {
	mu    sync.Mutex
	items map[string]model.Setting
	err   error
}

func newFakeSettings(values map[string]string) *fakeSettings {
	f := &fakeSettings{items: map[string]model.Setting{}}
	for key, value := range values {
		f.items[key] = model.Setting{Key: key, Value: value}
	}
	return f
}

func (f *fakeSettings) List(_ context.Context) ([]model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.Setting
	for _, setting := range f.items {
		result = append(result, setting)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (f *fakeSettings) Get(_ context.Context, key string) (*model.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	setting, ok := f.items[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &setting, nil
}

func (f *fakeSettings) Upsert(_ context.Context, setting *model.Setting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[setting.Key] = *setting
	return nil
}

type fakeAudit struct {
	mu        sync.Mutex
	entries   []model.AuditLog
	createErr error
}

func (f *fakeAudit) Create(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, _ model.AuditFilter) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditLog(nil), f.entries...), int64(len(f.entries)), nil
}

type fakeRefreshStore struct {
	mu      sync.Mutex
	tokens  map[string]uuid.UUID
	saveErr error
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: map[string]uuid.UUID{}}
}

func (f *fakeRefreshStore) Save(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.tokens[token] = userID
	return nil
}

func (f *fakeRefreshStore) Consume(_ context.Context, token string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, auth.ErrRefreshTokenNotFound
	}
	delete(f.tokens, token)
	return userID, nil
}

func (f *fakeRefreshStore) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, owner := range f.tokens {
		if owner == userID {
			delete(f.tokens, token)
		}
	}
	return nil
}

func (f *fakeRefreshStore) countFor(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, owner := range f.tokens {
		if owner == userID {
			count++
		}
	}
	return count
}

type fakeReports struct {
	rows     []model.BiddingReportRow
	from, to time.Time
	status   *model.BiddingStatus
}

func (f *fakeReports) BiddingRows(_ context.Context, from, to time.Time, status *model.BiddingStatus) ([]model.BiddingReportRow, error) {
	f.from, f.to, f.status = from, to, status
	return f.rows, nil
}

type fakeRenderer struct {
	last   model.BiddingReport
	output []byte
	err    error
}

func (f *fakeRenderer) Generate(report model.BiddingReport) ([]byte, error) {
	f.last = report
	return f.output, f.err
}

type fakeStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	uploadErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.contentType[key] = contentType
	return nil
}

func (f *fakeStorage) PresignedURL(_ context.Context, key, downloadName string) (string, error) {
	return "https://storage.local/" + key + "?name=" + downloadName, nil
}

type emitted struct {
	Target  string
	Event   string
	Payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) EmitToUser(userID uuid.UUID, event string, payload any) {
	f.record("user:"+userID.String(), event, payload)
}

func (f *fakeEmitter) EmitToRole(role model.Role, event string, payload any) {
	f.record("role:"+string(role), event, payload)
}

func (f *fakeEmitter) Broadcast(event string, payload any) {
	f.record("*", event, payload)
}

func (f *fakeEmitter) record(target, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Target: target, Event: event, Payload: payload})
}

func (f *fakeEmitter) byEvent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []emitted
	for _, e := range f.events {
		if e.Event == event {
			result = append(result, e)
		}
	}
	return result
}

func newUser(role model.Role) model.User {
	id := uuid.New()
	return model.User{
		ID:        id,
		Name:      string(role) + " user",
		Email:     strings.ToLower(string(role)) + "-" + id.String()[:8] + "@licita.test",
		Role:      role,
		IsActive:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func principalOf(user model.User) model.Principal {
	return model.Principal{UserID: user.ID, Role: user.Role, Email: user.Email}
}

// world wires every fake store around a small cast of users.
type world struct {
	users         *fakeUsers
	suppliers     *fakeSuppliers
	entities      *fakeEntities
	biddings      *fakeBiddings
	proposals     *fakeProposals
	contracts     *fakeContracts
	notifications *fakeNotifications
	settings      *fakeSettings
	emitter       *fakeEmitter

	admin        model.User
	entityUser   model.User
	otherEntity  model.User
	supplierUser model.User
	citizen      model.User

	entity       model.PublicEntity
	secondEntity model.PublicEntity
	supplier     model.Supplier

	notifier        *NotificationService
	settingsService *SettingsService
}

func newWorld() *world {
	w := &world{
		admin:        newUser(model.RoleAdmin),
		entityUser:   newUser(model.RolePublicEntity),
		otherEntity:  newUser(model.RolePublicEntity),
		supplierUser: newUser(model.RoleSupplier),
		citizen:      newUser(model.RoleCitizen),
	}
	w.entity = model.PublicEntity{ID: uuid.New(), UserID: w.entityUser.ID, Name: "Prefeitura de Campinas", CNPJ: "45723174000110", Sphere: model.SphereMunicipal, State: "SP", IsVerified: true}
	w.secondEntity = model.PublicEntity{ID: uuid.New(), UserID: w.otherEntity.ID, Name: "Prefeitura de Santos", CNPJ: "11222333000181", Sphere: model.SphereMunicipal, State: "SP", IsVerified: true}
	w.supplier = model.Supplier{ID: uuid.New(), UserID: w.supplierUser.ID, CompanyName: "Papelaria Central", CNPJ: "11444777000161", State: "SP", IsVerified: true}

	w.users = newFakeUsers(w.admin, w.entityUser, w.otherEntity, w.supplierUser, w.citizen)
	w.suppliers = newFakeSuppliers(w.users, w.supplier)
	w.entities = newFakeEntities(w.entity, w.secondEntity)
	w.contracts = newFakeContracts()
	w.proposals = newFakeProposals(w.suppliers)
	w.biddings = newFakeBiddings(w.proposals, w.contracts)
	w.notifications = newFakeNotifications()
	w.settings = newFakeSettings(map[string]string{
		SettingMaintenanceMode: "false",
		SettingProposalMinDays: "8",
		SettingMaxUploadMB:     "1",
	})
	w.emitter = &fakeEmitter{}

	w.notifier = NewNotificationService(NotificationDeps{
		Store:     w.notifications,
		Users:     w.users,
		Suppliers: w.suppliers,
		Entities:  w.entities,
		Proposals: w.proposals,
	}, nopLog)
	w.notifier.now = fixedNow
	w.notifier.SetEmitter(w.emitter)
	w.settingsService = NewSettingsService(w.settings, nopLog)
	return w
}

// addSupplier registers another verified supplier with its own user.
func (w *world) addSupplier(name string) (model.User, model.Supplier) {
	user := newUser(model.RoleSupplier)
	supplier := model.Supplier{ID: uuid.New(), UserID: user.ID, CompanyName: name, State: "RJ", IsVerified: true}
	_ = w.users.Create(context.Background(), &user)
	w.suppliers.items[supplier.ID] = &supplier
	return user, supplier
}

func (w *world) addBidding(status model.BiddingStatus, entity model.PublicEntity) model.Bidding {
	bidding := model.Bidding{
		ID:             uuid.New(),
		PublicEntityID: entity.ID,
		Number:         fmt.Sprintf("PE-2026-%04d", len(w.biddings.items)+1),
		Title:          "Aquisição de material de escritório",
		Modality:       model.ModalityPregaoEletronico,
		EstimatedValue: 10000,
		Status:         status,
		OpeningDate:    testNow.Add(24 * time.Hour),
		ClosingDate:    testNow.Add(20 * 24 * time.Hour),
		CreatedBy:      entity.UserID,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	w.biddings.items[bidding.ID] = &bidding
	return bidding
}

func (w *world) addProposal(bidding model.Bidding, supplier model.Supplier, amount float64, status model.ProposalStatus) model.Proposal {
	proposal := model.Proposal{
		ID:          uuid.New(),
		BiddingID:   bidding.ID,
		SupplierID:  supplier.ID,
		Amount:      amount,
		Status:      status,
		SubmittedAt: testNow,
		UpdatedAt:   testNow,
	}
	w.proposals.items[proposal.ID] = &proposal
	return proposal
}
