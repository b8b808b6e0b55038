package testhelpers

import (
	"context"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockLotteryRepository is a mock implementation of LotteryRepository
type MockLotteryRepository struct {
	mock.Mock
}

func (m *MockLotteryRepository) Create(ctx context.Context, lottery *entities.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) GetByID(ctx context.Context, id int64) (*entities.Lottery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Lottery), args.Error(1)
}

func (m *MockLotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Lottery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Lottery), args.Error(1)
}

func (m *MockLotteryRepository) Update(ctx context.Context, lottery *entities.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) GetPendingSelection(ctx context.Context, tick int64, authority string) ([]*entities.Lottery, error) {
	args := m.Called(ctx, tick, authority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Lottery), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *entities.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetBySequence(ctx context.Context, lotteryID, sequenceNumber int64) (*entities.Ticket, error) {
	args := m.Called(ctx, lotteryID, sequenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByAssetRef(ctx context.Context, assetRef string) (*entities.Ticket, error) {
	args := m.Called(ctx, assetRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByLottery(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountByLottery(ctx context.Context, lotteryID int64) (int64, error) {
	args := m.Called(ctx, lotteryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) GetParticipantSummary(ctx context.Context, lotteryID int64) ([]*entities.TicketParticipantInfo, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TicketParticipantInfo), args.Error(1)
}

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	args := m.Called(ctx, from, to, amount)
	return args.Error(0)
}

func (m *MockLedger) Balance(ctx context.Context, account string) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

// MockAssetRegistry is a mock implementation of AssetRegistry
type MockAssetRegistry struct {
	mock.Mock
}

func (m *MockAssetRegistry) CreateCollection(ctx context.Context, owner, name string, metadata entities.AssetMetadata) (string, error) {
	args := m.Called(ctx, owner, name, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockAssetRegistry) MintMemberAsset(ctx context.Context, collectionRef, owner, displayName string, metadata entities.AssetMetadata) (string, error) {
	args := m.Called(ctx, collectionRef, owner, displayName, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockAssetRegistry) VerifyMembership(ctx context.Context, assetRef, collectionRef string) (entities.Membership, error) {
	args := m.Called(ctx, assetRef, collectionRef)
	return args.Get(0).(entities.Membership), args.Error(1)
}

func (m *MockAssetRegistry) GetOwnerBalance(ctx context.Context, assetRef, owner string) (int64, error) {
	args := m.Called(ctx, assetRef, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAssetRegistry) GetDisplayName(ctx context.Context, assetRef string) (string, error) {
	args := m.Called(ctx, assetRef)
	return args.String(0), args.Error(1)
}

// MockRandomnessOracle is a mock implementation of RandomnessOracle
type MockRandomnessOracle struct {
	mock.Mock
}

func (m *MockRandomnessOracle) GetCommitmentTick(ctx context.Context, requestRef string) (int64, error) {
	args := m.Called(ctx, requestRef)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRandomnessOracle) GetRevealedValue(ctx context.Context, requestRef string, currentTick int64) (uint64, error) {
	args := m.Called(ctx, requestRef, currentTick)
	return args.Get(0).(uint64), args.Error(1)
}

// MockClock is a mock implementation of Clock
type MockClock struct {
	mock.Mock
}

func (m *MockClock) CurrentTick(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
