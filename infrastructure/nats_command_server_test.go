package infrastructure

import (
	"context"
	"fmt"
	"testing"

	"tokenlottery/application"
	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ application.LotteryCommands = (*MockLotteryCommands)(nil)

// MockLotteryCommands is a mock implementation of application.LotteryCommands
type MockLotteryCommands struct {
	mock.Mock
}

func (m *MockLotteryCommands) Initialize(ctx context.Context, req dto.InitializeRequest) (*dto.LotteryView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LotteryView), args.Error(1)
}

func (m *MockLotteryCommands) InitializeCollection(ctx context.Context, req dto.InitializeCollectionRequest) (*dto.LotteryView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LotteryView), args.Error(1)
}

func (m *MockLotteryCommands) BuyTicket(ctx context.Context, req dto.BuyTicketRequest) (*dto.TicketPurchaseView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TicketPurchaseView), args.Error(1)
}

func (m *MockLotteryCommands) CommitAWinner(ctx context.Context, req dto.CommitAWinnerRequest) (*dto.LotteryView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LotteryView), args.Error(1)
}

func (m *MockLotteryCommands) ChooseAWinner(ctx context.Context, req dto.ChooseAWinnerRequest) (*dto.WinnerSelectionView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.WinnerSelectionView), args.Error(1)
}

func (m *MockLotteryCommands) ClaimPrize(ctx context.Context, req dto.ClaimPrizeRequest) (*dto.PrizeClaimView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PrizeClaimView), args.Error(1)
}

func (m *MockLotteryCommands) TransferTicket(ctx context.Context, req dto.TransferTicketRequest) (*dto.TicketView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TicketView), args.Error(1)
}

func (m *MockLotteryCommands) GetLottery(ctx context.Context, lotteryID int64) (*dto.LotteryView, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LotteryView), args.Error(1)
}

func (m *MockLotteryCommands) ListTickets(ctx context.Context, lotteryID int64) ([]dto.TicketView, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.TicketView), args.Error(1)
}

func (m *MockLotteryCommands) Participants(ctx context.Context, lotteryID int64) (*dto.ParticipantsView, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ParticipantsView), args.Error(1)
}

func (m *MockLotteryCommands) Balance(ctx context.Context, account string) (*dto.BalanceView, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BalanceView), args.Error(1)
}

func TestNATSCommandServer_Dispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("buy ticket", func(t *testing.T) {
		t.Parallel()
		commands := new(MockLotteryCommands)
		server := NewNATSCommandServer(commands, nil)
		view := &dto.TicketPurchaseView{Ticket: dto.TicketView{SequenceNumber: 4}}
		commands.On("BuyTicket", ctx, dto.BuyTicketRequest{LotteryID: 9, Purchaser: "alice"}).Return(view, nil)

		resp := server.Dispatch(ctx, OpBuyTicket, []byte(`{"lottery_id":9,"purchaser":"alice"}`))

		assert.True(t, resp.Success)
		assert.Equal(t, view, resp.Data)
		assert.Empty(t, resp.Code)
		commands.AssertExpectations(t)
	})

	t.Run("domain error carries its code", func(t *testing.T) {
		t.Parallel()
		commands := new(MockLotteryCommands)
		server := NewNATSCommandServer(commands, nil)
		commands.On("ClaimPrize", ctx, mock.Anything).Return(nil, fmt.Errorf("claim: %w", entities.ErrIncorrectTicket))

		resp := server.Dispatch(ctx, OpClaimPrize, []byte(`{"lottery_id":1,"claimant":"bob","asset_ref":"a"}`))

		assert.False(t, resp.Success)
		assert.Equal(t, "IncorrectTicket", resp.Code)
		assert.False(t, resp.Retryable)
	})

	t.Run("unresolved randomness is retryable", func(t *testing.T) {
		t.Parallel()
		commands := new(MockLotteryCommands)
		server := NewNATSCommandServer(commands, nil)
		commands.On("ChooseAWinner", ctx, mock.Anything).Return(nil, entities.ErrRandomnessNotResolved)

		resp := server.Dispatch(ctx, OpChooseAWinner, []byte(`{"lottery_id":1,"caller":"op","request_ref":"r"}`))

		assert.Equal(t, "RandomnessNotResolved", resp.Code)
		assert.True(t, resp.Retryable)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		server := NewNATSCommandServer(new(MockLotteryCommands), nil)

		resp := server.Dispatch(ctx, OpInitialize, []byte(`{`))

		assert.False(t, resp.Success)
		assert.Equal(t, "BadRequest", resp.Code)
	})

	t.Run("unknown operation", func(t *testing.T) {
		t.Parallel()
		server := NewNATSCommandServer(new(MockLotteryCommands), nil)

		resp := server.Dispatch(ctx, "drain_pool", []byte(`{}`))

		assert.Equal(t, "UnknownOperation", resp.Code)
	})

	t.Run("queries", func(t *testing.T) {
		t.Parallel()
		commands := new(MockLotteryCommands)
		server := NewNATSCommandServer(commands, nil)
		commands.On("GetLottery", ctx, int64(5)).Return(&dto.LotteryView{ID: 5}, nil)
		commands.On("ListTickets", ctx, int64(5)).Return([]dto.TicketView{{SequenceNumber: 0}}, nil)
		commands.On("Balance", ctx, "lottery:5").Return(&dto.BalanceView{Account: "lottery:5", Balance: 20}, nil)
		commands.On("Participants", ctx, int64(5)).Return(&dto.ParticipantsView{LotteryID: 5, TicketsSold: 2}, nil)

		require.True(t, server.Dispatch(ctx, OpGet, []byte(`{"lottery_id":5}`)).Success)
		require.True(t, server.Dispatch(ctx, OpTickets, []byte(`{"lottery_id":5}`)).Success)
		participants := server.Dispatch(ctx, OpParticipants, []byte(`{"lottery_id":5}`))
		require.True(t, participants.Success)
		assert.Equal(t, int64(2), participants.Data.(*dto.ParticipantsView).TicketsSold)
		resp := server.Dispatch(ctx, OpBalance, []byte(`{"account":"lottery:5"}`))
		require.True(t, resp.Success)
		assert.Equal(t, int64(20), resp.Data.(*dto.BalanceView).Balance)
		commands.AssertExpectations(t)
	})

	t.Run("unexpected error is internal", func(t *testing.T) {
		t.Parallel()
		commands := new(MockLotteryCommands)
		server := NewNATSCommandServer(commands, nil)
		commands.On("GetLottery", ctx, int64(1)).Return(nil, fmt.Errorf("failed to begin transaction: connection refused"))

		resp := server.Dispatch(ctx, OpGet, []byte(`{"lottery_id":1}`))

		assert.Equal(t, "Internal", resp.Code)
	})
}

func TestNATSCommandServer_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	commands := new(MockLotteryCommands)
	metrics := NewCommandMetrics(prometheus.NewRegistry())
	server := NewNATSCommandServer(commands, metrics)
	commands.On("GetLottery", ctx, int64(1)).Return(&dto.LotteryView{ID: 1}, nil)
	commands.On("GetLottery", ctx, int64(2)).Return(nil, entities.ErrLotteryNotFound)

	server.Dispatch(ctx, OpGet, []byte(`{"lottery_id":1}`))
	server.Dispatch(ctx, OpGet, []byte(`{"lottery_id":1}`))
	server.Dispatch(ctx, OpGet, []byte(`{"lottery_id":2}`))

	assert.Equal(t, float64(2), promtestutil.ToFloat64(metrics.commandsTotal.WithLabelValues(OpGet, "OK")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.commandsTotal.WithLabelValues(OpGet, "LotteryNotFound")))
}

func TestNATSCommandServer_Metrics_UnknownOperationsShareOneLabel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics := NewCommandMetrics(prometheus.NewRegistry())
	server := NewNATSCommandServer(new(MockLotteryCommands), metrics)

	for _, op := range []string{"drop_tables", "x1", "x2", "x3"} {
		resp := server.Dispatch(ctx, op, []byte(`{}`))
		require.False(t, resp.Success)
		assert.Equal(t, "UnknownOperation", resp.Code)
	}

	assert.Equal(t, float64(4), promtestutil.ToFloat64(metrics.commandsTotal.WithLabelValues(unknownOpLabel, "UnknownOperation")))
	assert.Equal(t, 1, promtestutil.CollectAndCount(metrics.commandsTotal))
	assert.Equal(t, 1, promtestutil.CollectAndCount(metrics.commandDuration))
}
