package application

import (
	"context"

	"tokenlottery/application/dto"
)

// LotteryCommands is the operation surface exposed to transports
type LotteryCommands interface {
	Initialize(ctx context.Context, req dto.InitializeRequest) (*dto.LotteryView, error)
	InitializeCollection(ctx context.Context, req dto.InitializeCollectionRequest) (*dto.LotteryView, error)
	BuyTicket(ctx context.Context, req dto.BuyTicketRequest) (*dto.TicketPurchaseView, error)
	CommitAWinner(ctx context.Context, req dto.CommitAWinnerRequest) (*dto.LotteryView, error)
	ChooseAWinner(ctx context.Context, req dto.ChooseAWinnerRequest) (*dto.WinnerSelectionView, error)
	ClaimPrize(ctx context.Context, req dto.ClaimPrizeRequest) (*dto.PrizeClaimView, error)
	TransferTicket(ctx context.Context, req dto.TransferTicketRequest) (*dto.TicketView, error)
	GetLottery(ctx context.Context, lotteryID int64) (*dto.LotteryView, error)
	ListTickets(ctx context.Context, lotteryID int64) ([]dto.TicketView, error)
	Participants(ctx context.Context, lotteryID int64) (*dto.ParticipantsView, error)
	Balance(ctx context.Context, account string) (*dto.BalanceView, error)
}

// RandomnessFeed consumes the commit and reveal messages published by the randomness oracle
type RandomnessFeed interface {
	// HandleCommitted records a new commitment
	HandleCommitted(ctx context.Context, msg dto.RandomnessCommitted) error

	// HandleRevealed records the seed of a committed request once it matches the commitment
	HandleRevealed(ctx context.Context, msg dto.RandomnessRevealed) error
}
