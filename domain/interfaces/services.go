package interfaces

import (
	"context"

	"tokenlottery/domain/entities"
)

// InitializeParams holds the immutable configuration of a new lottery
type InitializeParams struct {
	ID          int64
	SaleWindow  entities.SaleWindow
	TicketPrice int64
	Authority   string

	// Optional ticket metadata, defaults from entities when empty
	TicketName string
	Symbol     string
	URI        string
}

// TicketPurchaseResult contains the result of buying a ticket
type TicketPurchaseResult struct {
	Ticket  *entities.Ticket
	Lottery *entities.Lottery
}

// WinnerSelectionResult contains the result of choosing a winner
type WinnerSelectionResult struct {
	RandomValue     uint64
	WinnerIndex     int64
	WinningTicket   string
	WinningAssetRef string
	Lottery         *entities.Lottery
}

// ParticipantSummary lists how many tickets each purchaser bought
type ParticipantSummary struct {
	Lottery      *entities.Lottery
	TicketsSold  int64
	Participants []*entities.TicketParticipantInfo
}

// PrizeClaimResult contains the result of a successful claim
type PrizeClaimResult struct {
	Amount  int64
	Lottery *entities.Lottery
}

// LotteryService defines the lottery state machine
type LotteryService interface {
	// Initialize creates a lottery with zeroed counters
	Initialize(ctx context.Context, params InitializeParams) (*entities.Lottery, error)

	// InitializeCollection registers the lottery's ticket collection with the asset registry
	InitializeCollection(ctx context.Context, lotteryID int64, caller string) (*entities.Lottery, error)

	// BuyTicket charges the ticket price and mints the next ticket to the purchaser
	BuyTicket(ctx context.Context, lotteryID int64, purchaser string) (*TicketPurchaseResult, error)

	// CommitAWinner binds the lottery to a randomness request committed one tick ago
	CommitAWinner(ctx context.Context, lotteryID int64, caller, requestRef string) (*entities.Lottery, error)

	// ChooseAWinner consumes the bound randomness and fixes the winning ticket index
	ChooseAWinner(ctx context.Context, lotteryID int64, caller, requestRef string) (*WinnerSelectionResult, error)

	// ClaimPrize pays the pool to the holder of the winning ticket asset
	ClaimPrize(ctx context.Context, lotteryID int64, claimant, assetRef string) (*PrizeClaimResult, error)

	// GetLottery returns the current state of a lottery
	GetLottery(ctx context.Context, lotteryID int64) (*entities.Lottery, error)

	// ListTickets returns every ticket issued for a lottery
	ListTickets(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error)

	// GetParticipants returns the ticket counts per purchaser of a lottery
	GetParticipants(ctx context.Context, lotteryID int64) (*ParticipantSummary, error)
}
