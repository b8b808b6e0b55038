package dto

import (
	"time"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/interfaces"
)

// InitializeRequest carries the parameters of a new lottery. Empty ticket metadata falls
// back to the configured defaults.
type InitializeRequest struct {
	LotteryID   int64  `json:"lottery_id"`
	SaleStart   int64  `json:"sale_start"`
	SaleEnd     int64  `json:"sale_end"`
	TicketPrice int64  `json:"ticket_price"`
	Authority   string `json:"authority"`
	TicketName  string `json:"ticket_name,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	URI         string `json:"uri,omitempty"`
}

type InitializeCollectionRequest struct {
	LotteryID int64  `json:"lottery_id"`
	Caller    string `json:"caller"`
}

type BuyTicketRequest struct {
	LotteryID int64  `json:"lottery_id"`
	Purchaser string `json:"purchaser"`
}

type CommitAWinnerRequest struct {
	LotteryID  int64  `json:"lottery_id"`
	Caller     string `json:"caller"`
	RequestRef string `json:"request_ref"`
}

type ChooseAWinnerRequest struct {
	LotteryID  int64  `json:"lottery_id"`
	Caller     string `json:"caller"`
	RequestRef string `json:"request_ref"`
}

type ClaimPrizeRequest struct {
	LotteryID int64  `json:"lottery_id"`
	Claimant  string `json:"claimant"`
	AssetRef  string `json:"asset_ref"`
}

// TransferTicketRequest moves a ticket asset to a new holder
type TransferTicketRequest struct {
	AssetRef string `json:"asset_ref"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// LotteryView is the externally visible state of a lottery
type LotteryView struct {
	ID                int64   `json:"id"`
	TicketName        string  `json:"ticket_name"`
	Symbol            string  `json:"symbol"`
	URI               string  `json:"uri"`
	SaleStart         int64   `json:"sale_start"`
	SaleEnd           int64   `json:"sale_end"`
	TicketPrice       int64   `json:"ticket_price"`
	TicketCount       int64   `json:"ticket_count"`
	PoolAmount        int64   `json:"pool_amount"`
	Authority         string  `json:"authority"`
	EscrowAccount     string  `json:"escrow_account"`
	CollectionRef     *string `json:"collection_ref,omitempty"`
	RandomnessBinding *string `json:"randomness_binding,omitempty"`
	WinnerSelected    bool    `json:"winner_selected"`
	WinnerIndex       *int64  `json:"winner_index,omitempty"`
	WinningTicketName string  `json:"winning_ticket_name,omitempty"`
	Settled           bool    `json:"settled"`
	SettledBy         *string `json:"settled_by,omitempty"`
}

// TicketView is the externally visible state of a ticket
type TicketView struct {
	LotteryID      int64     `json:"lottery_id"`
	SequenceNumber int64     `json:"sequence_number"`
	Name           string    `json:"name"`
	AssetRef       string    `json:"asset_ref"`
	Purchaser      string    `json:"purchaser"`
	PurchasePrice  int64     `json:"purchase_price"`
	PurchaseTick   int64     `json:"purchase_tick"`
	PurchasedAt    time.Time `json:"purchased_at"`
	Winner         bool      `json:"winner,omitempty"`
}

type TicketPurchaseView struct {
	Ticket  TicketView  `json:"ticket"`
	Lottery LotteryView `json:"lottery"`
}

type WinnerSelectionView struct {
	RandomValue     uint64      `json:"random_value"`
	WinnerIndex     int64       `json:"winner_index"`
	WinningTicket   string      `json:"winning_ticket"`
	WinningAssetRef string      `json:"winning_asset_ref"`
	Lottery         LotteryView `json:"lottery"`
}

// ParticipantView is one purchaser's ticket count
type ParticipantView struct {
	Purchaser   string `json:"purchaser"`
	TicketCount int64  `json:"ticket_count"`
}

// ParticipantsView lists purchasers by ticket count, largest first
type ParticipantsView struct {
	LotteryID    int64             `json:"lottery_id"`
	TicketsSold  int64             `json:"tickets_sold"`
	PoolAmount   int64             `json:"pool_amount"`
	Participants []ParticipantView `json:"participants"`
}

type PrizeClaimView struct {
	Amount  int64       `json:"amount"`
	Lottery LotteryView `json:"lottery"`
}

// BalanceView is the ledger balance of an account
type BalanceView struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// LotteryToView converts a lottery entity to its view
func LotteryToView(l *entities.Lottery) LotteryView {
	view := LotteryView{
		ID:                l.ID,
		TicketName:        l.Name,
		Symbol:            l.Symbol,
		URI:               l.URI,
		SaleStart:         l.SaleWindow.Start,
		SaleEnd:           l.SaleWindow.End,
		TicketPrice:       l.TicketPrice,
		TicketCount:       l.TicketCount,
		PoolAmount:        l.PoolAmount,
		Authority:         l.Authority,
		EscrowAccount:     l.EscrowAccount(),
		CollectionRef:     l.CollectionRef,
		RandomnessBinding: l.RandomnessBinding,
		WinnerSelected:    l.WinnerSelected,
		WinnerIndex:       l.WinnerIndex,
		Settled:           l.Settled,
		SettledBy:         l.SettledBy,
		WinningTicketName: l.WinningTicketName(),
	}
	return view
}

// TicketToView converts a ticket entity to its view, stripping display name padding
func TicketToView(t *entities.Ticket) TicketView {
	return TicketView{
		LotteryID:      t.LotteryID,
		SequenceNumber: t.SequenceNumber,
		Name:           entities.NormalizeDisplayName(t.DisplayName),
		AssetRef:       t.AssetRef,
		Purchaser:      t.Owner,
		PurchasePrice:  t.PurchasePrice,
		PurchaseTick:   t.PurchaseTick,
		PurchasedAt:    t.PurchasedAt,
	}
}

// ParticipantsToView converts a participant summary to its view
func ParticipantsToView(summary *interfaces.ParticipantSummary) ParticipantsView {
	view := ParticipantsView{
		LotteryID:    summary.Lottery.ID,
		TicketsSold:  summary.TicketsSold,
		PoolAmount:   summary.Lottery.PoolAmount,
		Participants: make([]ParticipantView, len(summary.Participants)),
	}
	for i, p := range summary.Participants {
		view.Participants[i] = ParticipantView{Purchaser: p.Owner, TicketCount: p.TicketCount}
	}
	return view
}
