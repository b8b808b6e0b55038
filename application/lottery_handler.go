package application

import (
	"context"
	"fmt"

	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"
	"tokenlottery/domain/interfaces"
	"tokenlottery/domain/services"

	log "github.com/sirupsen/logrus"
)

// TicketDefaults is the ticket metadata used when an initialize request leaves it empty
type TicketDefaults struct {
	Name   string
	Symbol string
	URI    string
}

// LotteryHandler runs every lottery operation in its own unit of work. The lottery row is
// locked for the duration of a mutating operation, so operations on one lottery are
// serialized while different lotteries proceed independently.
type LotteryHandler struct {
	uowFactory UnitOfWorkFactory
	clock      interfaces.Clock
	defaults   TicketDefaults
}

// NewLotteryHandler creates a new lottery handler
func NewLotteryHandler(uowFactory UnitOfWorkFactory, clock interfaces.Clock, defaults TicketDefaults) *LotteryHandler {
	return &LotteryHandler{
		uowFactory: uowFactory,
		clock:      clock,
		defaults:   defaults,
	}
}

// Initialize creates a lottery
func (h *LotteryHandler) Initialize(ctx context.Context, req dto.InitializeRequest) (*dto.LotteryView, error) {
	params := interfaces.InitializeParams{
		ID:          req.LotteryID,
		SaleWindow:  entities.SaleWindow{Start: req.SaleStart, End: req.SaleEnd},
		TicketPrice: req.TicketPrice,
		Authority:   req.Authority,
		TicketName:  firstNonEmpty(req.TicketName, h.defaults.Name),
		Symbol:      firstNonEmpty(req.Symbol, h.defaults.Symbol),
		URI:         firstNonEmpty(req.URI, h.defaults.URI),
	}

	var view dto.LotteryView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		lottery, err := svc.Initialize(ctx, params)
		if err != nil {
			return err
		}
		view = dto.LotteryToView(lottery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// InitializeCollection registers the ticket collection of a lottery
func (h *LotteryHandler) InitializeCollection(ctx context.Context, req dto.InitializeCollectionRequest) (*dto.LotteryView, error) {
	var view dto.LotteryView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		lottery, err := svc.InitializeCollection(ctx, req.LotteryID, req.Caller)
		if err != nil {
			return err
		}
		view = dto.LotteryToView(lottery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// BuyTicket sells the next ticket of a lottery to the purchaser
func (h *LotteryHandler) BuyTicket(ctx context.Context, req dto.BuyTicketRequest) (*dto.TicketPurchaseView, error) {
	var view dto.TicketPurchaseView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		result, err := svc.BuyTicket(ctx, req.LotteryID, req.Purchaser)
		if err != nil {
			return err
		}
		view = dto.TicketPurchaseView{
			Ticket:  dto.TicketToView(result.Ticket),
			Lottery: dto.LotteryToView(result.Lottery),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CommitAWinner binds a lottery to a fresh randomness request
func (h *LotteryHandler) CommitAWinner(ctx context.Context, req dto.CommitAWinnerRequest) (*dto.LotteryView, error) {
	var view dto.LotteryView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		lottery, err := svc.CommitAWinner(ctx, req.LotteryID, req.Caller, req.RequestRef)
		if err != nil {
			return err
		}
		view = dto.LotteryToView(lottery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ChooseAWinner consumes the bound randomness and fixes the winning ticket
func (h *LotteryHandler) ChooseAWinner(ctx context.Context, req dto.ChooseAWinnerRequest) (*dto.WinnerSelectionView, error) {
	var view dto.WinnerSelectionView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		result, err := svc.ChooseAWinner(ctx, req.LotteryID, req.Caller, req.RequestRef)
		if err != nil {
			return err
		}
		view = dto.WinnerSelectionView{
			RandomValue:     result.RandomValue,
			WinnerIndex:     result.WinnerIndex,
			WinningTicket:   result.WinningTicket,
			WinningAssetRef: result.WinningAssetRef,
			Lottery:         dto.LotteryToView(result.Lottery),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ClaimPrize pays the pool to the holder of the winning ticket
func (h *LotteryHandler) ClaimPrize(ctx context.Context, req dto.ClaimPrizeRequest) (*dto.PrizeClaimView, error) {
	var view dto.PrizeClaimView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		result, err := svc.ClaimPrize(ctx, req.LotteryID, req.Claimant, req.AssetRef)
		if err != nil {
			return err
		}
		view = dto.PrizeClaimView{
			Amount:  result.Amount,
			Lottery: dto.LotteryToView(result.Lottery),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// TransferTicket moves a ticket asset to a new holder. Whoever holds the winning asset at
// claim time collects the prize.
func (h *LotteryHandler) TransferTicket(ctx context.Context, req dto.TransferTicketRequest) (*dto.TicketView, error) {
	if req.To == "" {
		return nil, fmt.Errorf("%w: empty recipient", entities.ErrInvalidRecipient)
	}

	var view dto.TicketView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		ticket, err := uow.TicketRepository().GetByAssetRef(ctx, req.AssetRef)
		if err != nil {
			return fmt.Errorf("failed to get ticket: %w", err)
		}
		if ticket == nil {
			return fmt.Errorf("%w: %s is not a ticket", entities.ErrAssetNotFound, req.AssetRef)
		}

		if err := uow.AssetRegistry().TransferAsset(ctx, req.AssetRef, req.From, req.To); err != nil {
			return fmt.Errorf("failed to transfer ticket: %w", err)
		}

		if err := uow.EventBus().Publish(events.TicketTransferredEvent{
			LotteryID:      ticket.LotteryID,
			SequenceNumber: ticket.SequenceNumber,
			AssetRef:       ticket.AssetRef,
			From:           req.From,
			To:             req.To,
		}); err != nil {
			log.WithError(err).Error("Failed to publish ticket transferred event")
		}

		log.WithFields(log.Fields{
			"lottery_id": ticket.LotteryID,
			"sequence":   ticket.SequenceNumber,
			"from":       req.From,
			"to":         req.To,
		}).Info("Ticket transferred")

		view = dto.TicketToView(ticket)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetLottery returns the current state of a lottery
func (h *LotteryHandler) GetLottery(ctx context.Context, lotteryID int64) (*dto.LotteryView, error) {
	var view dto.LotteryView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		lottery, err := svc.GetLottery(ctx, lotteryID)
		if err != nil {
			return err
		}
		view = dto.LotteryToView(lottery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListTickets returns every ticket of a lottery ordered by sequence number
func (h *LotteryHandler) ListTickets(ctx context.Context, lotteryID int64) ([]dto.TicketView, error) {
	var views []dto.TicketView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		lottery, err := svc.GetLottery(ctx, lotteryID)
		if err != nil {
			return err
		}
		tickets, err := svc.ListTickets(ctx, lotteryID)
		if err != nil {
			return err
		}
		views = make([]dto.TicketView, len(tickets))
		for i, ticket := range tickets {
			views[i] = dto.TicketToView(ticket)
			views[i].Winner = lottery.WinnerSelected && ticket.IsWinner(*lottery.WinnerIndex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Participants returns how many tickets each purchaser bought
func (h *LotteryHandler) Participants(ctx context.Context, lotteryID int64) (*dto.ParticipantsView, error) {
	var view dto.ParticipantsView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		summary, err := svc.GetParticipants(ctx, lotteryID)
		if err != nil {
			return err
		}
		view = dto.ParticipantsToView(summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Balance returns the ledger balance of an account
func (h *LotteryHandler) Balance(ctx context.Context, account string) (*dto.BalanceView, error) {
	var view dto.BalanceView
	err := h.inTransaction(ctx, func(uow UnitOfWork, svc interfaces.LotteryService) error {
		balance, err := uow.Ledger().Balance(ctx, account)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		view = dto.BalanceView{Account: account, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// inTransaction runs fn against a lottery service bound to a fresh unit of work. The unit
// of work commits only when fn succeeds; otherwise every write and queued event is dropped.
func (h *LotteryHandler) inTransaction(ctx context.Context, fn func(uow UnitOfWork, svc interfaces.LotteryService) error) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := recover(); err != nil {
			uow.Rollback()
			panic(err)
		}
	}()

	svc := services.NewLotteryService(
		uow.LotteryRepository(),
		uow.TicketRepository(),
		uow.AssetRegistry(),
		uow.RandomnessStore(),
		uow.Ledger(),
		h.clock,
		uow.EventBus(),
	)

	if err := fn(uow, svc); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
