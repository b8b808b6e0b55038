package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"
	"tokenlottery/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// lotteryService implements the lottery state machine. Every mutating operation stages its
// changes on a copy of the lottery and persists it last; collaborator side effects are undone
// by the enclosing unit of work when any step fails.
type lotteryService struct {
	lotteryRepo    interfaces.LotteryRepository
	ticketRepo     interfaces.TicketRepository
	assetRegistry  interfaces.AssetRegistry
	oracle         interfaces.RandomnessOracle
	ledger         interfaces.Ledger
	clock          interfaces.Clock
	eventPublisher interfaces.EventPublisher
}

// NewLotteryService creates a new lottery service
func NewLotteryService(
	lotteryRepo interfaces.LotteryRepository,
	ticketRepo interfaces.TicketRepository,
	assetRegistry interfaces.AssetRegistry,
	oracle interfaces.RandomnessOracle,
	ledger interfaces.Ledger,
	clock interfaces.Clock,
	eventPublisher interfaces.EventPublisher,
) interfaces.LotteryService {
	return &lotteryService{
		lotteryRepo:    lotteryRepo,
		ticketRepo:     ticketRepo,
		assetRegistry:  assetRegistry,
		oracle:         oracle,
		ledger:         ledger,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// Initialize creates a new lottery
func (s *lotteryService) Initialize(ctx context.Context, params interfaces.InitializeParams) (*entities.Lottery, error) {
	lottery, err := entities.NewLottery(params.ID, params.SaleWindow, params.TicketPrice, params.Authority)
	if err != nil {
		return nil, err
	}
	if params.TicketName != "" {
		lottery.Name = params.TicketName
	}
	if params.Symbol != "" {
		lottery.Symbol = params.Symbol
	}
	if params.URI != "" {
		lottery.URI = params.URI
	}
	if _, ok := entities.PadDisplayName(lottery.NextTicketName()); !ok {
		return nil, fmt.Errorf("%w: ticket name %q", entities.ErrDisplayNameTooLong, lottery.Name)
	}

	existing, err := s.lotteryRepo.GetByID(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing lottery: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: id %d", entities.ErrAlreadyInitialized, params.ID)
	}

	if err := s.lotteryRepo.Create(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to create lottery: %w", err)
	}

	s.publish(events.LotteryInitializedEvent{
		LotteryID:   lottery.ID,
		Authority:   lottery.Authority,
		SaleStart:   lottery.SaleWindow.Start,
		SaleEnd:     lottery.SaleWindow.End,
		TicketPrice: lottery.TicketPrice,
	})

	log.WithFields(log.Fields{
		"lottery_id":   lottery.ID,
		"sale_start":   lottery.SaleWindow.Start,
		"sale_end":     lottery.SaleWindow.End,
		"ticket_price": lottery.TicketPrice,
		"authority":    lottery.Authority,
	}).Info("Lottery initialized")

	return lottery, nil
}

// InitializeCollection registers the ticket collection, owned by the lottery's escrow identity
func (s *lotteryService) InitializeCollection(ctx context.Context, lotteryID int64, caller string) (*entities.Lottery, error) {
	lottery, err := s.lockLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	if !lottery.IsAuthority(caller) {
		return nil, entities.ErrNotAuthorized
	}
	if lottery.HasCollection() {
		return nil, entities.ErrCollectionAlreadyInitialized
	}

	staged := lottery.Clone()
	collectionRef, err := s.assetRegistry.CreateCollection(ctx, staged.EscrowAccount(), staged.Name, entities.AssetMetadata{
		Symbol: staged.Symbol,
		URI:    staged.URI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket collection: %w", err)
	}
	staged.CollectionRef = &collectionRef

	if err := s.lotteryRepo.Update(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	s.publish(events.CollectionInitializedEvent{
		LotteryID:     staged.ID,
		CollectionRef: collectionRef,
		Owner:         staged.EscrowAccount(),
	})

	log.WithFields(log.Fields{
		"lottery_id":     staged.ID,
		"collection_ref": collectionRef,
	}).Info("Ticket collection initialized")

	return staged, nil
}

// BuyTicket charges the purchaser, mints the next ticket and advances the counter
func (s *lotteryService) BuyTicket(ctx context.Context, lotteryID int64, purchaser string) (*interfaces.TicketPurchaseResult, error) {
	if purchaser == "" {
		return nil, errors.New("purchaser is required")
	}

	lottery, err := s.lockLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	tick, err := s.currentTick(ctx)
	if err != nil {
		return nil, err
	}
	if !lottery.IsOpenAt(tick) {
		return nil, fmt.Errorf("%w: tick %d outside [%d, %d]", entities.ErrLotteryNotOpen, tick, lottery.SaleWindow.Start, lottery.SaleWindow.End)
	}
	if !lottery.HasCollection() {
		return nil, entities.ErrCollectionNotInitialized
	}
	if lottery.PoolAmount > math.MaxInt64-lottery.TicketPrice {
		return nil, fmt.Errorf("pool amount would overflow for lottery %d", lottery.ID)
	}

	staged := lottery.Clone()
	sequenceNumber := staged.TicketCount
	ticketName := staged.NextTicketName()

	if err := s.ledger.Transfer(ctx, purchaser, staged.EscrowAccount(), staged.TicketPrice); err != nil {
		return nil, fmt.Errorf("failed to collect ticket payment: %w", err)
	}

	assetRef, err := s.assetRegistry.MintMemberAsset(ctx, *staged.CollectionRef, purchaser, ticketName, entities.AssetMetadata{
		Symbol: staged.Symbol,
		URI:    staged.URI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mint ticket asset: %w", err)
	}

	ticket := &entities.Ticket{
		LotteryID:      staged.ID,
		SequenceNumber: sequenceNumber,
		Owner:          purchaser,
		AssetRef:       assetRef,
		DisplayName:    ticketName,
		PurchasePrice:  staged.TicketPrice,
		PurchaseTick:   tick,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	staged.RecordPurchase()
	if err := s.lotteryRepo.Update(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	s.publish(events.TicketPurchasedEvent{
		LotteryID:      staged.ID,
		SequenceNumber: sequenceNumber,
		Purchaser:      purchaser,
		AssetRef:       assetRef,
		DisplayName:    ticketName,
		Price:          staged.TicketPrice,
		PoolAmount:     staged.PoolAmount,
		Tick:           tick,
	})

	log.WithFields(log.Fields{
		"lottery_id":      staged.ID,
		"sequence_number": sequenceNumber,
		"purchaser":       purchaser,
		"pool_amount":     staged.PoolAmount,
		"tick":            tick,
	}).Info("Ticket purchased")

	return &interfaces.TicketPurchaseResult{
		Ticket:  ticket,
		Lottery: staged,
	}, nil
}

// CommitAWinner binds a randomness request whose commitment is exactly one tick old
func (s *lotteryService) CommitAWinner(ctx context.Context, lotteryID int64, caller, requestRef string) (*entities.Lottery, error) {
	lottery, err := s.lockLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	if !lottery.IsAuthority(caller) {
		return nil, entities.ErrNotAuthorized
	}
	if lottery.WinnerSelected {
		return nil, entities.ErrWinnerChosen
	}

	tick, err := s.currentTick(ctx)
	if err != nil {
		return nil, err
	}

	seedTick, err := s.oracle.GetCommitmentTick(ctx, requestRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read randomness commitment: %w", err)
	}
	if seedTick != tick-1 {
		log.WithFields(log.Fields{
			"lottery_id":  lottery.ID,
			"request_ref": requestRef,
			"seed_tick":   seedTick,
			"tick":        tick,
		}).Warn("Rejected randomness request that is not one tick old")
		return nil, fmt.Errorf("%w: committed at tick %d, current tick %d", entities.ErrRandomnessAlreadyRevealed, seedTick, tick)
	}

	staged := lottery.Clone()
	rebound := staged.HasRandomnessBinding()
	staged.BindRandomness(requestRef)

	if err := s.lotteryRepo.Update(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	s.publish(events.RandomnessCommittedEvent{
		LotteryID:  staged.ID,
		RequestRef: requestRef,
		SeedTick:   seedTick,
		Tick:       tick,
		Rebound:    rebound,
	})

	log.WithFields(log.Fields{
		"lottery_id":  staged.ID,
		"request_ref": requestRef,
		"seed_tick":   seedTick,
		"rebound":     rebound,
	}).Info("Randomness committed")

	return staged, nil
}

// ChooseAWinner consumes the bound randomness exactly once
func (s *lotteryService) ChooseAWinner(ctx context.Context, lotteryID int64, caller, requestRef string) (*interfaces.WinnerSelectionResult, error) {
	lottery, err := s.lockLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	if !lottery.IsBoundTo(requestRef) {
		return nil, entities.ErrIncorrectRandomnessAccount
	}
	if !lottery.IsAuthority(caller) {
		return nil, entities.ErrNotAuthorized
	}

	tick, err := s.currentTick(ctx)
	if err != nil {
		return nil, err
	}
	if !lottery.HasEndedAt(tick) {
		log.WithFields(log.Fields{
			"lottery_id": lottery.ID,
			"tick":       tick,
			"sale_end":   lottery.SaleWindow.End,
		}).Debug("Winner selection attempted before sale end")
		return nil, fmt.Errorf("%w: sale ends at tick %d, current tick %d", entities.ErrLotteryNotOpen, lottery.SaleWindow.End, tick)
	}
	if lottery.WinnerSelected {
		return nil, entities.ErrWinnerChosen
	}
	if lottery.TicketCount == 0 {
		return nil, entities.ErrNoTickets
	}

	value, err := s.oracle.GetRevealedValue(ctx, requestRef, tick)
	if errors.Is(err, entities.ErrNotYetResolved) {
		return nil, fmt.Errorf("%w: request %s at tick %d", entities.ErrRandomnessNotResolved, requestRef, tick)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read revealed randomness: %w", err)
	}

	winnerIndex, err := SelectWinnerIndex(value, lottery.TicketCount)
	if err != nil {
		return nil, err
	}
	winner, err := s.ticketRepo.GetBySequence(ctx, lottery.ID, winnerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get winning ticket: %w", err)
	}
	if winner == nil {
		return nil, fmt.Errorf("winning ticket %d of lottery %d is missing", winnerIndex, lottery.ID)
	}

	staged := lottery.Clone()
	if err := staged.SelectWinner(winnerIndex); err != nil {
		return nil, err
	}
	if err := s.lotteryRepo.Update(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	winningTicket := staged.WinningTicketName()
	s.publish(events.WinnerChosenEvent{
		LotteryID:     staged.ID,
		RequestRef:    requestRef,
		RandomValue:   value,
		TicketCount:   staged.TicketCount,
		WinnerIndex:   winnerIndex,
		WinningTicket: winningTicket,
		AssetRef:      winner.AssetRef,
		PoolAmount:    staged.PoolAmount,
	})

	log.WithFields(log.Fields{
		"lottery_id":   staged.ID,
		"random_value": value,
		"ticket_count": staged.TicketCount,
		"winner_index": winnerIndex,
		"asset_ref":    winner.AssetRef,
	}).Info("Winner chosen")

	return &interfaces.WinnerSelectionResult{
		RandomValue:     value,
		WinnerIndex:     winnerIndex,
		WinningTicket:   winningTicket,
		WinningAssetRef: winner.AssetRef,
		Lottery:         staged,
	}, nil
}

// ClaimPrize verifies the claimant holds the winning ticket asset and pays out the pool
func (s *lotteryService) ClaimPrize(ctx context.Context, lotteryID int64, claimant, assetRef string) (*interfaces.PrizeClaimResult, error) {
	lottery, err := s.lockLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	if !lottery.WinnerSelected {
		return nil, entities.ErrWinnerNotChosen
	}
	if err := s.verifyWinningTicket(ctx, lottery, claimant, assetRef); err != nil {
		return nil, err
	}

	staged := lottery.Clone()
	payout, err := staged.Settle(claimant)
	if err != nil {
		return nil, err
	}

	if payout > 0 {
		if err := s.ledger.Transfer(ctx, staged.EscrowAccount(), claimant, payout); err != nil {
			return nil, fmt.Errorf("failed to pay out prize: %w", err)
		}
	}

	if err := s.lotteryRepo.Update(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	s.publish(events.PrizeClaimedEvent{
		LotteryID: staged.ID,
		Claimant:  claimant,
		AssetRef:  assetRef,
		Amount:    payout,
	})

	log.WithFields(log.Fields{
		"lottery_id": staged.ID,
		"claimant":   claimant,
		"asset_ref":  assetRef,
		"amount":     payout,
	}).Info("Prize claimed")

	return &interfaces.PrizeClaimResult{
		Amount:  payout,
		Lottery: staged,
	}, nil
}

// GetLottery returns the current state of a lottery
func (s *lotteryService) GetLottery(ctx context.Context, lotteryID int64) (*entities.Lottery, error) {
	lottery, err := s.lotteryRepo.GetByID(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery == nil {
		return nil, entities.ErrLotteryNotFound
	}
	return lottery, nil
}

// ListTickets returns every ticket issued for a lottery
func (s *lotteryService) ListTickets(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error) {
	if _, err := s.GetLottery(ctx, lotteryID); err != nil {
		return nil, err
	}
	tickets, err := s.ticketRepo.ListByLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// GetParticipants returns the ticket counts per purchaser of a lottery
func (s *lotteryService) GetParticipants(ctx context.Context, lotteryID int64) (*interfaces.ParticipantSummary, error) {
	lottery, err := s.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	sold, err := s.ticketRepo.CountByLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	if sold != lottery.TicketCount {
		log.WithFields(log.Fields{
			"lottery_id":   lotteryID,
			"ticket_count": lottery.TicketCount,
			"tickets_sold": sold,
		}).Warn("Ticket count does not match issued tickets")
	}

	participants, err := s.ticketRepo.GetParticipantSummary(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant summary: %w", err)
	}

	return &interfaces.ParticipantSummary{
		Lottery:      lottery,
		TicketsSold:  sold,
		Participants: participants,
	}, nil
}

// verifyWinningTicket checks collection membership, the embedded ticket name and possession
func (s *lotteryService) verifyWinningTicket(ctx context.Context, lottery *entities.Lottery, claimant, assetRef string) error {
	if !lottery.HasCollection() {
		return entities.ErrNotVerifiedTicket
	}

	membership, err := s.assetRegistry.VerifyMembership(ctx, assetRef, *lottery.CollectionRef)
	if errors.Is(err, entities.ErrAssetNotFound) {
		return fmt.Errorf("%w: unknown asset %s", entities.ErrIncorrectTicket, assetRef)
	}
	if err != nil {
		return fmt.Errorf("failed to verify collection membership: %w", err)
	}
	switch membership {
	case entities.MembershipVerified:
	case entities.MembershipOtherCollection:
		return fmt.Errorf("%w: %s belongs to another collection", entities.ErrIncorrectTicket, assetRef)
	default:
		return entities.ErrNotVerifiedTicket
	}

	displayName, err := s.assetRegistry.GetDisplayName(ctx, assetRef)
	if err != nil {
		return fmt.Errorf("failed to read ticket name: %w", err)
	}
	if entities.NormalizeDisplayName(displayName) != lottery.WinningTicketName() {
		log.WithFields(log.Fields{
			"lottery_id":     lottery.ID,
			"asset_ref":      assetRef,
			"ticket_name":    entities.NormalizeDisplayName(displayName),
			"winning_ticket": lottery.WinningTicketName(),
		}).Debug("Claim with non-winning ticket")
		return entities.ErrIncorrectTicket
	}

	balance, err := s.assetRegistry.GetOwnerBalance(ctx, assetRef, claimant)
	if err != nil {
		return fmt.Errorf("failed to read ticket holding: %w", err)
	}
	if balance <= 0 {
		return fmt.Errorf("%w: %s does not hold %s", entities.ErrIncorrectTicket, claimant, assetRef)
	}

	if lottery.Settled {
		return entities.ErrAlreadySettled
	}
	return nil
}

// lockLottery loads the lottery with a row lock, so operations on one lottery are serialized
func (s *lotteryService) lockLottery(ctx context.Context, lotteryID int64) (*entities.Lottery, error) {
	lottery, err := s.lotteryRepo.GetByIDForUpdate(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock lottery: %w", err)
	}
	if lottery == nil {
		return nil, fmt.Errorf("%w: id %d", entities.ErrLotteryNotFound, lotteryID)
	}
	return lottery, nil
}

func (s *lotteryService) currentTick(ctx context.Context) (int64, error) {
	tick, err := s.clock.CurrentTick(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read logical clock: %w", err)
	}
	return tick, nil
}

// publish queues an event; failures are logged and never abort the operation
func (s *lotteryService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish event")
	}
}
