package interfaces

import (
	"context"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"
)

// LotteryRepository defines the interface for lottery state storage
type LotteryRepository interface {
	// Create stores a new lottery. Returns entities.ErrAlreadyInitialized if the ID is taken.
	Create(ctx context.Context, lottery *entities.Lottery) error

	// GetByID retrieves a lottery by its ID, nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Lottery, error)

	// GetByIDForUpdate retrieves a lottery and locks it until the enclosing transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Lottery, error)

	// Update persists every mutable field of the lottery
	Update(ctx context.Context, lottery *entities.Lottery) error

	// GetPendingSelection returns lotteries whose sale ended at or before tick, that have a
	// randomness binding and no winner yet
	GetPendingSelection(ctx context.Context, tick int64, authority string) ([]*entities.Lottery, error)
}

// TicketRepository defines the interface for ticket storage
type TicketRepository interface {
	// Create stores a ticket; (lottery, sequence number) and asset reference are unique
	Create(ctx context.Context, ticket *entities.Ticket) error

	// GetBySequence returns the ticket with the given sequence number, nil if none
	GetBySequence(ctx context.Context, lotteryID, sequenceNumber int64) (*entities.Ticket, error)

	// GetByAssetRef returns the ticket represented by the asset, nil if none
	GetByAssetRef(ctx context.Context, assetRef string) (*entities.Ticket, error)

	// ListByLottery returns all tickets of a lottery ordered by sequence number
	ListByLottery(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error)

	// CountByLottery returns the number of tickets issued for a lottery
	CountByLottery(ctx context.Context, lotteryID int64) (int64, error)

	// GetParticipantSummary returns ticket counts per purchaser
	GetParticipantSummary(ctx context.Context, lotteryID int64) ([]*entities.TicketParticipantInfo, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds published events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every pending event; called after commit
	Flush(ctx context.Context) error

	// Discard drops every pending event; called on rollback
	Discard()
}
