package application

import (
	"context"

	"tokenlottery/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations.
// Every collaborator it hands out works on the same transaction.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and publishes the events queued during it
	Commit() error

	// Rollback rolls back the transaction and drops the events queued during it
	Rollback() error

	// Repository getters
	LotteryRepository() interfaces.LotteryRepository
	TicketRepository() interfaces.TicketRepository
	Ledger() interfaces.LedgerStore
	AssetRegistry() interfaces.AssetRegistryStore
	RandomnessStore() interfaces.RandomnessStore
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
