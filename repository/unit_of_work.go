package repository

import (
	"context"
	"errors"
	"fmt"

	"tokenlottery/application"
	"tokenlottery/database"
	"tokenlottery/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	lotteryRepo            interfaces.LotteryRepository
	ticketRepo             interfaces.TicketRepository
	ledger                 interfaces.LedgerStore
	assetRegistry          interfaces.AssetRegistryStore
	randomnessStore        interfaces.RandomnessStore
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork that flushes transactionalPublisher on commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Every repository shares the transaction
	u.lotteryRepo = NewLotteryRepository(tx)
	u.ticketRepo = NewTicketRepository(tx)
	u.ledger = NewLedgerRepository(tx)
	u.assetRegistry = NewAssetRegistryRepository(tx)
	u.randomnessStore = NewRandomnessRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit. The transaction is already durable,
	// so publishing failures are only logged.
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// LotteryRepository returns the lottery repository for this unit of work
func (u *unitOfWork) LotteryRepository() interfaces.LotteryRepository {
	u.mustBegin()
	return u.lotteryRepo
}

// TicketRepository returns the ticket repository for this unit of work
func (u *unitOfWork) TicketRepository() interfaces.TicketRepository {
	u.mustBegin()
	return u.ticketRepo
}

// Ledger returns the ledger for this unit of work
func (u *unitOfWork) Ledger() interfaces.LedgerStore {
	u.mustBegin()
	return u.ledger
}

// AssetRegistry returns the asset registry for this unit of work
func (u *unitOfWork) AssetRegistry() interfaces.AssetRegistryStore {
	u.mustBegin()
	return u.assetRegistry
}

// RandomnessStore returns the randomness store for this unit of work
func (u *unitOfWork) RandomnessStore() interfaces.RandomnessStore {
	u.mustBegin()
	return u.randomnessStore
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}

func (u *unitOfWork) mustBegin() {
	if u.lotteryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
}
