package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"
	"tokenlottery/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// LotteryDrawWorker chooses winners for the lotteries it operates once their bound
// randomness resolves
type LotteryDrawWorker struct {
	uowFactory   UnitOfWorkFactory
	handler      *LotteryHandler
	clock        interfaces.Clock
	operator     string
	pollInterval time.Duration
}

// NewLotteryDrawWorker creates a new lottery draw worker acting as operator
func NewLotteryDrawWorker(uowFactory UnitOfWorkFactory, handler *LotteryHandler, clock interfaces.Clock, operator string, pollInterval time.Duration) *LotteryDrawWorker {
	return &LotteryDrawWorker{
		uowFactory:   uowFactory,
		handler:      handler,
		clock:        clock,
		operator:     operator,
		pollInterval: pollInterval,
	}
}

// Start begins the lottery draw worker
func (w *LotteryDrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithFields(log.Fields{
			"operator":      w.operator,
			"poll_interval": w.pollInterval,
		}).Info("Lottery draw worker started")

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			if err := w.processPendingDraws(ctx); err != nil {
				log.Errorf("Error processing pending draws: %v", err)
			}

			select {
			case <-ctx.Done():
				log.Info("Lottery draw worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Lottery draw worker shutting down (stop requested)...")
				return
			case <-ticker.C:
			}
		}
	}()

	// Return cleanup function
	return func() {
		close(stopChan)
		<-done
	}
}

// processPendingDraws runs choose_a_winner for every lottery awaiting selection
func (w *LotteryDrawWorker) processPendingDraws(ctx context.Context) error {
	tick, err := w.clock.CurrentTick(ctx)
	if err != nil {
		return fmt.Errorf("failed to read clock: %w", err)
	}

	pending, err := w.pendingSelection(ctx, tick)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var chosen, waiting, failed int
	for _, lottery := range pending {
		result, err := w.handler.ChooseAWinner(ctx, dto.ChooseAWinnerRequest{
			LotteryID:  lottery.ID,
			Caller:     w.operator,
			RequestRef: *lottery.RandomnessBinding,
		})
		switch {
		case err == nil:
			chosen++
			log.WithFields(log.Fields{
				"lottery_id":     lottery.ID,
				"winner_index":   result.WinnerIndex,
				"winning_ticket": result.WinningTicket,
			}).Info("Lottery draw completed")
		case entities.IsRetryable(err):
			waiting++
			log.WithFields(log.Fields{
				"lottery_id":  lottery.ID,
				"request_ref": *lottery.RandomnessBinding,
			}).Debug("Randomness not resolved yet, retrying on next poll")
		case errors.Is(err, entities.ErrWinnerChosen):
			// Chosen by a concurrent caller since the pending query ran
		default:
			failed++
			log.WithError(err).WithField("lottery_id", lottery.ID).Error("Failed to choose lottery winner")
		}
	}

	log.WithFields(log.Fields{
		"pending": len(pending),
		"chosen":  chosen,
		"waiting": waiting,
		"failed":  failed,
	}).Debug("Completed lottery draw poll")

	return nil
}

func (w *LotteryDrawWorker) pendingSelection(ctx context.Context, tick int64) ([]*entities.Lottery, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pending, err := uow.LotteryRepository().GetPendingSelection(ctx, tick, w.operator)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending draws: %w", err)
	}
	return pending, nil
}
