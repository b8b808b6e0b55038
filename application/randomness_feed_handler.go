package application

import (
	"bytes"
	"context"
	"fmt"

	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// RandomnessFeedHandler persists the commitments and reveals published by the randomness oracle
type RandomnessFeedHandler struct {
	uowFactory UnitOfWorkFactory
}

// NewRandomnessFeedHandler creates a new randomness feed handler
func NewRandomnessFeedHandler(uowFactory UnitOfWorkFactory) *RandomnessFeedHandler {
	return &RandomnessFeedHandler{uowFactory: uowFactory}
}

// HandleCommitted records a commitment. Redelivered commitments are accepted unchanged.
func (h *RandomnessFeedHandler) HandleCommitted(ctx context.Context, msg dto.RandomnessCommitted) error {
	if msg.RequestRef == "" {
		return fmt.Errorf("%w: empty request reference", entities.ErrInvalidCommitment)
	}
	if len(msg.Commitment) != blake2b.Size256 {
		return fmt.Errorf("%w: commitment is %d bytes", entities.ErrInvalidCommitment, len(msg.Commitment))
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RandomnessStore().RecordCommitment(ctx, msg.RequestRef, msg.SeedTick, msg.Commitment); err != nil {
		return fmt.Errorf("failed to record commitment: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"request_ref": msg.RequestRef,
		"seed_tick":   msg.SeedTick,
	}).Info("Randomness commitment recorded")
	return nil
}

// HandleRevealed records the seed of a committed request after checking it against the
// commitment
func (h *RandomnessFeedHandler) HandleRevealed(ctx context.Context, msg dto.RandomnessRevealed) error {
	if len(msg.Seed) != entities.SeedLength {
		return fmt.Errorf("%w: seed is %d bytes", entities.ErrInvalidCommitment, len(msg.Seed))
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	store := uow.RandomnessStore()
	request, err := store.GetRequest(ctx, msg.RequestRef)
	if err != nil {
		return fmt.Errorf("failed to get randomness request: %w", err)
	}
	if request == nil {
		return fmt.Errorf("%w: %s", entities.ErrRequestNotFound, msg.RequestRef)
	}

	if request.IsRevealed() && bytes.Equal(request.Seed, msg.Seed) {
		log.WithField("request_ref", msg.RequestRef).Debug("Ignoring redelivered reveal")
		return nil
	}

	if msg.RevealTick < request.SeedTick {
		return fmt.Errorf("%w: %s revealed at tick %d before its commitment tick %d",
			entities.ErrInvalidCommitment, msg.RequestRef, msg.RevealTick, request.SeedTick)
	}

	digest := blake2b.Sum256(msg.Seed)
	if !bytes.Equal(digest[:], request.Commitment) {
		log.WithField("request_ref", msg.RequestRef).Warn("Rejected reveal that does not match its commitment")
		return fmt.Errorf("%w: %s", entities.ErrInvalidCommitment, msg.RequestRef)
	}

	if err := store.RecordReveal(ctx, msg.RequestRef, msg.Seed, msg.RevealTick); err != nil {
		return fmt.Errorf("failed to record reveal: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"request_ref": msg.RequestRef,
		"reveal_tick": msg.RevealTick,
	}).Info("Randomness revealed")
	return nil
}
