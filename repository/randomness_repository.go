package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"tokenlottery/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RandomnessRepository stores the commit-reveal requests fed by the external oracle and serves
// them to the lottery as its randomness oracle
type RandomnessRepository struct {
	q Queryable
}

// NewRandomnessRepository creates a new randomness repository on a pool or transaction
func NewRandomnessRepository(q Queryable) *RandomnessRepository {
	return &RandomnessRepository{q: q}
}

// RecordCommitment stores a new commitment. Redelivery of an identical commitment is a no-op.
func (r *RandomnessRepository) RecordCommitment(ctx context.Context, requestRef string, seedTick int64, commitment []byte) error {
	if len(commitment) != entities.SeedLength {
		return fmt.Errorf("%w: commitment is %d bytes", entities.ErrInvalidCommitment, len(commitment))
	}

	result, err := r.q.Exec(ctx, `
		INSERT INTO randomness_requests (ref, seed_tick, commitment)
		VALUES ($1, $2, $3)
		ON CONFLICT (ref) DO NOTHING
	`, requestRef, seedTick, commitment)
	if err != nil {
		return fmt.Errorf("failed to record commitment %s: %w", requestRef, err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	existing, err := r.GetRequest(ctx, requestRef)
	if err != nil {
		return err
	}
	if existing != nil && existing.SeedTick == seedTick && bytes.Equal(existing.Commitment, commitment) {
		return nil
	}
	return fmt.Errorf("%w: request %s was committed with different parameters", entities.ErrInvalidCommitment, requestRef)
}

// GetRequest returns the stored request, nil if it does not exist
func (r *RandomnessRepository) GetRequest(ctx context.Context, requestRef string) (*entities.RandomnessRequest, error) {
	query := `
		SELECT ref, seed_tick, commitment, seed, reveal_tick, created_at, revealed_at
		FROM randomness_requests
		WHERE ref = $1
	`

	var req entities.RandomnessRequest
	err := r.q.QueryRow(ctx, query, requestRef).Scan(
		&req.Ref,
		&req.SeedTick,
		&req.Commitment,
		&req.Seed,
		&req.RevealTick,
		&req.CreatedAt,
		&req.RevealedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get randomness request %s: %w", requestRef, err)
	}

	return &req, nil
}

// RecordReveal stores the seed of a committed request
func (r *RandomnessRepository) RecordReveal(ctx context.Context, requestRef string, seed []byte, revealTick int64) error {
	result, err := r.q.Exec(ctx, `
		UPDATE randomness_requests
		SET seed = $2, reveal_tick = $3, revealed_at = NOW()
		WHERE ref = $1 AND seed IS NULL
	`, requestRef, seed, revealTick)
	if err != nil {
		return fmt.Errorf("failed to record reveal %s: %w", requestRef, err)
	}

	if result.RowsAffected() == 0 {
		existing, err := r.GetRequest(ctx, requestRef)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", entities.ErrRequestNotFound, requestRef)
		}
		return fmt.Errorf("%w: %s", entities.ErrAlreadyRevealed, requestRef)
	}

	return nil
}

// GetCommitmentTick returns the tick at which the request was committed
func (r *RandomnessRepository) GetCommitmentTick(ctx context.Context, requestRef string) (int64, error) {
	var seedTick int64
	err := r.q.QueryRow(ctx, `SELECT seed_tick FROM randomness_requests WHERE ref = $1`, requestRef).Scan(&seedTick)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", entities.ErrRequestNotFound, requestRef)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get commitment tick of %s: %w", requestRef, err)
	}

	return seedTick, nil
}

// GetRevealedValue returns the revealed value once it is readable at currentTick
func (r *RandomnessRepository) GetRevealedValue(ctx context.Context, requestRef string, currentTick int64) (uint64, error) {
	req, err := r.GetRequest(ctx, requestRef)
	if err != nil {
		return 0, err
	}
	if req == nil {
		return 0, fmt.Errorf("%w: %s", entities.ErrRequestNotFound, requestRef)
	}
	if !req.IsResolvedAt(currentTick) {
		return 0, entities.ErrNotYetResolved
	}

	return req.Value(), nil
}
