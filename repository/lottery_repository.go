package repository

import (
	"context"
	"errors"
	"fmt"

	"tokenlottery/domain/entities"

	"github.com/jackc/pgx/v5"
)

const lotteryColumns = `
	id, ticket_name, ticket_symbol, ticket_uri, sale_start, sale_end, ticket_price,
	ticket_count, pool_amount, authority, collection_ref, randomness_binding,
	winner_index, winner_selected, settled, settled_by, created_at, updated_at`

// LotteryRepository implements lottery state storage
type LotteryRepository struct {
	q Queryable
}

// NewLotteryRepository creates a new lottery repository on a pool or transaction
func NewLotteryRepository(q Queryable) *LotteryRepository {
	return &LotteryRepository{q: q}
}

// Create stores a new lottery
func (r *LotteryRepository) Create(ctx context.Context, lottery *entities.Lottery) error {
	query := `
		INSERT INTO lotteries (
			id, ticket_name, ticket_symbol, ticket_uri, sale_start, sale_end, ticket_price,
			ticket_count, pool_amount, authority
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		lottery.ID,
		lottery.Name,
		lottery.Symbol,
		lottery.URI,
		lottery.SaleWindow.Start,
		lottery.SaleWindow.End,
		lottery.TicketPrice,
		lottery.TicketCount,
		lottery.PoolAmount,
		lottery.Authority,
	).Scan(&lottery.CreatedAt, &lottery.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: id %d", entities.ErrAlreadyInitialized, lottery.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create lottery %d: %w", lottery.ID, err)
	}

	return nil
}

// GetByID retrieves a lottery by its ID
func (r *LotteryRepository) GetByID(ctx context.Context, id int64) (*entities.Lottery, error) {
	query := `SELECT` + lotteryColumns + `
		FROM lotteries
		WHERE id = $1
	`

	lottery, err := scanLottery(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery by ID %d: %w", id, err)
	}

	return lottery, nil
}

// GetByIDForUpdate retrieves a lottery by ID with row lock for update
func (r *LotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Lottery, error) {
	query := `SELECT` + lotteryColumns + `
		FROM lotteries
		WHERE id = $1
		FOR UPDATE
	`

	lottery, err := scanLottery(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery for update by ID %d: %w", id, err)
	}

	return lottery, nil
}

// Update persists every mutable field of a lottery
func (r *LotteryRepository) Update(ctx context.Context, lottery *entities.Lottery) error {
	query := `
		UPDATE lotteries
		SET ticket_count = $2,
		    pool_amount = $3,
		    collection_ref = $4,
		    randomness_binding = $5,
		    winner_index = $6,
		    winner_selected = $7,
		    settled = $8,
		    settled_by = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		lottery.ID,
		lottery.TicketCount,
		lottery.PoolAmount,
		lottery.CollectionRef,
		lottery.RandomnessBinding,
		lottery.WinnerIndex,
		lottery.WinnerSelected,
		lottery.Settled,
		lottery.SettledBy,
	).Scan(&lottery.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", entities.ErrLotteryNotFound, lottery.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update lottery %d: %w", lottery.ID, err)
	}

	return nil
}

// GetPendingSelection returns lotteries run by authority whose sale has ended by tick, that are
// bound to a randomness request and still have no winner
func (r *LotteryRepository) GetPendingSelection(ctx context.Context, tick int64, authority string) ([]*entities.Lottery, error) {
	query := `SELECT` + lotteryColumns + `
		FROM lotteries
		WHERE NOT winner_selected
		  AND randomness_binding IS NOT NULL
		  AND ticket_count > 0
		  AND sale_end <= $1
		  AND authority = $2
		ORDER BY sale_end ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, tick, authority)
	if err != nil {
		return nil, fmt.Errorf("failed to get lotteries pending selection: %w", err)
	}
	defer rows.Close()

	var lotteries []*entities.Lottery
	for rows.Next() {
		lottery, err := scanLottery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery: %w", err)
		}
		lotteries = append(lotteries, lottery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lotteries: %w", err)
	}

	return lotteries, nil
}

func scanLottery(row pgx.Row) (*entities.Lottery, error) {
	var lottery entities.Lottery
	err := row.Scan(
		&lottery.ID,
		&lottery.Name,
		&lottery.Symbol,
		&lottery.URI,
		&lottery.SaleWindow.Start,
		&lottery.SaleWindow.End,
		&lottery.TicketPrice,
		&lottery.TicketCount,
		&lottery.PoolAmount,
		&lottery.Authority,
		&lottery.CollectionRef,
		&lottery.RandomnessBinding,
		&lottery.WinnerIndex,
		&lottery.WinnerSelected,
		&lottery.Settled,
		&lottery.SettledBy,
		&lottery.CreatedAt,
		&lottery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lottery, nil
}
