package repository

import (
	"context"
	"errors"
	"fmt"

	"tokenlottery/domain/entities"

	"github.com/jackc/pgx/v5"
)

const ticketColumns = `
	id, lottery_id, sequence_number, owner, asset_ref, display_name,
	purchase_price, purchase_tick, purchased_at`

// TicketRepository implements ticket data access
type TicketRepository struct {
	q Queryable
}

// NewTicketRepository creates a new ticket repository on a pool or transaction
func NewTicketRepository(q Queryable) *TicketRepository {
	return &TicketRepository{q: q}
}

// Create stores a ticket and fills in its ID and purchase time
func (r *TicketRepository) Create(ctx context.Context, ticket *entities.Ticket) error {
	query := `
		INSERT INTO tickets (lottery_id, sequence_number, owner, asset_ref, display_name, purchase_price, purchase_tick)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, purchased_at
	`

	err := r.q.QueryRow(ctx, query,
		ticket.LotteryID,
		ticket.SequenceNumber,
		ticket.Owner,
		ticket.AssetRef,
		ticket.DisplayName,
		ticket.PurchasePrice,
		ticket.PurchaseTick,
	).Scan(&ticket.ID, &ticket.PurchasedAt)

	if err != nil {
		return fmt.Errorf("failed to create ticket %d for lottery %d: %w", ticket.SequenceNumber, ticket.LotteryID, err)
	}

	return nil
}

// GetBySequence returns the ticket with the given sequence number
func (r *TicketRepository) GetBySequence(ctx context.Context, lotteryID, sequenceNumber int64) (*entities.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM tickets
		WHERE lottery_id = $1 AND sequence_number = $2
	`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, lotteryID, sequenceNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %d of lottery %d: %w", sequenceNumber, lotteryID, err)
	}

	return ticket, nil
}

// GetByAssetRef returns the ticket represented by an asset
func (r *TicketRepository) GetByAssetRef(ctx context.Context, assetRef string) (*entities.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM tickets
		WHERE asset_ref = $1
	`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, assetRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by asset %s: %w", assetRef, err)
	}

	return ticket, nil
}

// ListByLottery returns all tickets of a lottery ordered by sequence number
func (r *TicketRepository) ListByLottery(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM tickets
		WHERE lottery_id = $1
		ORDER BY sequence_number ASC
	`

	rows, err := r.q.Query(ctx, query, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for lottery %d: %w", lotteryID, err)
	}
	defer rows.Close()

	var tickets []*entities.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return tickets, nil
}

// CountByLottery returns the number of tickets issued for a lottery
func (r *TicketRepository) CountByLottery(ctx context.Context, lotteryID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM tickets WHERE lottery_id = $1`

	var count int64
	if err := r.q.QueryRow(ctx, query, lotteryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tickets for lottery %d: %w", lotteryID, err)
	}

	return count, nil
}

// GetParticipantSummary returns ticket counts per purchaser, largest first
func (r *TicketRepository) GetParticipantSummary(ctx context.Context, lotteryID int64) ([]*entities.TicketParticipantInfo, error) {
	query := `
		SELECT owner, COUNT(*) AS ticket_count
		FROM tickets
		WHERE lottery_id = $1
		GROUP BY owner
		ORDER BY ticket_count DESC, owner ASC
	`

	rows, err := r.q.Query(ctx, query, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant summary for lottery %d: %w", lotteryID, err)
	}
	defer rows.Close()

	var participants []*entities.TicketParticipantInfo
	for rows.Next() {
		var info entities.TicketParticipantInfo
		if err := rows.Scan(&info.Owner, &info.TicketCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant info: %w", err)
		}
		participants = append(participants, &info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var ticket entities.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.LotteryID,
		&ticket.SequenceNumber,
		&ticket.Owner,
		&ticket.AssetRef,
		&ticket.DisplayName,
		&ticket.PurchasePrice,
		&ticket.PurchaseTick,
		&ticket.PurchasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
