package repository

import (
	"context"
	"errors"
	"fmt"

	"tokenlottery/domain/entities"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository is the hosted ledger. Every balance change is journaled in ledger_entries.
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger on a pool or transaction
func NewLedgerRepository(q Queryable) *LedgerRepository {
	return &LedgerRepository{q: q}
}

// Transfer moves amount from one account to another. A zero amount is a no-op.
func (r *LedgerRepository) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", entities.ErrInvalidAmount, amount)
	}
	if amount == 0 {
		return nil
	}

	debit := `
		UPDATE ledger_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE account = $1 AND balance >= $2
		RETURNING balance
	`

	var fromBalance int64
	err := r.q.QueryRow(ctx, debit, from, amount).Scan(&fromBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s cannot cover %d", entities.ErrInsufficientFunds, from, amount)
	}
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}

	toBalance, err := r.credit(ctx, to, amount)
	if err != nil {
		return err
	}

	if err := r.record(ctx, from, &to, entities.EntryTypeTransferOut, -amount, fromBalance); err != nil {
		return err
	}
	return r.record(ctx, to, &from, entities.EntryTypeTransferIn, amount, toBalance)
}

// Deposit credits an account from outside the system
func (r *LedgerRepository) Deposit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", entities.ErrInvalidAmount, amount)
	}

	balance, err := r.credit(ctx, account, amount)
	if err != nil {
		return err
	}
	return r.record(ctx, account, nil, entities.EntryTypeDeposit, amount, balance)
}

// Balance returns the current balance of an account; unknown accounts hold nothing
func (r *LedgerRepository) Balance(ctx context.Context, account string) (int64, error) {
	query := `SELECT balance FROM ledger_accounts WHERE account = $1`

	var balance int64
	err := r.q.QueryRow(ctx, query, account).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}

	return balance, nil
}

// History returns the most recent journal entries of an account, newest first
func (r *LedgerRepository) History(ctx context.Context, account string, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account, counterparty, entry_type, change_amount, balance_after, created_at
		FROM ledger_entries
		WHERE account = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history of %s: %w", account, err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var entry entities.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Counterparty,
			&entry.EntryType,
			&entry.ChangeAmount,
			&entry.BalanceAfter,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// credit adds amount to an account, opening it if needed, and returns the new balance
func (r *LedgerRepository) credit(ctx context.Context, account string, amount int64) (int64, error) {
	query := `
		INSERT INTO ledger_accounts (account, balance)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`

	var balance int64
	if err := r.q.QueryRow(ctx, query, account, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit %s: %w", account, err)
	}
	return balance, nil
}

func (r *LedgerRepository) record(ctx context.Context, account string, counterparty *string, entryType entities.EntryType, change, balanceAfter int64) error {
	query := `
		INSERT INTO ledger_entries (account, counterparty, entry_type, change_amount, balance_after)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.q.Exec(ctx, query, account, counterparty, string(entryType), change, balanceAfter); err != nil {
		return fmt.Errorf("failed to record ledger entry for %s: %w", account, err)
	}
	return nil
}
