package entities

import "time"

// EntryType is the reason for a ledger movement
type EntryType string

const (
	EntryTypeDeposit     EntryType = "deposit"
	EntryTypeTransferOut EntryType = "transfer_out"
	EntryTypeTransferIn  EntryType = "transfer_in"
)

// LedgerEntry is one leg of a balance movement
type LedgerEntry struct {
	ID           int64     `db:"id"`
	AccountID    string    `db:"account"`
	Counterparty *string   `db:"counterparty"`
	EntryType    EntryType `db:"entry_type"`
	ChangeAmount int64     `db:"change_amount"`
	BalanceAfter int64     `db:"balance_after"`
	CreatedAt    time.Time `db:"created_at"`
}

// IsCredit returns true if the entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.ChangeAmount > 0
}
