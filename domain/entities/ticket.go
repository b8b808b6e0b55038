package entities

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTicketName prefixes every ticket display name; the sequence number follows it
	DefaultTicketName = "Token Lottery Ticket"

	// DefaultTicketSymbol is the asset symbol carried by tickets and their collection
	DefaultTicketSymbol = "TICKET"

	// DefaultTicketURI is the metadata URI carried by tickets and their collection
	DefaultTicketURI = "Token Lottery"

	// DisplayNameLength is the fixed width of a registry display name. Shorter names are
	// padded with NameSentinel.
	DisplayNameLength = 32

	// NameSentinel pads display names to DisplayNameLength
	NameSentinel = "\x00"
)

// Ticket is one purchased entry in a lottery, represented by a registry asset
type Ticket struct {
	ID             int64     `db:"id"`
	LotteryID      int64     `db:"lottery_id"`
	SequenceNumber int64     `db:"sequence_number"`
	Owner          string    `db:"owner"` // Purchaser; the current holder lives in the registry
	AssetRef       string    `db:"asset_ref"`
	DisplayName    string    `db:"display_name"`
	PurchasePrice  int64     `db:"purchase_price"`
	PurchaseTick   int64     `db:"purchase_tick"`
	PurchasedAt    time.Time `db:"purchased_at"`
}

// IsWinner checks if this ticket matches the winning index
func (t *Ticket) IsWinner(winnerIndex int64) bool {
	return t.SequenceNumber == winnerIndex
}

// TicketName derives the display identity of ticket number seq: the prefix followed by the
// decimal sequence number, with no separator.
func TicketName(prefix string, seq int64) string {
	return prefix + strconv.FormatInt(seq, 10)
}

// NormalizeDisplayName strips the padding sentinels a registry may add to a display name
func NormalizeDisplayName(name string) string {
	return strings.ReplaceAll(name, NameSentinel, "")
}

// PadDisplayName pads name with sentinels to DisplayNameLength. ok is false when the name
// does not fit.
func PadDisplayName(name string) (padded string, ok bool) {
	if len(name) > DisplayNameLength {
		return "", false
	}
	return name + strings.Repeat(NameSentinel, DisplayNameLength-len(name)), true
}

// TicketParticipantInfo summarises how many tickets an owner bought
type TicketParticipantInfo struct {
	Owner       string `db:"owner"`
	TicketCount int64  `db:"ticket_count"`
}
