package entities

import (
	"fmt"
	"time"
)

// SaleWindow is the inclusive range of logical clock ticks during which tickets can be bought
type SaleWindow struct {
	Start int64 `db:"sale_start"`
	End   int64 `db:"sale_end"`
}

// Validate returns ErrInvalidWindow unless Start < End
func (w SaleWindow) Validate() error {
	if w.Start < 0 || w.Start >= w.End {
		return fmt.Errorf("%w: start %d, end %d", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Contains reports whether tick lies within the window, boundaries included
func (w SaleWindow) Contains(tick int64) bool {
	return tick >= w.Start && tick <= w.End
}

// Lottery is the state of a single lottery, keyed by ID
type Lottery struct {
	ID          int64  `db:"id"`
	Name        string `db:"ticket_name"`
	Symbol      string `db:"ticket_symbol"`
	URI         string `db:"ticket_uri"`
	TicketPrice int64  `db:"ticket_price"`
	TicketCount int64  `db:"ticket_count"`
	PoolAmount  int64  `db:"pool_amount"`
	Authority   string `db:"authority"`

	SaleWindow SaleWindow

	CollectionRef     *string `db:"collection_ref"`     // NULL until the collection is registered
	RandomnessBinding *string `db:"randomness_binding"` // NULL until commit_a_winner
	WinnerIndex       *int64  `db:"winner_index"`       // NULL until choose_a_winner
	WinnerSelected    bool    `db:"winner_selected"`
	Settled           bool    `db:"settled"`
	SettledBy         *string `db:"settled_by"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewLottery returns a fresh lottery with zeroed counters and no randomness or winner bound
func NewLottery(id int64, window SaleWindow, ticketPrice int64, authority string) (*Lottery, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if ticketPrice <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTicketPrice, ticketPrice)
	}
	if authority == "" {
		return nil, fmt.Errorf("%w: empty authority", ErrNotAuthorized)
	}

	return &Lottery{
		ID:          id,
		Name:        DefaultTicketName,
		Symbol:      DefaultTicketSymbol,
		URI:         DefaultTicketURI,
		SaleWindow:  window,
		TicketPrice: ticketPrice,
		Authority:   authority,
	}, nil
}

// EscrowAccount is the ledger account holding the pooled ticket payments. The same identity
// owns the ticket collection, so the lottery itself is the mint authority for its tickets.
func (l *Lottery) EscrowAccount() string {
	return EscrowAccountFor(l.ID)
}

// EscrowAccountFor returns the escrow account identity of the lottery with the given ID
func EscrowAccountFor(lotteryID int64) string {
	return fmt.Sprintf("lottery:%d", lotteryID)
}

// IsAuthority reports whether caller may perform administrative transitions
func (l *Lottery) IsAuthority(caller string) bool {
	return caller != "" && caller == l.Authority
}

// IsOpenAt reports whether tickets may be purchased at tick
func (l *Lottery) IsOpenAt(tick int64) bool {
	return l.SaleWindow.Contains(tick)
}

// HasEndedAt reports whether the sale window has reached its end at tick
func (l *Lottery) HasEndedAt(tick int64) bool {
	return tick >= l.SaleWindow.End
}

// HasCollection returns true once the ticket collection has been registered
func (l *Lottery) HasCollection() bool {
	return l.CollectionRef != nil
}

// HasRandomnessBinding returns true once a randomness request has been committed
func (l *Lottery) HasRandomnessBinding() bool {
	return l.RandomnessBinding != nil
}

// IsBoundTo reports whether requestRef is the committed randomness request
func (l *Lottery) IsBoundTo(requestRef string) bool {
	return l.RandomnessBinding != nil && *l.RandomnessBinding == requestRef
}

// NextTicketName is the display name the next purchased ticket will carry
func (l *Lottery) NextTicketName() string {
	return TicketName(l.Name, l.TicketCount)
}

// WinningTicketName is the display name of the winning ticket. It is empty until a winner is chosen.
func (l *Lottery) WinningTicketName() string {
	if !l.WinnerSelected || l.WinnerIndex == nil {
		return ""
	}
	return TicketName(l.Name, *l.WinnerIndex)
}

// RecordPurchase adds one ticket to the count and its price to the pool
func (l *Lottery) RecordPurchase() {
	l.PoolAmount += l.TicketPrice
	l.TicketCount++
}

// BindRandomness binds the lottery to a randomness request, replacing any earlier binding
func (l *Lottery) BindRandomness(requestRef string) {
	l.RandomnessBinding = &requestRef
}

// SelectWinner fixes the winning ticket index. It can only happen once.
func (l *Lottery) SelectWinner(index int64) error {
	if l.WinnerSelected {
		return ErrWinnerChosen
	}
	if index < 0 || index >= l.TicketCount {
		return fmt.Errorf("winner index %d out of range [0, %d)", index, l.TicketCount)
	}
	l.WinnerIndex = &index
	l.WinnerSelected = true
	return nil
}

// Settle drains the pool to claimant and returns the amount paid out
func (l *Lottery) Settle(claimant string) (int64, error) {
	if l.Settled {
		return 0, ErrAlreadySettled
	}
	payout := l.PoolAmount
	l.PoolAmount = 0
	l.Settled = true
	l.SettledBy = &claimant
	return payout, nil
}

// Clone returns a deep copy so an operation can stage changes without touching the original
func (l *Lottery) Clone() *Lottery {
	c := *l
	if l.CollectionRef != nil {
		v := *l.CollectionRef
		c.CollectionRef = &v
	}
	if l.RandomnessBinding != nil {
		v := *l.RandomnessBinding
		c.RandomnessBinding = &v
	}
	if l.WinnerIndex != nil {
		v := *l.WinnerIndex
		c.WinnerIndex = &v
	}
	if l.SettledBy != nil {
		v := *l.SettledBy
		c.SettledBy = &v
	}
	return &c
}
