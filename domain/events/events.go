package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeLotteryInitialized    EventType = "lottery_initialized"
	EventTypeCollectionInitialized EventType = "collection_initialized"
	EventTypeTicketPurchased       EventType = "ticket_purchased"
	EventTypeRandomnessCommitted   EventType = "randomness_committed"
	EventTypeWinnerChosen          EventType = "winner_chosen"
	EventTypePrizeClaimed          EventType = "prize_claimed"
	EventTypeTicketTransferred     EventType = "ticket_transferred"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// LotteryInitializedEvent is emitted when a lottery is created
type LotteryInitializedEvent struct {
	LotteryID   int64  `json:"lottery_id"`
	Authority   string `json:"authority"`
	SaleStart   int64  `json:"sale_start"`
	SaleEnd     int64  `json:"sale_end"`
	TicketPrice int64  `json:"ticket_price"`
}

func (e LotteryInitializedEvent) Type() EventType {
	return EventTypeLotteryInitialized
}

// CollectionInitializedEvent is emitted when the ticket collection is registered
type CollectionInitializedEvent struct {
	LotteryID     int64  `json:"lottery_id"`
	CollectionRef string `json:"collection_ref"`
	Owner         string `json:"owner"`
}

func (e CollectionInitializedEvent) Type() EventType {
	return EventTypeCollectionInitialized
}

// TicketPurchasedEvent is emitted for every successful ticket purchase
type TicketPurchasedEvent struct {
	LotteryID      int64  `json:"lottery_id"`
	SequenceNumber int64  `json:"sequence_number"`
	Purchaser      string `json:"purchaser"`
	AssetRef       string `json:"asset_ref"`
	DisplayName    string `json:"display_name"`
	Price          int64  `json:"price"`
	PoolAmount     int64  `json:"pool_amount"`
	Tick           int64  `json:"tick"`
}

func (e TicketPurchasedEvent) Type() EventType {
	return EventTypeTicketPurchased
}

// RandomnessCommittedEvent is emitted when a randomness request is bound to a lottery
type RandomnessCommittedEvent struct {
	LotteryID  int64  `json:"lottery_id"`
	RequestRef string `json:"request_ref"`
	SeedTick   int64  `json:"seed_tick"`
	Tick       int64  `json:"tick"`
	Rebound    bool   `json:"rebound"`
}

func (e RandomnessCommittedEvent) Type() EventType {
	return EventTypeRandomnessCommitted
}

// WinnerChosenEvent is emitted once the winning ticket index is fixed
type WinnerChosenEvent struct {
	LotteryID     int64  `json:"lottery_id"`
	RequestRef    string `json:"request_ref"`
	RandomValue   uint64 `json:"random_value"`
	TicketCount   int64  `json:"ticket_count"`
	WinnerIndex   int64  `json:"winner_index"`
	WinningTicket string `json:"winning_ticket"`
	AssetRef      string `json:"asset_ref"`
	PoolAmount    int64  `json:"pool_amount"`
}

func (e WinnerChosenEvent) Type() EventType {
	return EventTypeWinnerChosen
}

// PrizeClaimedEvent is emitted when the pool is paid to the winning ticket holder
type PrizeClaimedEvent struct {
	LotteryID int64  `json:"lottery_id"`
	Claimant  string `json:"claimant"`
	AssetRef  string `json:"asset_ref"`
	Amount    int64  `json:"amount"`
}

func (e PrizeClaimedEvent) Type() EventType {
	return EventTypePrizeClaimed
}

// TicketTransferredEvent is emitted when a ticket asset changes hands
type TicketTransferredEvent struct {
	LotteryID      int64  `json:"lottery_id"`
	SequenceNumber int64  `json:"sequence_number"`
	AssetRef       string `json:"asset_ref"`
	From           string `json:"from"`
	To             string `json:"to"`
}

func (e TicketTransferredEvent) Type() EventType {
	return EventTypeTicketTransferred
}
