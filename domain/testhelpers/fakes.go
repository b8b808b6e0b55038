package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"
)

// FakeClock is a settable logical clock
type FakeClock struct {
	mu   sync.Mutex
	tick int64
}

func NewFakeClock(tick int64) *FakeClock {
	return &FakeClock{tick: tick}
}

func (c *FakeClock) Set(tick int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
}

func (c *FakeClock) CurrentTick(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick, nil
}

// FakeLedger keeps balances in memory
type FakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{balances: make(map[string]int64)}
}

// Fund credits an account directly
func (l *FakeLedger) Fund(account string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *FakeLedger) Deposit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return entities.ErrInvalidAmount
	}
	l.Fund(account, amount)
	return nil
}

func (l *FakeLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return entities.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", entities.ErrInsufficientFunds, from, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *FakeLedger) Balance(ctx context.Context, account string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// History is not journaled by the fake
func (l *FakeLedger) History(ctx context.Context, account string, limit int) ([]*entities.LedgerEntry, error) {
	return nil, nil
}

// FakeAssetRegistry stores collections and assets in memory. Display names are stored
// padded to the fixed registry width, like the real registry.
type FakeAssetRegistry struct {
	mu          sync.Mutex
	collections map[string]*entities.AssetCollection
	assets      map[string]*entities.Asset
	holdings    map[string]map[string]int64
	next        int
}

func NewFakeAssetRegistry() *FakeAssetRegistry {
	return &FakeAssetRegistry{
		collections: make(map[string]*entities.AssetCollection),
		assets:      make(map[string]*entities.Asset),
		holdings:    make(map[string]map[string]int64),
	}
}

func (r *FakeAssetRegistry) CreateCollection(ctx context.Context, owner, name string, metadata entities.AssetMetadata) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ref := fmt.Sprintf("collection-%d", r.next)
	r.collections[ref] = &entities.AssetCollection{Ref: ref, Owner: owner, Name: name, Metadata: metadata}
	return ref, nil
}

func (r *FakeAssetRegistry) MintMemberAsset(ctx context.Context, collectionRef, owner, displayName string, metadata entities.AssetMetadata) (string, error) {
	padded, ok := entities.PadDisplayName(displayName)
	if !ok {
		return "", entities.ErrDisplayNameTooLong
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	collection, ok := r.collections[collectionRef]
	if !ok {
		return "", entities.ErrAssetNotFound
	}
	r.next++
	ref := fmt.Sprintf("asset-%d", r.next)
	cref := collectionRef
	r.assets[ref] = &entities.Asset{
		Ref:           ref,
		CollectionRef: &cref,
		Verified:      true,
		DisplayName:   padded,
		Metadata:      metadata,
		MintAuthority: collection.Owner,
	}
	r.holdings[ref] = map[string]int64{owner: 1}
	collection.Size++
	return ref, nil
}

// MintUnverified mints an asset that claims membership of a collection without being verified
func (r *FakeAssetRegistry) MintUnverified(collectionRef, owner, displayName string) string {
	padded, _ := entities.PadDisplayName(displayName)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ref := fmt.Sprintf("asset-%d", r.next)
	cref := collectionRef
	r.assets[ref] = &entities.Asset{Ref: ref, CollectionRef: &cref, DisplayName: padded, MintAuthority: owner}
	r.holdings[ref] = map[string]int64{owner: 1}
	return ref
}

// TransferAsset moves the single unit of an asset to a new holder
func (r *FakeAssetRegistry) TransferAsset(ctx context.Context, assetRef, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.holdings[assetRef]
	if !ok {
		return entities.ErrAssetNotFound
	}
	if holders[from] <= 0 {
		return entities.ErrNotAssetHolder
	}
	holders[from]--
	holders[to]++
	return nil
}

func (r *FakeAssetRegistry) VerifyMembership(ctx context.Context, assetRef, collectionRef string) (entities.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetRef]
	if !ok {
		return entities.MembershipUnverified, entities.ErrAssetNotFound
	}
	return asset.MembershipIn(collectionRef), nil
}

func (r *FakeAssetRegistry) GetOwnerBalance(ctx context.Context, assetRef, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.holdings[assetRef]
	if !ok {
		return 0, entities.ErrAssetNotFound
	}
	return holders[owner], nil
}

func (r *FakeAssetRegistry) GetDisplayName(ctx context.Context, assetRef string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetRef]
	if !ok {
		return "", entities.ErrAssetNotFound
	}
	return asset.DisplayName, nil
}

func (r *FakeAssetRegistry) GetAsset(ctx context.Context, assetRef string) (*entities.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetRef]
	if !ok {
		return nil, nil
	}
	c := *asset
	return &c, nil
}

// FakeRandomnessOracle lets tests commit and reveal values directly. It also implements the
// store operations fed by the oracle feed.
type FakeRandomnessOracle struct {
	mu       sync.Mutex
	requests map[string]*entities.RandomnessRequest
	values   map[string]uint64
}

func NewFakeRandomnessOracle() *FakeRandomnessOracle {
	return &FakeRandomnessOracle{
		requests: make(map[string]*entities.RandomnessRequest),
		values:   make(map[string]uint64),
	}
}

// Commit records a request committed at seedTick that will reveal value
func (o *FakeRandomnessOracle) Commit(ref string, seedTick int64, value uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests[ref] = &entities.RandomnessRequest{Ref: ref, SeedTick: seedTick}
	o.values[ref] = value
}

// Reveal makes the committed value readable from revealTick on
func (o *FakeRandomnessOracle) Reveal(ref string, revealTick int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if req, ok := o.requests[ref]; ok {
		req.Seed = make([]byte, entities.SeedLength)
		req.RevealTick = &revealTick
	}
}

func (o *FakeRandomnessOracle) RecordCommitment(ctx context.Context, requestRef string, seedTick int64, commitment []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.requests[requestRef]; ok {
		if existing.SeedTick == seedTick && string(existing.Commitment) == string(commitment) {
			return nil
		}
		return entities.ErrInvalidCommitment
	}
	o.requests[requestRef] = &entities.RandomnessRequest{
		Ref:        requestRef,
		SeedTick:   seedTick,
		Commitment: append([]byte(nil), commitment...),
	}
	return nil
}

func (o *FakeRandomnessOracle) GetRequest(ctx context.Context, requestRef string) (*entities.RandomnessRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	req, ok := o.requests[requestRef]
	if !ok {
		return nil, nil
	}
	c := *req
	return &c, nil
}

func (o *FakeRandomnessOracle) RecordReveal(ctx context.Context, requestRef string, seed []byte, revealTick int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	req, ok := o.requests[requestRef]
	if !ok {
		return entities.ErrRequestNotFound
	}
	if req.IsRevealed() {
		return entities.ErrAlreadyRevealed
	}
	req.Seed = append([]byte(nil), seed...)
	req.RevealTick = &revealTick
	o.values[requestRef] = entities.SeedValue(seed)
	return nil
}

func (o *FakeRandomnessOracle) GetCommitmentTick(ctx context.Context, requestRef string) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	req, ok := o.requests[requestRef]
	if !ok {
		return 0, entities.ErrRequestNotFound
	}
	return req.SeedTick, nil
}

func (o *FakeRandomnessOracle) GetRevealedValue(ctx context.Context, requestRef string, currentTick int64) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	req, ok := o.requests[requestRef]
	if !ok {
		return 0, entities.ErrRequestNotFound
	}
	if !req.IsResolvedAt(currentTick) {
		return 0, entities.ErrNotYetResolved
	}
	return o.values[requestRef], nil
}

// FakeLotteryRepository stores copies of lotteries in memory
type FakeLotteryRepository struct {
	mu        sync.Mutex
	lotteries map[int64]*entities.Lottery
}

func NewFakeLotteryRepository() *FakeLotteryRepository {
	return &FakeLotteryRepository{lotteries: make(map[int64]*entities.Lottery)}
}

func (r *FakeLotteryRepository) Create(ctx context.Context, lottery *entities.Lottery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lotteries[lottery.ID]; ok {
		return entities.ErrAlreadyInitialized
	}
	r.lotteries[lottery.ID] = lottery.Clone()
	return nil
}

func (r *FakeLotteryRepository) GetByID(ctx context.Context, id int64) (*entities.Lottery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lottery, ok := r.lotteries[id]
	if !ok {
		return nil, nil
	}
	return lottery.Clone(), nil
}

func (r *FakeLotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Lottery, error) {
	return r.GetByID(ctx, id)
}

func (r *FakeLotteryRepository) Update(ctx context.Context, lottery *entities.Lottery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lotteries[lottery.ID]; !ok {
		return entities.ErrLotteryNotFound
	}
	r.lotteries[lottery.ID] = lottery.Clone()
	return nil
}

func (r *FakeLotteryRepository) GetPendingSelection(ctx context.Context, tick int64, authority string) ([]*entities.Lottery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*entities.Lottery
	for _, lottery := range r.lotteries {
		if lottery.Authority == authority && lottery.HasEndedAt(tick) &&
			lottery.HasRandomnessBinding() && !lottery.WinnerSelected && lottery.TicketCount > 0 {
			pending = append(pending, lottery.Clone())
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

// FakeTicketRepository stores tickets in memory
type FakeTicketRepository struct {
	mu      sync.Mutex
	tickets []*entities.Ticket
}

func NewFakeTicketRepository() *FakeTicketRepository {
	return &FakeTicketRepository{}
}

func (r *FakeTicketRepository) Create(ctx context.Context, ticket *entities.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if (t.LotteryID == ticket.LotteryID && t.SequenceNumber == ticket.SequenceNumber) || t.AssetRef == ticket.AssetRef {
			return fmt.Errorf("duplicate ticket %d/%d", ticket.LotteryID, ticket.SequenceNumber)
		}
	}
	ticket.ID = int64(len(r.tickets) + 1)
	stored := *ticket
	r.tickets = append(r.tickets, &stored)
	return nil
}

func (r *FakeTicketRepository) GetBySequence(ctx context.Context, lotteryID, sequenceNumber int64) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.LotteryID == lotteryID && t.SequenceNumber == sequenceNumber {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *FakeTicketRepository) GetByAssetRef(ctx context.Context, assetRef string) (*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.AssetRef == assetRef {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *FakeTicketRepository) ListByLottery(ctx context.Context, lotteryID int64) ([]*entities.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entities.Ticket
	for _, t := range r.tickets {
		if t.LotteryID == lotteryID {
			c := *t
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SequenceNumber < result[j].SequenceNumber })
	return result, nil
}

func (r *FakeTicketRepository) CountByLottery(ctx context.Context, lotteryID int64) (int64, error) {
	tickets, _ := r.ListByLottery(ctx, lotteryID)
	return int64(len(tickets)), nil
}

func (r *FakeTicketRepository) GetParticipantSummary(ctx context.Context, lotteryID int64) ([]*entities.TicketParticipantInfo, error) {
	tickets, _ := r.ListByLottery(ctx, lotteryID)
	counts := make(map[string]int64)
	var owners []string
	for _, t := range tickets {
		if _, ok := counts[t.Owner]; !ok {
			owners = append(owners, t.Owner)
		}
		counts[t.Owner]++
	}
	result := make([]*entities.TicketParticipantInfo, 0, len(owners))
	for _, owner := range owners {
		result = append(result, &entities.TicketParticipantInfo{Owner: owner, TicketCount: counts[owner]})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TicketCount != result[j].TicketCount {
			return result[i].TicketCount > result[j].TicketCount
		}
		return result[i].Owner < result[j].Owner
	})
	return result, nil
}

// RecordingEventPublisher keeps every published event
type RecordingEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the published events in order
func (p *RecordingEventPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Types returns the types of the published events in order
func (p *RecordingEventPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type())
	}
	return types
}
