package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tokenlottery/domain/events"
	"tokenlottery/domain/interfaces"
	"tokenlottery/domain/testhelpers"
)

// fakeWorld holds the in-memory state every fake unit of work operates on
type fakeWorld struct {
	lotteries *testhelpers.FakeLotteryRepository
	tickets   *testhelpers.FakeTicketRepository
	registry  *testhelpers.FakeAssetRegistry
	oracle    *testhelpers.FakeRandomnessOracle
	ledger    *testhelpers.FakeLedger
	clock     *testhelpers.FakeClock
	flushed   *testhelpers.RecordingEventPublisher

	mu         sync.Mutex
	commits    int
	rollbacks  int
	beginError error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		lotteries: testhelpers.NewFakeLotteryRepository(),
		tickets:   testhelpers.NewFakeTicketRepository(),
		registry:  testhelpers.NewFakeAssetRegistry(),
		oracle:    testhelpers.NewFakeRandomnessOracle(),
		ledger:    testhelpers.NewFakeLedger(),
		clock:     testhelpers.NewFakeClock(0),
		flushed:   &testhelpers.RecordingEventPublisher{},
	}
}

func (w *fakeWorld) Create() UnitOfWork {
	return &fakeUnitOfWork{world: w}
}

func (w *fakeWorld) counts() (commits, rollbacks int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commits, w.rollbacks
}

// fakeUnitOfWork queues events until commit like the real unit of work. Writes go straight
// to the shared fakes, so tests only rely on it for event and commit bookkeeping.
type fakeUnitOfWork struct {
	world   *fakeWorld
	begun   bool
	pending []events.Event
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	if u.world.beginError != nil {
		return u.world.beginError
	}
	if u.begun {
		return errors.New("transaction already started")
	}
	u.begun = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if !u.begun {
		return errors.New("no transaction to commit")
	}
	u.begun = false
	u.world.mu.Lock()
	u.world.commits++
	u.world.mu.Unlock()
	for _, event := range u.pending {
		_ = u.world.flushed.Publish(event)
	}
	u.pending = nil
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if !u.begun {
		return nil
	}
	u.begun = false
	u.world.mu.Lock()
	u.world.rollbacks++
	u.world.mu.Unlock()
	u.pending = nil
	return nil
}

func (u *fakeUnitOfWork) Publish(event events.Event) error {
	u.pending = append(u.pending, event)
	return nil
}

func (u *fakeUnitOfWork) LotteryRepository() interfaces.LotteryRepository { return u.world.lotteries }
func (u *fakeUnitOfWork) TicketRepository() interfaces.TicketRepository   { return u.world.tickets }
func (u *fakeUnitOfWork) Ledger() interfaces.LedgerStore                   { return u.world.ledger }
func (u *fakeUnitOfWork) AssetRegistry() interfaces.AssetRegistryStore     { return u.world.registry }
func (u *fakeUnitOfWork) RandomnessStore() interfaces.RandomnessStore      { return u.world.oracle }
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher              { return u }

const (
	testLotteryID = int64(7)
	testAuthority = "operator"
	testPrice     = int64(25)
	testSaleStart = int64(10)
	testSaleEnd   = int64(20)
)

var testDefaults = TicketDefaults{Name: "Handler Ticket", Symbol: "HT", URI: "Handler"}

func newTestHandler(t *testing.T) (*LotteryHandler, *fakeWorld) {
	t.Helper()
	world := newFakeWorld()
	return NewLotteryHandler(world, world.clock, testDefaults), world
}
