package services

import (
	"context"
	"testing"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/interfaces"
	"tokenlottery/domain/testhelpers"

	"github.com/stretchr/testify/require"
)

const (
	testLotteryID = int64(1)
	testAuthority = "authority"
	testPrice     = int64(10)
	testSaleStart = int64(100)
	testSaleEnd   = int64(200)
	testAlice     = "alice"
	testBob       = "bob"
	testCarol     = "carol"
)

// lotteryFixture wires the service to in-memory collaborators
type lotteryFixture struct {
	t         *testing.T
	ctx       context.Context
	service   interfaces.LotteryService
	lotteries *testhelpers.FakeLotteryRepository
	tickets   *testhelpers.FakeTicketRepository
	registry  *testhelpers.FakeAssetRegistry
	oracle    *testhelpers.FakeRandomnessOracle
	ledger    *testhelpers.FakeLedger
	clock     *testhelpers.FakeClock
	publisher *testhelpers.RecordingEventPublisher
}

func newLotteryFixture(t *testing.T) *lotteryFixture {
	f := &lotteryFixture{
		t:         t,
		ctx:       context.Background(),
		lotteries: testhelpers.NewFakeLotteryRepository(),
		tickets:   testhelpers.NewFakeTicketRepository(),
		registry:  testhelpers.NewFakeAssetRegistry(),
		oracle:    testhelpers.NewFakeRandomnessOracle(),
		ledger:    testhelpers.NewFakeLedger(),
		clock:     testhelpers.NewFakeClock(0),
		publisher: &testhelpers.RecordingEventPublisher{},
	}
	f.service = NewLotteryService(f.lotteries, f.tickets, f.registry, f.oracle, f.ledger, f.clock, f.publisher)
	return f
}

// openLottery initializes the default lottery and its collection
func (f *lotteryFixture) openLottery() *entities.Lottery {
	_, err := f.service.Initialize(f.ctx, interfaces.InitializeParams{
		ID:          testLotteryID,
		SaleWindow:  entities.SaleWindow{Start: testSaleStart, End: testSaleEnd},
		TicketPrice: testPrice,
		Authority:   testAuthority,
	})
	require.NoError(f.t, err)

	lottery, err := f.service.InitializeCollection(f.ctx, testLotteryID, testAuthority)
	require.NoError(f.t, err)
	return lottery
}

// buyAt buys one ticket for purchaser at the given tick, funding them first
func (f *lotteryFixture) buyAt(tick int64, purchaser string) *interfaces.TicketPurchaseResult {
	f.ledger.Fund(purchaser, testPrice)
	f.clock.Set(tick)
	result, err := f.service.BuyTicket(f.ctx, testLotteryID, purchaser)
	require.NoError(f.t, err)
	return result
}

// drawWith commits a request with the given value one tick before tick, reveals it and
// chooses the winner
func (f *lotteryFixture) drawWith(tick int64, ref string, value uint64) *interfaces.WinnerSelectionResult {
	f.oracle.Commit(ref, tick-1, value)
	f.clock.Set(tick)
	_, err := f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, ref)
	require.NoError(f.t, err)

	f.oracle.Reveal(ref, tick)
	result, err := f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, ref)
	require.NoError(f.t, err)
	return result
}

func (f *lotteryFixture) lottery() *entities.Lottery {
	lottery, err := f.service.GetLottery(f.ctx, testLotteryID)
	require.NoError(f.t, err)
	return lottery
}

func (f *lotteryFixture) balance(account string) int64 {
	balance, err := f.ledger.Balance(f.ctx, account)
	require.NoError(f.t, err)
	return balance
}
