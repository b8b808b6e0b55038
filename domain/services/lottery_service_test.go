package services

import (
	"context"
	"errors"
	"testing"

	"tokenlottery/domain/entities"
	"tokenlottery/domain/events"
	"tokenlottery/domain/interfaces"
	"tokenlottery/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLotteryService_FullRound(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	f.clock.Set(99)
	f.openLottery()

	first := f.buyAt(100, testAlice)
	second := f.buyAt(150, testBob)
	third := f.buyAt(199, testCarol)

	assert.Equal(t, int64(0), first.Ticket.SequenceNumber)
	assert.Equal(t, "Token Lottery Ticket1", second.Ticket.DisplayName)
	assert.Equal(t, int64(2), third.Ticket.SequenceNumber)

	lottery := f.lottery()
	assert.Equal(t, int64(3), lottery.TicketCount)
	assert.Equal(t, int64(30), lottery.PoolAmount)
	assert.Equal(t, int64(30), f.balance(lottery.EscrowAccount()))

	// Sales are closed after the window
	f.ledger.Fund(testAlice, testPrice)
	f.clock.Set(201)
	_, err := f.service.BuyTicket(f.ctx, testLotteryID, testAlice)
	assert.ErrorIs(t, err, entities.ErrLotteryNotOpen)

	f.oracle.Commit("request-1", 200, 7)
	_, err = f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "request-1")
	require.NoError(t, err)

	// Not revealed yet
	_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "request-1")
	assert.ErrorIs(t, err, entities.ErrRandomnessNotResolved)
	assert.True(t, entities.IsRetryable(err))

	f.oracle.Reveal("request-1", 201)
	selection, err := f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "request-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), selection.RandomValue)
	assert.Equal(t, int64(1), selection.WinnerIndex)
	assert.Equal(t, "Token Lottery Ticket1", selection.WinningTicket)
	assert.Equal(t, second.Ticket.AssetRef, selection.WinningAssetRef)

	chosen, ok := f.publisher.Events()[len(f.publisher.Events())-1].(events.WinnerChosenEvent)
	require.True(t, ok)
	assert.Equal(t, second.Ticket.AssetRef, chosen.AssetRef)

	claim, err := f.service.ClaimPrize(f.ctx, testLotteryID, testBob, second.Ticket.AssetRef)
	require.NoError(t, err)
	assert.Equal(t, int64(30), claim.Amount)
	assert.Equal(t, int64(30), f.balance(testBob))
	assert.Equal(t, int64(0), f.balance(lottery.EscrowAccount()))
	assert.Equal(t, int64(0), f.lottery().PoolAmount)

	_, err = f.service.ClaimPrize(f.ctx, testLotteryID, testAlice, first.Ticket.AssetRef)
	assert.ErrorIs(t, err, entities.ErrIncorrectTicket)

	_, err = f.service.ClaimPrize(f.ctx, testLotteryID, testBob, second.Ticket.AssetRef)
	assert.ErrorIs(t, err, entities.ErrAlreadySettled)
	assert.Equal(t, int64(30), f.balance(testBob))

	assert.Equal(t, []events.EventType{
		events.EventTypeLotteryInitialized,
		events.EventTypeCollectionInitialized,
		events.EventTypeTicketPurchased,
		events.EventTypeTicketPurchased,
		events.EventTypeTicketPurchased,
		events.EventTypeRandomnessCommitted,
		events.EventTypeWinnerChosen,
		events.EventTypePrizeClaimed,
	}, f.publisher.Types())
}

func TestLotteryService_Initialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  interfaces.InitializeParams
		wantErr error
	}{
		{
			name: "valid lottery",
			params: interfaces.InitializeParams{
				ID: 1, SaleWindow: entities.SaleWindow{Start: 100, End: 200}, TicketPrice: 10, Authority: testAuthority,
			},
		},
		{
			name: "start equal to end",
			params: interfaces.InitializeParams{
				ID: 1, SaleWindow: entities.SaleWindow{Start: 200, End: 200}, TicketPrice: 10, Authority: testAuthority,
			},
			wantErr: entities.ErrInvalidWindow,
		},
		{
			name: "start after end",
			params: interfaces.InitializeParams{
				ID: 1, SaleWindow: entities.SaleWindow{Start: 300, End: 200}, TicketPrice: 10, Authority: testAuthority,
			},
			wantErr: entities.ErrInvalidWindow,
		},
		{
			name: "zero price",
			params: interfaces.InitializeParams{
				ID: 1, SaleWindow: entities.SaleWindow{Start: 100, End: 200}, TicketPrice: 0, Authority: testAuthority,
			},
			wantErr: entities.ErrInvalidTicketPrice,
		},
		{
			name: "ticket name does not fit the registry",
			params: interfaces.InitializeParams{
				ID: 1, SaleWindow: entities.SaleWindow{Start: 100, End: 200}, TicketPrice: 10, Authority: testAuthority,
				TicketName: "A Very Long Lottery Ticket Name Prefix",
			},
			wantErr: entities.ErrDisplayNameTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newLotteryFixture(t)
			lottery, err := f.service.Initialize(f.ctx, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, lottery)
				assert.Empty(t, f.publisher.Events())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(0), lottery.TicketCount)
			assert.Equal(t, int64(0), lottery.PoolAmount)
			assert.False(t, lottery.WinnerSelected)
			assert.False(t, lottery.Settled)
			assert.Nil(t, lottery.RandomnessBinding)
			assert.Equal(t, entities.DefaultTicketName, lottery.Name)
		})
	}
}

func TestLotteryService_Initialize_Twice(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	f.openLottery()

	_, err := f.service.Initialize(f.ctx, interfaces.InitializeParams{
		ID: testLotteryID, SaleWindow: entities.SaleWindow{Start: 1, End: 2}, TicketPrice: 1, Authority: "someone-else",
	})
	assert.ErrorIs(t, err, entities.ErrAlreadyInitialized)

	lottery := f.lottery()
	assert.Equal(t, testAuthority, lottery.Authority)
	assert.Equal(t, testPrice, lottery.TicketPrice)
}

func TestLotteryService_InitializeCollection(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	_, err := f.service.Initialize(f.ctx, interfaces.InitializeParams{
		ID: testLotteryID, SaleWindow: entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, TicketPrice: testPrice, Authority: testAuthority,
	})
	require.NoError(t, err)

	_, err = f.service.InitializeCollection(f.ctx, testLotteryID, testAlice)
	assert.ErrorIs(t, err, entities.ErrNotAuthorized)

	_, err = f.service.InitializeCollection(f.ctx, 42, testAuthority)
	assert.ErrorIs(t, err, entities.ErrLotteryNotFound)

	lottery, err := f.service.InitializeCollection(f.ctx, testLotteryID, testAuthority)
	require.NoError(t, err)
	require.NotNil(t, lottery.CollectionRef)

	_, err = f.service.InitializeCollection(f.ctx, testLotteryID, testAuthority)
	assert.ErrorIs(t, err, entities.ErrCollectionAlreadyInitialized)
}

func TestLotteryService_BuyTicket_Window(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tick    int64
		wantErr error
	}{
		{name: "before start", tick: testSaleStart - 1, wantErr: entities.ErrLotteryNotOpen},
		{name: "at start", tick: testSaleStart},
		{name: "inside window", tick: 150},
		{name: "at end", tick: testSaleEnd},
		{name: "after end", tick: testSaleEnd + 1, wantErr: entities.ErrLotteryNotOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newLotteryFixture(t)
			f.openLottery()
			f.ledger.Fund(testAlice, testPrice)
			f.clock.Set(tt.tick)

			_, err := f.service.BuyTicket(f.ctx, testLotteryID, testAlice)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, int64(0), f.lottery().TicketCount)
				assert.Equal(t, testPrice, f.balance(testAlice))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), f.lottery().TicketCount)
			assert.Equal(t, int64(0), f.balance(testAlice))
		})
	}
}

func TestLotteryService_BuyTicket_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("collection not initialized", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		_, err := f.service.Initialize(f.ctx, interfaces.InitializeParams{
			ID: testLotteryID, SaleWindow: entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, TicketPrice: testPrice, Authority: testAuthority,
		})
		require.NoError(t, err)
		f.ledger.Fund(testAlice, testPrice)
		f.clock.Set(testSaleStart)

		_, err = f.service.BuyTicket(f.ctx, testLotteryID, testAlice)
		assert.ErrorIs(t, err, entities.ErrCollectionNotInitialized)
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.ledger.Fund(testAlice, testPrice-1)
		f.clock.Set(testSaleStart)

		_, err := f.service.BuyTicket(f.ctx, testLotteryID, testAlice)
		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)

		lottery := f.lottery()
		assert.Equal(t, int64(0), lottery.TicketCount)
		assert.Equal(t, int64(0), lottery.PoolAmount)
		tickets, err := f.service.ListTickets(f.ctx, testLotteryID)
		require.NoError(t, err)
		assert.Empty(t, tickets)
	})

	t.Run("unknown lottery", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		_, err := f.service.BuyTicket(f.ctx, 7, testAlice)
		assert.ErrorIs(t, err, entities.ErrLotteryNotFound)
	})
}

func TestLotteryService_BuyTicket_CountsAndNames(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	f.openLottery()

	buyers := []string{testAlice, testBob, testAlice, testCarol, testAlice}
	for i, buyer := range buyers {
		result := f.buyAt(testSaleStart+int64(i), buyer)
		assert.Equal(t, int64(i), result.Ticket.SequenceNumber)
		assert.Equal(t, entities.TicketName(entities.DefaultTicketName, int64(i)), result.Ticket.DisplayName)
		assert.Equal(t, int64(i+1), result.Lottery.TicketCount)
		assert.Equal(t, testPrice*int64(i+1), result.Lottery.PoolAmount)

		name, err := f.registry.GetDisplayName(f.ctx, result.Ticket.AssetRef)
		require.NoError(t, err)
		assert.Len(t, name, entities.DisplayNameLength)
		assert.Equal(t, result.Ticket.DisplayName, entities.NormalizeDisplayName(name))

		membership, err := f.registry.VerifyMembership(f.ctx, result.Ticket.AssetRef, *f.lottery().CollectionRef)
		require.NoError(t, err)
		assert.Equal(t, entities.MembershipVerified, membership)
	}

	tickets, err := f.service.ListTickets(f.ctx, testLotteryID)
	require.NoError(t, err)
	require.Len(t, tickets, len(buyers))
	for i, ticket := range tickets {
		assert.Equal(t, int64(i), ticket.SequenceNumber)
		assert.Equal(t, buyers[i], ticket.Owner)
	}
}

func TestLotteryService_CommitAWinner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		caller   string
		seedTick int64
		ref      string
		wantErr  error
	}{
		{name: "committed one tick ago", caller: testAuthority, seedTick: 300, ref: "req"},
		{name: "committed two ticks ago", caller: testAuthority, seedTick: 299, ref: "req", wantErr: entities.ErrRandomnessAlreadyRevealed},
		{name: "committed this tick", caller: testAuthority, seedTick: 301, ref: "req", wantErr: entities.ErrRandomnessAlreadyRevealed},
		{name: "not the authority", caller: testAlice, seedTick: 300, ref: "req", wantErr: entities.ErrNotAuthorized},
		{name: "unknown request", caller: testAuthority, seedTick: 300, ref: "missing", wantErr: entities.ErrRequestNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newLotteryFixture(t)
			f.openLottery()
			f.oracle.Commit("req", tt.seedTick, 1)
			f.clock.Set(301)

			lottery, err := f.service.CommitAWinner(f.ctx, testLotteryID, tt.caller, tt.ref)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, f.lottery().RandomnessBinding)
				return
			}
			require.NoError(t, err)
			assert.True(t, lottery.IsBoundTo("req"))
		})
	}
}

func TestLotteryService_CommitAWinner_Rebinding(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	f.openLottery()
	f.buyAt(testSaleStart, testAlice)

	f.oracle.Commit("first", 300, 1)
	f.clock.Set(301)
	_, err := f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "first")
	require.NoError(t, err)

	f.oracle.Commit("second", 301, 2)
	f.clock.Set(302)
	_, err = f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "second")
	require.NoError(t, err)
	assert.True(t, f.lottery().IsBoundTo("second"))

	// The old request can no longer select the winner
	f.oracle.Reveal("first", 302)
	_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "first")
	assert.ErrorIs(t, err, entities.ErrIncorrectRandomnessAccount)

	f.oracle.Reveal("second", 302)
	_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "second")
	require.NoError(t, err)

	// No rebinding once the winner is fixed
	f.oracle.Commit("third", 302, 3)
	f.clock.Set(303)
	_, err = f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "third")
	assert.ErrorIs(t, err, entities.ErrWinnerChosen)
	assert.True(t, f.lottery().IsBoundTo("second"))
}

func TestLotteryService_ChooseAWinner(t *testing.T) {
	t.Parallel()

	t.Run("before the sale ends", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.oracle.Commit("req", 149, 5)
		f.clock.Set(150)
		_, err := f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "req")
		require.NoError(t, err)
		f.oracle.Reveal("req", 150)

		_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "req")
		assert.ErrorIs(t, err, entities.ErrLotteryNotOpen)

		f.clock.Set(testSaleEnd)
		_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "req")
		require.NoError(t, err)
	})

	t.Run("no binding", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.clock.Set(testSaleEnd + 1)

		_, err := f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "req")
		assert.ErrorIs(t, err, entities.ErrIncorrectRandomnessAccount)
	})

	t.Run("not the authority", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.oracle.Commit("req", testSaleEnd, 5)
		f.clock.Set(testSaleEnd + 1)
		_, err := f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "req")
		require.NoError(t, err)
		f.oracle.Reveal("req", testSaleEnd+1)

		_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAlice, "req")
		assert.ErrorIs(t, err, entities.ErrNotAuthorized)
	})

	t.Run("no tickets sold", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.oracle.Commit("req", testSaleEnd, 5)
		f.clock.Set(testSaleEnd + 1)
		_, err := f.service.CommitAWinner(f.ctx, testLotteryID, testAuthority, "req")
		require.NoError(t, err)
		f.oracle.Reveal("req", testSaleEnd+1)

		_, err = f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "req")
		assert.ErrorIs(t, err, entities.ErrNoTickets)
		assert.False(t, f.lottery().WinnerSelected)
	})

	t.Run("selection happens once", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.buyAt(testSaleStart+1, testBob)
		first := f.drawWith(testSaleEnd+1, "req", 3)
		assert.Equal(t, int64(1), first.WinnerIndex)

		_, err := f.service.ChooseAWinner(f.ctx, testLotteryID, testAuthority, "req")
		assert.ErrorIs(t, err, entities.ErrWinnerChosen)
		assert.Equal(t, int64(1), *f.lottery().WinnerIndex)
	})
}

func TestLotteryService_ChooseAWinner_MissingWinningTicket(t *testing.T) {
	t.Parallel()

	ref := "req"
	lottery, _ := entities.NewLottery(testLotteryID, entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, testPrice, testAuthority)
	lottery.TicketCount = 2
	lottery.PoolAmount = 20
	lottery.BindRandomness(ref)

	lotteryRepo := new(testhelpers.MockLotteryRepository)
	ticketRepo := new(testhelpers.MockTicketRepository)
	oracle := new(testhelpers.MockRandomnessOracle)
	clock := new(testhelpers.MockClock)

	lotteryRepo.On("GetByIDForUpdate", mock.Anything, testLotteryID).Return(lottery, nil)
	clock.On("CurrentTick", mock.Anything).Return(testSaleEnd+1, nil)
	oracle.On("GetRevealedValue", mock.Anything, ref, testSaleEnd+1).Return(uint64(5), nil)
	ticketRepo.On("GetBySequence", mock.Anything, testLotteryID, int64(1)).Return(nil, nil)

	service := NewLotteryService(lotteryRepo, ticketRepo, new(testhelpers.MockAssetRegistry),
		oracle, new(testhelpers.MockLedger), clock, new(testhelpers.MockEventPublisher))
	_, err := service.ChooseAWinner(context.Background(), testLotteryID, testAuthority, ref)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "winning ticket 1")
	lotteryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	ticketRepo.AssertExpectations(t)
}

func TestLotteryService_GetParticipants(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	f.openLottery()
	f.buyAt(testSaleStart, testCarol)
	f.buyAt(testSaleStart+1, testAlice)
	f.buyAt(testSaleStart+2, testCarol)
	f.buyAt(testSaleStart+3, testBob)

	summary, err := f.service.GetParticipants(f.ctx, testLotteryID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.TicketsSold)
	assert.Equal(t, summary.Lottery.TicketCount, summary.TicketsSold)
	require.Len(t, summary.Participants, 3)
	assert.Equal(t, entities.TicketParticipantInfo{Owner: testCarol, TicketCount: 2}, *summary.Participants[0])
	assert.Equal(t, entities.TicketParticipantInfo{Owner: testAlice, TicketCount: 1}, *summary.Participants[1])
	assert.Equal(t, entities.TicketParticipantInfo{Owner: testBob, TicketCount: 1}, *summary.Participants[2])

	_, err = f.service.GetParticipants(f.ctx, 42)
	assert.ErrorIs(t, err, entities.ErrLotteryNotFound)
}

func TestLotteryService_ClaimPrize(t *testing.T) {
	t.Parallel()

	t.Run("winner not chosen", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		ticket := f.buyAt(testSaleStart, testAlice)

		_, err := f.service.ClaimPrize(f.ctx, testLotteryID, testAlice, ticket.Ticket.AssetRef)
		assert.ErrorIs(t, err, entities.ErrWinnerNotChosen)
	})

	t.Run("unverified look-alike", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		lottery := f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.drawWith(testSaleEnd+1, "req", 0)

		fake := f.registry.MintUnverified(*lottery.CollectionRef, testCarol, "Token Lottery Ticket0")
		_, err := f.service.ClaimPrize(f.ctx, testLotteryID, testCarol, fake)
		assert.ErrorIs(t, err, entities.ErrNotVerifiedTicket)
		assert.Equal(t, testPrice, f.lottery().PoolAmount)
	})

	t.Run("unknown asset", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.drawWith(testSaleEnd+1, "req", 0)

		_, err := f.service.ClaimPrize(f.ctx, testLotteryID, testAlice, "no-such-asset")
		assert.ErrorIs(t, err, entities.ErrIncorrectTicket)
	})

	t.Run("purchaser no longer holds the ticket", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		winning := f.buyAt(testSaleStart, testAlice)
		f.drawWith(testSaleEnd+1, "req", 0)

		require.NoError(t, f.registry.TransferAsset(f.ctx, winning.Ticket.AssetRef, testAlice, testBob))

		_, err := f.service.ClaimPrize(f.ctx, testLotteryID, testAlice, winning.Ticket.AssetRef)
		assert.ErrorIs(t, err, entities.ErrIncorrectTicket)

		claim, err := f.service.ClaimPrize(f.ctx, testLotteryID, testBob, winning.Ticket.AssetRef)
		require.NoError(t, err)
		assert.Equal(t, testPrice, claim.Amount)
		assert.Equal(t, testPrice, f.balance(testBob))
		assert.Equal(t, testBob, *f.lottery().SettledBy)
	})

	t.Run("ticket of another lottery", func(t *testing.T) {
		t.Parallel()

		f := newLotteryFixture(t)
		f.openLottery()
		f.buyAt(testSaleStart, testAlice)
		f.drawWith(testSaleEnd+1, "req", 0)

		_, err := f.service.Initialize(f.ctx, interfaces.InitializeParams{
			ID: 2, SaleWindow: entities.SaleWindow{Start: 300, End: 400}, TicketPrice: testPrice, Authority: testAuthority,
		})
		require.NoError(t, err)
		_, err = f.service.InitializeCollection(f.ctx, 2, testAuthority)
		require.NoError(t, err)
		f.ledger.Fund(testBob, testPrice)
		f.clock.Set(300)
		other, err := f.service.BuyTicket(f.ctx, 2, testBob)
		require.NoError(t, err)
		assert.Equal(t, "Token Lottery Ticket0", other.Ticket.DisplayName)

		_, err = f.service.ClaimPrize(f.ctx, testLotteryID, testBob, other.Ticket.AssetRef)
		assert.ErrorIs(t, err, entities.ErrIncorrectTicket)
		assert.NotErrorIs(t, err, entities.ErrNotVerifiedTicket)
		assert.Equal(t, testPrice, f.lottery().PoolAmount)
		assert.Nil(t, f.lottery().SettledBy)
	})
}

func TestLotteryService_PoolConservation(t *testing.T) {
	t.Parallel()

	f := newLotteryFixture(t)
	lottery := f.openLottery()

	buyers := []string{testAlice, testBob, testCarol, testBob}
	var results []*interfaces.TicketPurchaseResult
	for i, buyer := range buyers {
		results = append(results, f.buyAt(testSaleStart+int64(i), buyer))
		current := f.lottery()
		assert.Equal(t, current.TicketPrice*current.TicketCount, current.PoolAmount)
		assert.Equal(t, current.PoolAmount, f.balance(lottery.EscrowAccount()))
	}

	selection := f.drawWith(testSaleEnd+1, "req", 1<<40+2)
	winner := results[selection.WinnerIndex]

	_, err := f.service.ClaimPrize(f.ctx, testLotteryID, winner.Ticket.Owner, winner.Ticket.AssetRef)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(lottery.EscrowAccount()))

	var total int64
	for _, account := range []string{testAlice, testBob, testCarol} {
		total += f.balance(account)
	}
	assert.Equal(t, testPrice*int64(len(buyers)), total)
}

func TestLotteryService_BuyTicket_RollbackOnFailure(t *testing.T) {
	t.Parallel()

	collectionRef := "collection-1"
	newOpenLottery := func() *entities.Lottery {
		lottery, _ := entities.NewLottery(testLotteryID, entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, testPrice, testAuthority)
		lottery.CollectionRef = &collectionRef
		return lottery
	}

	tests := []struct {
		name        string
		setupMocks  func(*testhelpers.MockLedger, *testhelpers.MockAssetRegistry, *testhelpers.MockTicketRepository)
		errContains string
	}{
		{
			name: "ledger transfer fails",
			setupMocks: func(ledger *testhelpers.MockLedger, registry *testhelpers.MockAssetRegistry, tickets *testhelpers.MockTicketRepository) {
				ledger.On("Transfer", mock.Anything, testAlice, "lottery:1", testPrice).Return(entities.ErrInsufficientFunds)
			},
			errContains: "failed to collect ticket payment",
		},
		{
			name: "mint fails",
			setupMocks: func(ledger *testhelpers.MockLedger, registry *testhelpers.MockAssetRegistry, tickets *testhelpers.MockTicketRepository) {
				ledger.On("Transfer", mock.Anything, testAlice, "lottery:1", testPrice).Return(nil)
				registry.On("MintMemberAsset", mock.Anything, collectionRef, testAlice, "Token Lottery Ticket0", mock.Anything).
					Return("", errors.New("registry unavailable"))
			},
			errContains: "failed to mint ticket asset",
		},
		{
			name: "ticket store fails",
			setupMocks: func(ledger *testhelpers.MockLedger, registry *testhelpers.MockAssetRegistry, tickets *testhelpers.MockTicketRepository) {
				ledger.On("Transfer", mock.Anything, testAlice, "lottery:1", testPrice).Return(nil)
				registry.On("MintMemberAsset", mock.Anything, collectionRef, testAlice, "Token Lottery Ticket0", mock.Anything).
					Return("asset-1", nil)
				tickets.On("Create", mock.Anything, mock.AnythingOfType("*entities.Ticket")).Return(errors.New("database error"))
			},
			errContains: "failed to create ticket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lotteryRepo := new(testhelpers.MockLotteryRepository)
			ticketRepo := new(testhelpers.MockTicketRepository)
			registry := new(testhelpers.MockAssetRegistry)
			oracle := new(testhelpers.MockRandomnessOracle)
			ledger := new(testhelpers.MockLedger)
			clock := new(testhelpers.MockClock)
			publisher := new(testhelpers.MockEventPublisher)

			lotteryRepo.On("GetByIDForUpdate", mock.Anything, testLotteryID).Return(newOpenLottery(), nil)
			clock.On("CurrentTick", mock.Anything).Return(int64(150), nil)
			tt.setupMocks(ledger, registry, ticketRepo)

			service := NewLotteryService(lotteryRepo, ticketRepo, registry, oracle, ledger, clock, publisher)
			_, err := service.BuyTicket(context.Background(), testLotteryID, testAlice)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
			lotteryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			publisher.AssertNotCalled(t, "Publish", mock.Anything)
			ledger.AssertExpectations(t)
			registry.AssertExpectations(t)
			ticketRepo.AssertExpectations(t)
		})
	}
}

func TestLotteryService_ChooseAWinner_OracleErrors(t *testing.T) {
	t.Parallel()

	ref := "req"
	endedLottery := func() *entities.Lottery {
		lottery, _ := entities.NewLottery(testLotteryID, entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, testPrice, testAuthority)
		lottery.TicketCount = 3
		lottery.PoolAmount = 30
		lottery.BindRandomness(ref)
		return lottery
	}

	tests := []struct {
		name      string
		oracleErr error
		wantErr   error
		retryable bool
	}{
		{name: "not yet resolved", oracleErr: entities.ErrNotYetResolved, wantErr: entities.ErrRandomnessNotResolved, retryable: true},
		{name: "request vanished", oracleErr: entities.ErrRequestNotFound, wantErr: entities.ErrRequestNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lotteryRepo := new(testhelpers.MockLotteryRepository)
			oracle := new(testhelpers.MockRandomnessOracle)
			clock := new(testhelpers.MockClock)
			publisher := new(testhelpers.MockEventPublisher)

			lotteryRepo.On("GetByIDForUpdate", mock.Anything, testLotteryID).Return(endedLottery(), nil)
			clock.On("CurrentTick", mock.Anything).Return(testSaleEnd+5, nil)
			oracle.On("GetRevealedValue", mock.Anything, ref, testSaleEnd+5).Return(uint64(0), tt.oracleErr)

			service := NewLotteryService(lotteryRepo, new(testhelpers.MockTicketRepository), new(testhelpers.MockAssetRegistry),
				oracle, new(testhelpers.MockLedger), clock, publisher)
			_, err := service.ChooseAWinner(context.Background(), testLotteryID, testAuthority, ref)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, entities.IsRetryable(err))
			lotteryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestLotteryService_PublishFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	lotteryRepo := new(testhelpers.MockLotteryRepository)
	publisher := new(testhelpers.MockEventPublisher)

	lotteryRepo.On("GetByID", mock.Anything, testLotteryID).Return(nil, nil)
	lotteryRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Lottery")).Return(nil)
	publisher.On("Publish", mock.AnythingOfType("events.LotteryInitializedEvent")).Return(errors.New("nats down"))

	service := NewLotteryService(lotteryRepo, new(testhelpers.MockTicketRepository), new(testhelpers.MockAssetRegistry),
		new(testhelpers.MockRandomnessOracle), new(testhelpers.MockLedger), new(testhelpers.MockClock), publisher)

	lottery, err := service.Initialize(context.Background(), interfaces.InitializeParams{
		ID: testLotteryID, SaleWindow: entities.SaleWindow{Start: testSaleStart, End: testSaleEnd}, TicketPrice: testPrice, Authority: testAuthority,
	})
	require.NoError(t, err)
	assert.Equal(t, testLotteryID, lottery.ID)
	lotteryRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}
