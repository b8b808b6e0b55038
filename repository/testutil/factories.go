package testutil

import (
	"crypto/rand"
	"testing"

	"tokenlottery/domain/entities"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

// CreateTestLottery creates a lottery with a [100, 200] sale window and a price of 10
func CreateTestLottery(t *testing.T, id int64, authority string) *entities.Lottery {
	lottery, err := entities.NewLottery(id, entities.SaleWindow{Start: 100, End: 200}, 10, authority)
	require.NoError(t, err)
	return lottery
}

// CreateTestTicket creates a ticket for a lottery with the default ticket name
func CreateTestTicket(lotteryID, sequenceNumber int64, owner, assetRef string) *entities.Ticket {
	return &entities.Ticket{
		LotteryID:      lotteryID,
		SequenceNumber: sequenceNumber,
		Owner:          owner,
		AssetRef:       assetRef,
		DisplayName:    entities.TicketName(entities.DefaultTicketName, sequenceNumber),
		PurchasePrice:  10,
		PurchaseTick:   100 + sequenceNumber,
	}
}

// NewSeed returns a random seed whose first byte is value, and its blake2b commitment
func NewSeed(t *testing.T, value byte) (seed []byte, commitment []byte) {
	seed = make([]byte, entities.SeedLength)
	_, err := rand.Read(seed[8:])
	require.NoError(t, err)
	seed[0] = value

	sum := blake2b.Sum256(seed)
	return seed, sum[:]
}
