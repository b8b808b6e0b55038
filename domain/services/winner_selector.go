package services

import (
	"tokenlottery/domain/entities"
)

// SelectWinnerIndex maps a revealed random value onto the sold tickets:
// value mod ticketCount. The result is always in [0, ticketCount).
func SelectWinnerIndex(value uint64, ticketCount int64) (int64, error) {
	if ticketCount <= 0 {
		return 0, entities.ErrNoTickets
	}
	return int64(value % uint64(ticketCount)), nil
}
