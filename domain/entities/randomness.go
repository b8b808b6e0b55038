package entities

import (
	"encoding/binary"
	"time"
)

// SeedLength is the size in bytes of a revealed randomness seed
const SeedLength = 32

// RandomnessRequest is a commit-reveal request produced by the external randomness oracle
type RandomnessRequest struct {
	Ref        string     `db:"ref"`
	SeedTick   int64      `db:"seed_tick"`
	Commitment []byte     `db:"commitment"`
	Seed       []byte     `db:"seed"`        // NULL until revealed
	RevealTick *int64     `db:"reveal_tick"` // NULL until revealed
	CreatedAt  time.Time  `db:"created_at"`
	RevealedAt *time.Time `db:"revealed_at"`
}

// IsRevealed returns true once the seed has been published
func (r *RandomnessRequest) IsRevealed() bool {
	return len(r.Seed) > 0 && r.RevealTick != nil
}

// IsResolvedAt reports whether the revealed value may be consumed at tick
func (r *RandomnessRequest) IsResolvedAt(tick int64) bool {
	return r.IsRevealed() && tick >= *r.RevealTick
}

// Value derives the random value from the revealed seed: the little-endian integer of
// its first 8 bytes.
func (r *RandomnessRequest) Value() uint64 {
	return SeedValue(r.Seed)
}

// SeedValue returns the little-endian integer of the first 8 bytes of seed
func SeedValue(seed []byte) uint64 {
	var buf [8]byte
	copy(buf[:], seed)
	return binary.LittleEndian.Uint64(buf[:])
}
