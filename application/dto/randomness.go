package dto

// RandomnessCommitted announces a new commit-reveal request. Commitment is the
// blake2b-256 digest of the seed that will later be revealed.
type RandomnessCommitted struct {
	RequestRef string
	SeedTick   int64
	Commitment []byte
}

// RandomnessRevealed publishes the seed of a committed request
type RandomnessRevealed struct {
	RequestRef string
	Seed       []byte
	RevealTick int64
}
