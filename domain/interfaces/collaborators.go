package interfaces

import (
	"context"

	"tokenlottery/domain/entities"
)

// Ledger moves funds between accounts
type Ledger interface {
	// Transfer moves amount from one account to another.
	// Returns entities.ErrInsufficientFunds when from cannot cover it.
	Transfer(ctx context.Context, from, to string, amount int64) error

	// Balance returns the current balance of an account
	Balance(ctx context.Context, account string) (int64, error)
}

// AssetRegistry mints and verifies the collectible assets that represent tickets
type AssetRegistry interface {
	// CreateCollection registers a collection owned by owner
	CreateCollection(ctx context.Context, owner, name string, metadata entities.AssetMetadata) (string, error)

	// MintMemberAsset mints a single asset held by owner and verified as a member of the collection
	MintMemberAsset(ctx context.Context, collectionRef, owner, displayName string, metadata entities.AssetMetadata) (string, error)

	// VerifyMembership reports how the asset relates to the collection.
	// Returns entities.ErrAssetNotFound when the asset does not exist.
	VerifyMembership(ctx context.Context, assetRef, collectionRef string) (entities.Membership, error)

	// GetOwnerBalance returns how many units of the asset owner holds
	GetOwnerBalance(ctx context.Context, assetRef, owner string) (int64, error)

	// GetDisplayName returns the stored, possibly padded, display name of the asset
	GetDisplayName(ctx context.Context, assetRef string) (string, error)
}

// RandomnessOracle exposes committed and revealed randomness requests
type RandomnessOracle interface {
	// GetCommitmentTick returns the tick at which the request's commitment was made
	GetCommitmentTick(ctx context.Context, requestRef string) (int64, error)

	// GetRevealedValue returns the revealed value, or entities.ErrNotYetResolved
	GetRevealedValue(ctx context.Context, requestRef string, currentTick int64) (uint64, error)
}

// Clock is the logical clock all window and freshness checks are made against
type Clock interface {
	CurrentTick(ctx context.Context) (int64, error)
}

// LedgerStore is the hosted ledger: the Ledger contract plus funding and history
type LedgerStore interface {
	Ledger

	// Deposit credits an account from outside the system
	Deposit(ctx context.Context, account string, amount int64) error

	// History returns the most recent journal entries of an account, newest first
	History(ctx context.Context, account string, limit int) ([]*entities.LedgerEntry, error)
}

// AssetRegistryStore is the hosted asset registry: the AssetRegistry contract plus custody operations
type AssetRegistryStore interface {
	AssetRegistry

	// TransferAsset moves one unit of an asset between holders.
	// Returns entities.ErrNotAssetHolder when from does not hold it.
	TransferAsset(ctx context.Context, assetRef, from, to string) error

	// GetAsset returns the asset record, nil if it does not exist
	GetAsset(ctx context.Context, assetRef string) (*entities.Asset, error)
}

// RandomnessStore persists requests fed by the external oracle and serves them as a RandomnessOracle
type RandomnessStore interface {
	RandomnessOracle

	// RecordCommitment stores a new commitment. Redelivery of an identical commitment is a no-op.
	RecordCommitment(ctx context.Context, requestRef string, seedTick int64, commitment []byte) error

	// GetRequest returns the stored request, nil if it does not exist
	GetRequest(ctx context.Context, requestRef string) (*entities.RandomnessRequest, error)

	// RecordReveal stores the seed of a committed request.
	// Returns entities.ErrAlreadyRevealed when a seed is already stored.
	RecordReveal(ctx context.Context, requestRef string, seed []byte, revealTick int64) error
}
