package repository

import (
	"context"
	"errors"
	"fmt"

	"tokenlottery/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssetRegistryRepository is the hosted asset registry. Display names are stored in a fixed
// width NUL padded field, so readers must normalize them before comparing.
type AssetRegistryRepository struct {
	q Queryable
}

// NewAssetRegistryRepository creates a new asset registry on a pool or transaction
func NewAssetRegistryRepository(q Queryable) *AssetRegistryRepository {
	return &AssetRegistryRepository{q: q}
}

// CreateCollection registers a new collection owned by owner and returns its reference
func (r *AssetRegistryRepository) CreateCollection(ctx context.Context, owner, name string, metadata entities.AssetMetadata) (string, error) {
	query := `
		INSERT INTO asset_collections (ref, owner, name, symbol, uri)
		VALUES ($1, $2, $3, $4, $5)
	`

	ref := uuid.NewString()
	if _, err := r.q.Exec(ctx, query, ref, owner, name, metadata.Symbol, metadata.URI); err != nil {
		return "", fmt.Errorf("failed to create collection for %s: %w", owner, err)
	}

	return ref, nil
}

// MintMemberAsset mints one unit of a new asset to owner as a verified member of the collection.
// The collection owner is recorded as mint authority.
func (r *AssetRegistryRepository) MintMemberAsset(ctx context.Context, collectionRef, owner, displayName string, metadata entities.AssetMetadata) (string, error) {
	padded, ok := entities.PadDisplayName(displayName)
	if !ok {
		return "", fmt.Errorf("%w: %q", entities.ErrDisplayNameTooLong, displayName)
	}

	var mintAuthority string
	err := r.q.QueryRow(ctx, `
		UPDATE asset_collections
		SET size = size + 1
		WHERE ref = $1
		RETURNING owner
	`, collectionRef).Scan(&mintAuthority)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: collection %s", entities.ErrAssetNotFound, collectionRef)
	}
	if err != nil {
		return "", fmt.Errorf("failed to reserve collection %s: %w", collectionRef, err)
	}

	ref := uuid.NewString()
	_, err = r.q.Exec(ctx, `
		INSERT INTO assets (ref, collection_ref, verified, display_name, symbol, uri, mint_authority)
		VALUES ($1, $2, TRUE, $3, $4, $5, $6)
	`, ref, collectionRef, []byte(padded), metadata.Symbol, metadata.URI, mintAuthority)
	if err != nil {
		return "", fmt.Errorf("failed to mint asset in collection %s: %w", collectionRef, err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO asset_holdings (asset_ref, owner, amount)
		VALUES ($1, $2, 1)
	`, ref, owner)
	if err != nil {
		return "", fmt.Errorf("failed to record holding of %s: %w", ref, err)
	}

	return ref, nil
}

// VerifyMembership reports how the asset relates to the collection
func (r *AssetRegistryRepository) VerifyMembership(ctx context.Context, assetRef, collectionRef string) (entities.Membership, error) {
	asset, err := r.GetAsset(ctx, assetRef)
	if err != nil {
		return entities.MembershipUnverified, err
	}
	if asset == nil {
		return entities.MembershipUnverified, fmt.Errorf("%w: %s", entities.ErrAssetNotFound, assetRef)
	}
	return asset.MembershipIn(collectionRef), nil
}

// GetOwnerBalance returns how many units of the asset owner holds
func (r *AssetRegistryRepository) GetOwnerBalance(ctx context.Context, assetRef, owner string) (int64, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM assets WHERE ref = $1),
		       COALESCE((SELECT amount FROM asset_holdings WHERE asset_ref = $1 AND owner = $2), 0)
	`

	var exists bool
	var amount int64
	if err := r.q.QueryRow(ctx, query, assetRef, owner).Scan(&exists, &amount); err != nil {
		return 0, fmt.Errorf("failed to get holding of %s: %w", assetRef, err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", entities.ErrAssetNotFound, assetRef)
	}

	return amount, nil
}

// GetDisplayName returns the stored padded display name of an asset
func (r *AssetRegistryRepository) GetDisplayName(ctx context.Context, assetRef string) (string, error) {
	var name []byte
	err := r.q.QueryRow(ctx, `SELECT display_name FROM assets WHERE ref = $1`, assetRef).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", entities.ErrAssetNotFound, assetRef)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get display name of %s: %w", assetRef, err)
	}

	return string(name), nil
}

// TransferAsset moves one unit of an asset from one holder to another
func (r *AssetRegistryRepository) TransferAsset(ctx context.Context, assetRef, from, to string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE asset_holdings
		SET amount = amount - 1
		WHERE asset_ref = $1 AND owner = $2 AND amount >= 1
	`, assetRef, from)
	if err != nil {
		return fmt.Errorf("failed to debit holding of %s: %w", assetRef, err)
	}

	if result.RowsAffected() == 0 {
		asset, err := r.GetAsset(ctx, assetRef)
		if err != nil {
			return err
		}
		if asset == nil {
			return fmt.Errorf("%w: %s", entities.ErrAssetNotFound, assetRef)
		}
		return fmt.Errorf("%w: %s does not hold %s", entities.ErrNotAssetHolder, from, assetRef)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO asset_holdings (asset_ref, owner, amount)
		VALUES ($1, $2, 1)
		ON CONFLICT (asset_ref, owner) DO UPDATE
		SET amount = asset_holdings.amount + 1
	`, assetRef, to)
	if err != nil {
		return fmt.Errorf("failed to credit holding of %s: %w", assetRef, err)
	}

	return nil
}

// GetAsset returns the asset record, nil if it does not exist
func (r *AssetRegistryRepository) GetAsset(ctx context.Context, assetRef string) (*entities.Asset, error) {
	query := `
		SELECT ref, collection_ref, verified, display_name, symbol, uri, mint_authority, created_at
		FROM assets
		WHERE ref = $1
	`

	var asset entities.Asset
	var name []byte
	err := r.q.QueryRow(ctx, query, assetRef).Scan(
		&asset.Ref,
		&asset.CollectionRef,
		&asset.Verified,
		&name,
		&asset.Metadata.Symbol,
		&asset.Metadata.URI,
		&asset.MintAuthority,
		&asset.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", assetRef, err)
	}

	asset.DisplayName = string(name)
	return &asset, nil
}
