package entities

import "time"

// AssetMetadata is the descriptive data attached to a collection or an asset
type AssetMetadata struct {
	Symbol string `db:"symbol"`
	URI    string `db:"uri"`
}

// AssetCollection groups every ticket asset of one lottery
type AssetCollection struct {
	Ref       string    `db:"ref"`
	Owner     string    `db:"owner"`
	Name      string    `db:"name"`
	Size      int64     `db:"size"`
	CreatedAt time.Time `db:"created_at"`

	Metadata AssetMetadata
}

// Asset is a non-fungible registry record. DisplayName is stored padded to DisplayNameLength.
type Asset struct {
	Ref           string    `db:"ref"`
	CollectionRef *string   `db:"collection_ref"`
	Verified      bool      `db:"verified"`
	DisplayName   string    `db:"display_name"`
	MintAuthority string    `db:"mint_authority"`
	CreatedAt     time.Time `db:"created_at"`

	Metadata AssetMetadata
}

// Membership describes how an asset relates to a collection
type Membership int

const (
	// MembershipUnverified means the asset carries no verified collection
	MembershipUnverified Membership = iota
	// MembershipOtherCollection means the asset is verified, but in a different collection
	MembershipOtherCollection
	// MembershipVerified means the asset is a verified member of the collection
	MembershipVerified
)

func (m Membership) String() string {
	switch m {
	case MembershipVerified:
		return "verified"
	case MembershipOtherCollection:
		return "other_collection"
	default:
		return "unverified"
	}
}

// MembershipIn reports how the asset relates to collectionRef.
// Verification is checked before the collection reference.
func (a *Asset) MembershipIn(collectionRef string) Membership {
	if !a.Verified || a.CollectionRef == nil {
		return MembershipUnverified
	}
	if *a.CollectionRef != collectionRef {
		return MembershipOtherCollection
	}
	return MembershipVerified
}
