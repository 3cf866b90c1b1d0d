package marketplace

import "context"

// Store defines the persistence interface for marketplace data.
type Store interface {
	CreateListing(ctx context.Context, l Listing) (Listing, error)
	GetListing(ctx context.Context, listingID string) (Listing, error)
	GetActiveByCollectible(ctx context.Context, collectibleID string) (Listing, error)
	UpdateListing(ctx context.Context, l Listing) (Listing, error)
	ListActive(ctx context.Context, limit int) ([]Listing, error)
	ListBySeller(ctx context.Context, seller string, limit int) ([]Listing, error)
}

// TokenLedger moves fungible balances and escrowed collectible units. It is
// the same settlement collaborator the game service uses.
type TokenLedger interface {
	Transfer(ctx context.Context, from, to string, amount uint64, denomination string) error
}
