package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gachapon-labs/gachapon/internal/metrics"
	"github.com/gachapon-labs/gachapon/pkg/logger"
)

// Errors
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrListingNotFound = errors.New("listing not found")
	ErrListingInactive = errors.New("listing is inactive")
	ErrListingExists   = errors.New("collectible is already listed")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Service runs the listing escrow flow over a Store, settling through the
// token ledger. Escrowed collectibles are held by a derived custodial
// account that only this service moves.
type Service struct {
	mu      sync.RWMutex
	cfg     Config
	store   Store
	ledger  TokenLedger
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New constructs a marketplace service.
func New(cfg Config, store Store, ledger TokenLedger, log *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		log:    log,
	}
}

// WithMetrics attaches prometheus collectors.
func (s *Service) WithMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Configuration returns the current administrative settings.
func (s *Service) Configuration() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig rotates the platform treasury and/or authority. Nil fields
// are left unchanged.
func (s *Service) UpdateConfig(ctx context.Context, caller string, newTreasury, newAuthority *string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.cfg.Authority {
		return Config{}, fmt.Errorf("%w: caller is not the marketplace authority", ErrUnauthorized)
	}
	if newTreasury != nil {
		s.cfg.PlatformTreasury = *newTreasury
	}
	if newAuthority != nil {
		s.cfg.Authority = *newAuthority
	}

	s.log.WithField("authority", s.cfg.Authority).
		WithField("platform_treasury", s.cfg.PlatformTreasury).
		Info("marketplace config updated")

	return s.cfg, nil
}

// List escrows one collectible unit from the seller and opens an active
// listing at the given price.
func (s *Service) List(ctx context.Context, seller, collectibleID, currency string, price uint64) (Listing, error) {
	if price == 0 {
		return Listing{}, ErrInvalidPrice
	}
	if existing, err := s.store.GetActiveByCollectible(ctx, collectibleID); err == nil && existing.ID != "" {
		return Listing{}, fmt.Errorf("%w: listing %s", ErrListingExists, existing.ID)
	}

	// Escrow before the record exists; a failed transfer aborts the listing.
	escrow := EscrowAccount(collectibleID)
	if err := s.ledger.Transfer(ctx, seller, escrow, 1, CollectibleDenomination(collectibleID)); err != nil {
		return Listing{}, fmt.Errorf("escrow collectible: %w", err)
	}

	now := time.Now().UTC()
	listing := Listing{
		Seller:        seller,
		CollectibleID: collectibleID,
		Currency:      currency,
		Price:         price,
		IsActive:      true,
		ListedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.store.CreateListing(ctx, listing)
	if err != nil {
		return Listing{}, fmt.Errorf("create listing: %w", err)
	}

	s.log.WithField("listing_id", created.ID).
		WithField("collectible_id", collectibleID).
		WithField("seller", seller).
		WithField("price", price).
		Info("collectible listed")
	s.metrics.RecordListing()

	return created, nil
}

// Buy settles a purchase: the seller receives the price minus the platform
// fee, the platform treasury receives the fee, and the escrowed collectible
// moves to the buyer. The enclosing transaction boundary, not this method,
// guarantees the three transfers land as a unit.
func (s *Service) Buy(ctx context.Context, buyer, listingID, currency string) (Sale, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return Sale{}, ErrListingNotFound
	}
	if !listing.IsActive {
		return Sale{}, ErrListingInactive
	}
	if currency != listing.Currency {
		return Sale{}, fmt.Errorf("%w: listing settles in %s", ErrInvalidCurrency, listing.Currency)
	}

	cfg := s.Configuration()
	fee := SaleFee(listing.Price)
	sellerAmount := listing.Price - fee

	if err := s.ledger.Transfer(ctx, buyer, listing.Seller, sellerAmount, listing.Currency); err != nil {
		return Sale{}, fmt.Errorf("pay seller: %w", err)
	}
	if fee > 0 {
		if err := s.ledger.Transfer(ctx, buyer, cfg.PlatformTreasury, fee, listing.Currency); err != nil {
			return Sale{}, fmt.Errorf("pay platform fee: %w", err)
		}
	}
	escrow := EscrowAccount(listing.CollectibleID)
	if err := s.ledger.Transfer(ctx, escrow, buyer, 1, CollectibleDenomination(listing.CollectibleID)); err != nil {
		return Sale{}, fmt.Errorf("release escrow: %w", err)
	}

	now := time.Now().UTC()
	listing.IsActive = false
	listing.SoldAt = &now
	listing.Buyer = buyer
	listing.UpdatedAt = now

	if _, err := s.store.UpdateListing(ctx, listing); err != nil {
		return Sale{}, fmt.Errorf("update listing: %w", err)
	}

	s.log.WithField("listing_id", listingID).
		WithField("buyer", buyer).
		WithField("price", listing.Price).
		WithField("fee", fee).
		Info("collectible sold")
	s.metrics.RecordSale(fee)

	return Sale{
		ListingID:     listing.ID,
		CollectibleID: listing.CollectibleID,
		Seller:        listing.Seller,
		Buyer:         buyer,
		Price:         listing.Price,
		Fee:           fee,
		SellerAmount:  sellerAmount,
		SoldAt:        now,
	}, nil
}

// Cancel returns the escrowed collectible to the seller and closes the
// listing.
func (s *Service) Cancel(ctx context.Context, seller, listingID string) (Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return Listing{}, ErrListingNotFound
	}
	if !listing.IsActive {
		return Listing{}, ErrListingInactive
	}
	if listing.Seller != seller {
		return Listing{}, fmt.Errorf("%w: caller is not the seller", ErrUnauthorized)
	}

	escrow := EscrowAccount(listing.CollectibleID)
	if err := s.ledger.Transfer(ctx, escrow, seller, 1, CollectibleDenomination(listing.CollectibleID)); err != nil {
		return Listing{}, fmt.Errorf("return escrow: %w", err)
	}

	now := time.Now().UTC()
	listing.IsActive = false
	listing.CancelledAt = &now
	listing.UpdatedAt = now

	updated, err := s.store.UpdateListing(ctx, listing)
	if err != nil {
		return Listing{}, fmt.Errorf("update listing: %w", err)
	}

	s.log.WithField("listing_id", listingID).
		WithField("seller", seller).
		Info("listing cancelled")

	return updated, nil
}

// UpdatePrice changes an active listing's price.
func (s *Service) UpdatePrice(ctx context.Context, seller, listingID string, newPrice uint64) (Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return Listing{}, ErrListingNotFound
	}
	if !listing.IsActive {
		return Listing{}, ErrListingInactive
	}
	if listing.Seller != seller {
		return Listing{}, fmt.Errorf("%w: caller is not the seller", ErrUnauthorized)
	}
	if newPrice == 0 {
		return Listing{}, ErrInvalidPrice
	}

	oldPrice := listing.Price
	listing.Price = newPrice
	listing.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateListing(ctx, listing)
	if err != nil {
		return Listing{}, fmt.Errorf("update listing: %w", err)
	}

	s.log.WithField("listing_id", listingID).
		WithField("old_price", oldPrice).
		WithField("new_price", newPrice).
		Info("listing price updated")

	return updated, nil
}

// WithdrawPlatformFees moves collected fees out of the platform treasury.
// Both the marketplace authority and the treasury owner must authorize.
func (s *Service) WithdrawPlatformFees(ctx context.Context, caller, treasuryOwner, destination, denomination string, amount uint64) error {
	cfg := s.Configuration()
	if caller != cfg.Authority {
		return fmt.Errorf("%w: caller is not the marketplace authority", ErrUnauthorized)
	}
	if treasuryOwner != cfg.PlatformTreasury {
		return fmt.Errorf("%w: caller does not own the platform treasury", ErrUnauthorized)
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	if err := s.ledger.Transfer(ctx, cfg.PlatformTreasury, destination, amount, denomination); err != nil {
		return fmt.Errorf("withdraw platform fees: %w", err)
	}

	s.log.WithField("amount", amount).
		WithField("destination", destination).
		Info("platform fees withdrawn")

	return nil
}

// GetListing retrieves a listing by ID.
func (s *Service) GetListing(ctx context.Context, listingID string) (Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return Listing{}, ErrListingNotFound
	}
	return listing, nil
}

// ListActive lists active listings.
func (s *Service) ListActive(ctx context.Context, limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListActive(ctx, limit)
}

// ListBySeller lists a seller's listings, any state.
func (s *Service) ListBySeller(ctx context.Context, seller string, limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListBySeller(ctx, seller, limit)
}
