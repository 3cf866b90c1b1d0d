// Package marketplace provides the collectible resale marketplace: listings
// escrow exactly one collectible unit, buyers settle in the listing's
// currency, and the platform keeps a fixed fee.
package marketplace

import (
	"math/bits"
	"time"
)

// PlatformFeeBPS is the platform's cut of every sale, in basis points.
const PlatformFeeBPS = 200 // 2%

// Config holds the marketplace's replaceable administrative settings.
type Config struct {
	Authority        string `json:"authority"`
	PlatformTreasury string `json:"platform_treasury"`
}

// Listing is one collectible offered for sale. At most one of CancelledAt
// and SoldAt is ever set, and either implies IsActive is false.
type Listing struct {
	ID            string `json:"id"`
	Seller        string `json:"seller"`
	CollectibleID string `json:"collectible_id"`
	Currency      string `json:"currency"`
	Price         uint64 `json:"price"`

	IsActive    bool       `json:"is_active"`
	ListedAt    time.Time  `json:"listed_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
	Buyer       string     `json:"buyer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sale reports a completed purchase.
type Sale struct {
	ListingID     string    `json:"listing_id"`
	CollectibleID string    `json:"collectible_id"`
	Seller        string    `json:"seller"`
	Buyer         string    `json:"buyer"`
	Price         uint64    `json:"price"`
	Fee           uint64    `json:"fee"`
	SellerAmount  uint64    `json:"seller_amount"`
	SoldAt        time.Time `json:"sold_at"`
}

// EscrowAccount derives the custodial ledger account for a collectible. The
// account is scoped to the collectible, not to any keypair, so only the
// marketplace moves escrowed units.
func EscrowAccount(collectibleID string) string {
	return "escrow:" + collectibleID
}

// CollectibleDenomination is the ledger denomination under which a single
// collectible unit is held.
func CollectibleDenomination(collectibleID string) string {
	return "collectible:" + collectibleID
}

// SaleFee computes the platform fee for a price: floor(price * 200 / 10000).
// The 128-bit intermediate keeps the multiply from wrapping.
func SaleFee(price uint64) uint64 {
	hi, lo := bits.Mul64(price, PlatformFeeBPS)
	fee, _ := bits.Div64(hi, lo, 10000)
	return fee
}
