package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/gachapon-labs/gachapon/internal/ledger"
	"github.com/gachapon-labs/gachapon/pkg/logger"
)

const testDenom = "usdc"

func newTestService(t *testing.T) (*Service, *ledger.MemoryLedger) {
	t.Helper()
	ldg := ledger.NewMemoryLedger()
	svc := New(Config{
		Authority:        "admin",
		PlatformTreasury: "platform-treasury",
	}, NewMemoryStore(), ldg, logger.NewDefault("marketplace-test"))
	return svc, ldg
}

func TestMarketplaceService_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, ldg := newTestService(t)

	const collectible = "col-1"
	ldg.Credit("seller-1", CollectibleDenomination(collectible), 1)
	ldg.Credit("buyer-1", testDenom, 5000)

	var listingID string

	t.Run("List", func(t *testing.T) {
		listing, err := svc.List(ctx, "seller-1", collectible, testDenom, 1000)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		listingID = listing.ID
		if !listing.IsActive {
			t.Error("Expected listing to be active")
		}
		if ldg.Balance("seller-1", CollectibleDenomination(collectible)) != 0 {
			t.Error("Expected the collectible to leave the seller")
		}
		if ldg.Balance(EscrowAccount(collectible), CollectibleDenomination(collectible)) != 1 {
			t.Error("Expected the collectible in escrow")
		}
	})

	t.Run("List_AlreadyListed", func(t *testing.T) {
		_, err := svc.List(ctx, "seller-1", collectible, testDenom, 2000)
		if !errors.Is(err, ErrListingExists) {
			t.Errorf("Expected ErrListingExists, got %v", err)
		}
	})

	t.Run("UpdatePrice", func(t *testing.T) {
		listing, err := svc.UpdatePrice(ctx, "seller-1", listingID, 1500)
		if err != nil {
			t.Fatalf("UpdatePrice failed: %v", err)
		}
		if listing.Price != 1500 {
			t.Errorf("Expected price 1500, got %d", listing.Price)
		}

		if _, err := svc.UpdatePrice(ctx, "someone-else", listingID, 99); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.UpdatePrice(ctx, "seller-1", listingID, 0); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("Expected ErrInvalidPrice, got %v", err)
		}
	})

	t.Run("Buy_WrongCurrency", func(t *testing.T) {
		_, err := svc.Buy(ctx, "buyer-1", listingID, "gas")
		if !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("Expected ErrInvalidCurrency, got %v", err)
		}
	})

	t.Run("Buy", func(t *testing.T) {
		// Reset to a round price so the settlement amounts are exact.
		if _, err := svc.UpdatePrice(ctx, "seller-1", listingID, 1000); err != nil {
			t.Fatalf("UpdatePrice failed: %v", err)
		}

		sale, err := svc.Buy(ctx, "buyer-1", listingID, testDenom)
		if err != nil {
			t.Fatalf("Buy failed: %v", err)
		}
		if sale.Fee != 20 || sale.SellerAmount != 980 {
			t.Errorf("Expected fee 20 / seller 980, got %d / %d", sale.Fee, sale.SellerAmount)
		}

		if ldg.Balance("seller-1", testDenom) != 980 {
			t.Errorf("Expected seller balance 980, got %d", ldg.Balance("seller-1", testDenom))
		}
		if ldg.Balance("platform-treasury", testDenom) != 20 {
			t.Errorf("Expected platform balance 20, got %d", ldg.Balance("platform-treasury", testDenom))
		}
		if ldg.Balance("buyer-1", testDenom) != 4000 {
			t.Errorf("Expected buyer balance 4000, got %d", ldg.Balance("buyer-1", testDenom))
		}
		if ldg.Balance("buyer-1", CollectibleDenomination(collectible)) != 1 {
			t.Error("Expected the collectible to reach the buyer")
		}

		listing, _ := svc.GetListing(ctx, listingID)
		if listing.IsActive || listing.SoldAt == nil || listing.Buyer != "buyer-1" {
			t.Errorf("Unexpected listing state after sale: active=%v buyer=%s", listing.IsActive, listing.Buyer)
		}
	})

	t.Run("Buy_Inactive", func(t *testing.T) {
		_, err := svc.Buy(ctx, "buyer-1", listingID, testDenom)
		if !errors.Is(err, ErrListingInactive) {
			t.Errorf("Expected ErrListingInactive, got %v", err)
		}
	})

	t.Run("Relist", func(t *testing.T) {
		// The buyer may turn around and list the collectible again.
		listing, err := svc.List(ctx, "buyer-1", collectible, testDenom, 2000)
		if err != nil {
			t.Fatalf("Relist failed: %v", err)
		}
		if listing.ID == listingID {
			t.Error("Expected a fresh listing ID")
		}
		listingID = listing.ID
	})

	t.Run("Cancel_WrongSeller", func(t *testing.T) {
		_, err := svc.Cancel(ctx, "seller-1", listingID)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		listing, err := svc.Cancel(ctx, "buyer-1", listingID)
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if listing.IsActive || listing.CancelledAt == nil {
			t.Error("Expected an inactive cancelled listing")
		}
		if ldg.Balance("buyer-1", CollectibleDenomination(collectible)) != 1 {
			t.Error("Expected the collectible returned from escrow")
		}

		if _, err := svc.Cancel(ctx, "buyer-1", listingID); !errors.Is(err, ErrListingInactive) {
			t.Errorf("Expected ErrListingInactive on double cancel, got %v", err)
		}
	})

	t.Run("ListAfterCancel", func(t *testing.T) {
		if _, err := svc.List(ctx, "buyer-1", collectible, testDenom, 900); err != nil {
			t.Fatalf("Expected relisting after cancel to succeed: %v", err)
		}
	})

	t.Run("WithdrawPlatformFees", func(t *testing.T) {
		if err := svc.WithdrawPlatformFees(ctx, "admin", "platform-treasury", "ops-wallet", testDenom, 20); err != nil {
			t.Fatalf("WithdrawPlatformFees failed: %v", err)
		}
		if ldg.Balance("ops-wallet", testDenom) != 20 {
			t.Errorf("Expected ops balance 20, got %d", ldg.Balance("ops-wallet", testDenom))
		}

		err := svc.WithdrawPlatformFees(ctx, "not-admin", "platform-treasury", "ops-wallet", testDenom, 1)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestMarketplaceService_ListValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.List(ctx, "seller-1", "col-1", testDenom, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}

	// A seller who does not hold the collectible cannot escrow it.
	if _, err := svc.List(ctx, "seller-1", "col-1", testDenom, 100); err == nil {
		t.Error("Expected escrow transfer to fail for an unheld collectible")
	}
}

func TestMarketplaceService_BuyInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, ldg := newTestService(t)

	ldg.Credit("seller-1", CollectibleDenomination("col-1"), 1)
	listing, err := svc.List(ctx, "seller-1", "col-1", testDenom, 1000)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	_, err = svc.Buy(ctx, "broke-buyer", listing.ID, testDenom)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	// The failed purchase leaves the listing live and the escrow intact.
	got, _ := svc.GetListing(ctx, listing.ID)
	if !got.IsActive {
		t.Error("Expected listing to stay active after failed purchase")
	}
	if ldg.Balance(EscrowAccount("col-1"), CollectibleDenomination("col-1")) != 1 {
		t.Error("Expected escrow to stay intact after failed purchase")
	}
}

func TestMarketplaceService_UpdateConfig(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	newTreasury := "treasury-2"
	cfg, err := svc.UpdateConfig(ctx, "admin", &newTreasury, nil)
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if cfg.PlatformTreasury != "treasury-2" || cfg.Authority != "admin" {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	newAuthority := "admin-2"
	if _, err := svc.UpdateConfig(ctx, "admin", nil, &newAuthority); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if _, err := svc.UpdateConfig(ctx, "admin", &newTreasury, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected old authority to be rejected, got %v", err)
	}
}

func TestSaleFee(t *testing.T) {
	tests := []struct {
		price uint64
		want  uint64
	}{
		{0, 0},
		{49, 0},  // below the fee floor
		{50, 1},
		{1000, 20},
		{12345, 246},
		{1<<63 + 1<<62, (1<<63 + 1<<62) / 50}, // no wrap on large prices
	}
	for _, tc := range tests {
		if got := SaleFee(tc.price); got != tc.want {
			t.Errorf("SaleFee(%d) = %d, want %d", tc.price, got, tc.want)
		}
	}
}
