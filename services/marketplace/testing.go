package marketplace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore provides an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]Listing
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]Listing)}
}

func (s *MemoryStore) CreateListing(ctx context.Context, l Listing) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = uuid.New().String()
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	s.listings[l.ID] = l
	return l, nil
}

func (s *MemoryStore) GetListing(ctx context.Context, listingID string) (Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[listingID]
	if !ok {
		return Listing{}, fmt.Errorf("listing not found: %s", listingID)
	}
	return l, nil
}

func (s *MemoryStore) GetActiveByCollectible(ctx context.Context, collectibleID string) (Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.listings {
		if l.CollectibleID == collectibleID && l.IsActive {
			return l, nil
		}
	}
	return Listing{}, fmt.Errorf("no active listing for collectible %s", collectibleID)
}

func (s *MemoryStore) UpdateListing(ctx context.Context, l Listing) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[l.ID]; !ok {
		return Listing{}, fmt.Errorf("listing not found: %s", l.ID)
	}
	l.UpdatedAt = time.Now().UTC()
	s.listings[l.ID] = l
	return l, nil
}

func (s *MemoryStore) ListActive(ctx context.Context, limit int) ([]Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Listing
	for _, l := range s.listings {
		if l.IsActive {
			out = append(out, l)
		}
	}
	sortListings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListBySeller(ctx context.Context, seller string, limit int) ([]Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Listing
	for _, l := range s.listings {
		if l.Seller == seller {
			out = append(out, l)
		}
	}
	sortListings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortListings(listings []Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].ListedAt.Equal(listings[j].ListedAt) {
			return listings[i].ID < listings[j].ID
		}
		return listings[i].ListedAt.After(listings[j].ListedAt)
	})
}
