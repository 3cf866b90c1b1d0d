// Package issuer provides an in-memory collectible issuer.
//
// The issuer mints exactly one non-fungible unit per call, authority-bound
// to the game that owns the prize. In deployment this is backed by the
// chain's collectible program; the memory implementation records issuance
// for tests and local mode.
package issuer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrIssuanceFailed = errors.New("collectible issuance failed")

// Collectible records one issued non-fungible unit.
type Collectible struct {
	ID                  string    `json:"id"`
	Owner               string    `json:"owner"`
	CollectionAuthority string    `json:"collection_authority"`
	Name                string    `json:"name"`
	URI                 string    `json:"uri"`
	Tier                string    `json:"tier"`
	IssuedAt            time.Time `json:"issued_at"`
}

// MemoryIssuer is a thread-safe in-memory collectible issuer.
type MemoryIssuer struct {
	mu     sync.RWMutex
	minted map[string]Collectible

	// fail, when set, makes the next MintOne call fail and then clears.
	// Test hook.
	fail bool
}

// NewMemoryIssuer creates an empty issuer.
func NewMemoryIssuer() *MemoryIssuer {
	return &MemoryIssuer{minted: make(map[string]Collectible)}
}

// FailNext makes the next MintOne call fail.
func (i *MemoryIssuer) FailNext(fail bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fail = fail
}

// MintOne issues one collectible to the owner and returns its ID.
func (i *MemoryIssuer) MintOne(ctx context.Context, owner, collectionAuthority, name, uri, tier string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.fail {
		i.fail = false
		return "", ErrIssuanceFailed
	}

	c := Collectible{
		ID:                  uuid.New().String(),
		Owner:               owner,
		CollectionAuthority: collectionAuthority,
		Name:                name,
		URI:                 uri,
		Tier:                tier,
		IssuedAt:            time.Now().UTC(),
	}
	i.minted[c.ID] = c
	return c.ID, nil
}

// Get returns an issued collectible by ID.
func (i *MemoryIssuer) Get(id string) (Collectible, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.minted[id]
	return c, ok
}

// Owned returns all collectibles held by the owner.
func (i *MemoryIssuer) Owned(owner string) []Collectible {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []Collectible
	for _, c := range i.minted {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out
}
