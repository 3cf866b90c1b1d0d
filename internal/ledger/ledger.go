// Package ledger provides an in-memory fungible token ledger.
//
// The ledger is the settlement collaborator for the game and marketplace
// services: fee collection, treasury withdrawal, and marketplace escrow all
// move value through it. Accounts hold balances per denomination and may be
// bound to a single denomination, in which case transfers in any other
// denomination are rejected.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrDenominationMismatch  = errors.New("denomination mismatch")
	ErrInvalidTransferAmount = errors.New("invalid transfer amount")
)

// MemoryLedger is a thread-safe in-memory ledger. It backs tests and the
// local runtime mode; a chain-backed ledger satisfies the same method set.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]map[string]uint64 // account -> denomination -> amount
	bindings map[string]string            // account -> required denomination
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]map[string]uint64),
		bindings: make(map[string]string),
	}
}

// Bind restricts an account to a single denomination.
func (l *MemoryLedger) Bind(account, denomination string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings[account] = denomination
}

// Credit adds funds to an account. Used for seeding and faucet-style setup.
func (l *MemoryLedger) Credit(account, denomination string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[account] == nil {
		l.balances[account] = make(map[string]uint64)
	}
	l.balances[account][denomination] += amount
}

// Balance returns the account's balance in the given denomination.
func (l *MemoryLedger) Balance(account, denomination string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account][denomination]
}

// Transfer moves amount from one account to another. The whole transfer
// applies or nothing does.
func (l *MemoryLedger) Transfer(ctx context.Context, from, to string, amount uint64, denomination string) error {
	if amount == 0 {
		return ErrInvalidTransferAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, account := range []string{from, to} {
		if bound, ok := l.bindings[account]; ok && bound != denomination {
			return fmt.Errorf("%w: account %s holds %s", ErrDenominationMismatch, account, bound)
		}
	}

	if l.balances[from][denomination] < amount {
		return fmt.Errorf("%w: account %s has %d, needs %d",
			ErrInsufficientFunds, from, l.balances[from][denomination], amount)
	}

	l.balances[from][denomination] -= amount
	if l.balances[to] == nil {
		l.balances[to] = make(map[string]uint64)
	}
	l.balances[to][denomination] += amount
	return nil
}
