// Package postgres implements the marketplace store on postgres via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gachapon-labs/gachapon/services/marketplace"
)

// Store is a postgres-backed marketplace.Store.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a store over the given connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type listingRow struct {
	ID            string       `db:"id"`
	Seller        string       `db:"seller"`
	CollectibleID string       `db:"collectible_id"`
	Currency      string       `db:"currency"`
	Price         int64        `db:"price"`
	IsActive      bool         `db:"is_active"`
	ListedAt      time.Time    `db:"listed_at"`
	CancelledAt   sql.NullTime `db:"cancelled_at"`
	SoldAt        sql.NullTime `db:"sold_at"`
	Buyer         string       `db:"buyer"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func toListingRow(l marketplace.Listing) listingRow {
	r := listingRow{
		ID:            l.ID,
		Seller:        l.Seller,
		CollectibleID: l.CollectibleID,
		Currency:      l.Currency,
		Price:         int64(l.Price),
		IsActive:      l.IsActive,
		ListedAt:      l.ListedAt,
		Buyer:         l.Buyer,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.CancelledAt != nil {
		r.CancelledAt = sql.NullTime{Time: *l.CancelledAt, Valid: true}
	}
	if l.SoldAt != nil {
		r.SoldAt = sql.NullTime{Time: *l.SoldAt, Valid: true}
	}
	return r
}

func (r listingRow) toListing() marketplace.Listing {
	l := marketplace.Listing{
		ID:            r.ID,
		Seller:        r.Seller,
		CollectibleID: r.CollectibleID,
		Currency:      r.Currency,
		Price:         uint64(r.Price),
		IsActive:      r.IsActive,
		ListedAt:      r.ListedAt,
		Buyer:         r.Buyer,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.CancelledAt.Valid {
		t := r.CancelledAt.Time
		l.CancelledAt = &t
	}
	if r.SoldAt.Valid {
		t := r.SoldAt.Time
		l.SoldAt = &t
	}
	return l
}

const listingColumns = `id, seller, collectible_id, currency, price, is_active,
	listed_at, cancelled_at, sold_at, buyer, created_at, updated_at`

func (s *Store) CreateListing(ctx context.Context, l marketplace.Listing) (marketplace.Listing, error) {
	l.ID = uuid.New().String()
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO listings (`+listingColumns+`) VALUES (
		:id, :seller, :collectible_id, :currency, :price, :is_active,
		:listed_at, :cancelled_at, :sold_at, :buyer, :created_at, :updated_at)`,
		toListingRow(l))
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	return l, nil
}

func (s *Store) GetListing(ctx context.Context, listingID string) (marketplace.Listing, error) {
	var r listingRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return marketplace.Listing{}, fmt.Errorf("listing not found: %s", listingID)
		}
		return marketplace.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return r.toListing(), nil
}

func (s *Store) GetActiveByCollectible(ctx context.Context, collectibleID string) (marketplace.Listing, error) {
	var r listingRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+listingColumns+` FROM listings WHERE collectible_id = $1 AND is_active`, collectibleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return marketplace.Listing{}, fmt.Errorf("no active listing for collectible %s", collectibleID)
		}
		return marketplace.Listing{}, fmt.Errorf("get active listing: %w", err)
	}
	return r.toListing(), nil
}

func (s *Store) UpdateListing(ctx context.Context, l marketplace.Listing) (marketplace.Listing, error) {
	res, err := s.db.NamedExecContext(ctx, `UPDATE listings SET
		price = :price, is_active = :is_active, cancelled_at = :cancelled_at,
		sold_at = :sold_at, buyer = :buyer, updated_at = :updated_at
		WHERE id = :id`, toListingRow(l))
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("update listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return marketplace.Listing{}, fmt.Errorf("listing not found: %s", l.ID)
	}
	return l, nil
}

func (s *Store) ListActive(ctx context.Context, limit int) ([]marketplace.Listing, error) {
	return s.listListings(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE is_active ORDER BY listed_at DESC LIMIT $1`,
		limit)
}

func (s *Store) ListBySeller(ctx context.Context, seller string, limit int) ([]marketplace.Listing, error) {
	return s.listListings(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE seller = $1 ORDER BY listed_at DESC LIMIT $2`,
		seller, limit)
}

func (s *Store) listListings(ctx context.Context, query string, args ...interface{}) ([]marketplace.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	listings := make([]marketplace.Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toListing())
	}
	return listings, nil
}
