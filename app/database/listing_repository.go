package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ListingRepository = (*listingRepository)(nil)

type listingRepository struct {
	db *DB
}

func NewListingRepository(db *DB) ListingRepository {
	return &listingRepository{db: db}
}

// InsertListing relies on the (marketplace, external_id) uniqueness
// constraint: a conflicting insert is a no-op, so re-scraping an item never
// creates a duplicate row and never touches user-set flags.
func (r *listingRepository) InsertListing(listing Listing) (bool, error) {
	imageURLs, err := json.Marshal(orEmptySlice(listing.ImageURLs))
	if err != nil {
		return false, fmt.Errorf("failed to encode image urls: %w", err)
	}
	metadata, err := json.Marshal(orEmptyMap(listing.Metadata))
	if err != nil {
		return false, fmt.Errorf("failed to encode metadata: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO listings (
			id, marketplace, external_id, title, price, currency, location,
			url, image_urls, seller_name, seller_rating, metadata,
			posted_at, scraped_at, is_saved, is_featured, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (marketplace, external_id) DO NOTHING
	`, uuid.NewString(), listing.Marketplace, listing.ExternalID, listing.Title,
		listing.Price, listing.Currency, listing.Location, listing.URL,
		string(imageURLs), listing.SellerName, listing.SellerRating, string(metadata),
		listing.PostedAt, listing.ScrapedAt, listing.IsSaved, listing.IsFeatured,
		time.Now().UTC())

	if err != nil {
		return false, fmt.Errorf("failed to insert listing: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *listingRepository) GetByExternalID(marketplace, externalID string) (*Listing, error) {
	row := r.db.QueryRow(`
		SELECT id, marketplace, external_id, title, price, currency, location,
		       url, image_urls, seller_name, seller_rating, metadata,
		       posted_at, scraped_at, is_saved, is_featured, created_at
		FROM listings
		WHERE marketplace = ? AND external_id = ?
	`, marketplace, externalID)

	listing, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

func (r *listingRepository) GetListingCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get listing count: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes listings scraped before cutoff. With keepSaved set,
// listings the user marked as saved survive the sweep.
func (r *listingRepository) DeleteOlderThan(cutoff time.Time, keepSaved bool) (int64, error) {
	query := "DELETE FROM listings WHERE scraped_at < ?"
	if keepSaved {
		query += " AND is_saved = 0"
	}

	res, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old listings: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return deleted, nil
}

func scanListing(row rowScanner) (*Listing, error) {
	var listing Listing
	var imageURLs, metadata string
	var sellerRating sql.NullFloat64
	var postedAt sql.NullTime

	err := row.Scan(
		&listing.ID, &listing.Marketplace, &listing.ExternalID, &listing.Title,
		&listing.Price, &listing.Currency, &listing.Location, &listing.URL,
		&imageURLs, &listing.SellerName, &sellerRating, &metadata,
		&postedAt, &listing.ScrapedAt, &listing.IsSaved, &listing.IsFeatured,
		&listing.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(imageURLs), &listing.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &listing.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if sellerRating.Valid {
		listing.SellerRating = &sellerRating.Float64
	}
	if postedAt.Valid {
		t := postedAt.Time
		listing.PostedAt = &t
	}

	return &listing, nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
