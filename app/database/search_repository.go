package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ SearchRepository = (*searchRepository)(nil)

type searchRepository struct {
	db *DB
}

func NewSearchRepository(db *DB) SearchRepository {
	return &searchRepository{db: db}
}

// UpsertSearch registers a search definition, updating everything except
// last_checked_at, which belongs to the scheduler.
func (r *searchRepository) UpsertSearch(search Search) error {
	marketplaces, err := json.Marshal(search.Marketplaces)
	if err != nil {
		return fmt.Errorf("failed to encode marketplaces: %w", err)
	}
	filters, err := json.Marshal(orEmptyMap(search.Filters))
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(`
		INSERT INTO searches (
			id, name, keywords, marketplaces, location, min_price, max_price,
			filters, status, check_interval_minutes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			keywords = excluded.keywords,
			marketplaces = excluded.marketplaces,
			location = excluded.location,
			min_price = excluded.min_price,
			max_price = excluded.max_price,
			filters = excluded.filters,
			status = excluded.status,
			check_interval_minutes = excluded.check_interval_minutes,
			updated_at = excluded.updated_at
	`, uuid.NewString(), search.Name, search.Keywords, string(marketplaces), search.Location,
		search.MinPrice, search.MaxPrice, string(filters), search.Status,
		search.CheckIntervalMinutes, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert search: %w", err)
	}

	return nil
}

func (r *searchRepository) GetSearch(searchName string) (*Search, error) {
	row := r.db.QueryRow(`
		SELECT id, name, keywords, marketplaces, location, min_price, max_price,
		       filters, status, check_interval_minutes, last_checked_at,
		       created_at, updated_at
		FROM searches
		WHERE name = ?
	`, searchName)

	search, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	return search, nil
}

func (r *searchRepository) GetActiveSearches() ([]Search, error) {
	rows, err := r.db.Query(`
		SELECT id, name, keywords, marketplaces, location, min_price, max_price,
		       filters, status, check_interval_minutes, last_checked_at,
		       created_at, updated_at
		FROM searches
		WHERE status = 'active'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active searches: %w", err)
	}
	defer rows.Close()

	var searches []Search
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		searches = append(searches, *search)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}

	return searches, nil
}

func (r *searchRepository) GetSearchCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM searches").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get search count: %w", err)
	}
	return count, nil
}

func (r *searchRepository) UpdateLastChecked(searchName string, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE searches
		SET last_checked_at = ?, updated_at = ?
		WHERE name = ?
	`, checkedAt, time.Now().UTC(), searchName)

	if err != nil {
		return fmt.Errorf("failed to update last checked: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(row rowScanner) (*Search, error) {
	var search Search
	var marketplaces, filters string
	var minPrice, maxPrice sql.NullFloat64
	var lastChecked sql.NullTime

	err := row.Scan(
		&search.ID, &search.Name, &search.Keywords, &marketplaces, &search.Location,
		&minPrice, &maxPrice, &filters, &search.Status, &search.CheckIntervalMinutes,
		&lastChecked, &search.CreatedAt, &search.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(marketplaces), &search.Marketplaces); err != nil {
		return nil, fmt.Errorf("failed to decode marketplaces: %w", err)
	}
	if err := json.Unmarshal([]byte(filters), &search.Filters); err != nil {
		return nil, fmt.Errorf("failed to decode filters: %w", err)
	}

	if minPrice.Valid {
		search.MinPrice = &minPrice.Float64
	}
	if maxPrice.Valid {
		search.MaxPrice = &maxPrice.Float64
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		search.LastCheckedAt = &t
	}

	return &search, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
