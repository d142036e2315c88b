package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

// WebsiteStore persists registered crawl targets in Postgres.
type WebsiteStore struct {
	db DB
}

// NewWebsiteStore constructs a WebsiteStore on the given pool.
func NewWebsiteStore(db DB) *WebsiteStore {
	return &WebsiteStore{db: db}
}

// CreateWebsite inserts a website row.
func (s *WebsiteStore) CreateWebsite(ctx context.Context, site ingest.Website) error {
	const query = `
INSERT INTO websites (id, name, base_url, notes, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(ctx, query,
		site.ID, site.Name, site.BaseURL, site.Notes, site.Active, site.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

// GetWebsite fetches a website by ID.
func (s *WebsiteStore) GetWebsite(ctx context.Context, id string) (ingest.Website, error) {
	const query = `
SELECT id, name, base_url, notes, active, created_at
FROM websites WHERE id = $1`
	var site ingest.Website
	err := s.db.QueryRow(ctx, query, id).Scan(
		&site.ID, &site.Name, &site.BaseURL, &site.Notes, &site.Active, &site.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Website{}, ingest.ErrNotFound
	}
	if err != nil {
		return ingest.Website{}, fmt.Errorf("select website: %w", err)
	}
	return site, nil
}

// ListWebsites returns websites newest first, optionally only active ones.
func (s *WebsiteStore) ListWebsites(ctx context.Context, activeOnly bool) ([]ingest.Website, error) {
	query := `
SELECT id, name, base_url, notes, active, created_at
FROM websites ORDER BY created_at DESC`
	if activeOnly {
		query = `
SELECT id, name, base_url, notes, active, created_at
FROM websites WHERE active ORDER BY created_at DESC`
	}
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select websites: %w", err)
	}
	defer rows.Close()

	out := make([]ingest.Website, 0)
	for rows.Next() {
		var site ingest.Website
		if err := rows.Scan(&site.ID, &site.Name, &site.BaseURL, &site.Notes, &site.Active, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate websites: %w", err)
	}
	return out, nil
}

// DeleteWebsite removes a website by ID.
func (s *WebsiteStore) DeleteWebsite(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM websites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingest.ErrNotFound
	}
	return nil
}
