package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

// StructureStore persists schema versions in Postgres. Version numbering and
// single-active-version bookkeeping happen inside one transaction.
type StructureStore struct {
	db DB
}

// NewStructureStore constructs a StructureStore on the given pool.
func NewStructureStore(db DB) *StructureStore {
	return &StructureStore{db: db}
}

// CreateStructure deactivates every existing version and inserts the new one
// as active with version max+1, atomically.
func (s *StructureStore) CreateStructure(ctx context.Context, id string, fields map[string]any, now time.Time) (ingest.Structure, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return ingest.Structure{}, fmt.Errorf("marshal structure fields: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ingest.Structure{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxVersion int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM event_structures`,
	).Scan(&maxVersion); err != nil {
		return ingest.Structure{}, fmt.Errorf("select max version: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE event_structures SET is_active = FALSE WHERE is_active`,
	); err != nil {
		return ingest.Structure{}, fmt.Errorf("deactivate structures: %w", err)
	}

	structure := ingest.Structure{
		ID:        id,
		Version:   maxVersion + 1,
		IsActive:  true,
		Fields:    fields,
		CreatedAt: now,
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO event_structures (id, version, is_active, fields, created_at)
VALUES ($1, $2, TRUE, $3, $4)`,
		structure.ID, structure.Version, fieldsJSON, structure.CreatedAt,
	); err != nil {
		return ingest.Structure{}, fmt.Errorf("insert structure: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ingest.Structure{}, fmt.Errorf("commit transaction: %w", err)
	}
	return structure, nil
}

// GetActiveStructure returns the single active version.
func (s *StructureStore) GetActiveStructure(ctx context.Context) (ingest.Structure, error) {
	const query = `
SELECT id, version, is_active, fields, created_at
FROM event_structures WHERE is_active`
	structure, err := scanStructure(s.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Structure{}, ingest.ErrNoActiveStructure
	}
	return structure, err
}

// ListStructures returns all versions, newest version first.
func (s *StructureStore) ListStructures(ctx context.Context) ([]ingest.Structure, error) {
	const query = `
SELECT id, version, is_active, fields, created_at
FROM event_structures ORDER BY version DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select structures: %w", err)
	}
	defer rows.Close()

	out := make([]ingest.Structure, 0)
	for rows.Next() {
		structure, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, structure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate structures: %w", err)
	}
	return out, nil
}

func scanStructure(row pgx.Row) (ingest.Structure, error) {
	var (
		structure  ingest.Structure
		fieldsJSON []byte
	)
	err := row.Scan(&structure.ID, &structure.Version, &structure.IsActive, &fieldsJSON, &structure.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Structure{}, err
	}
	if err != nil {
		return ingest.Structure{}, fmt.Errorf("scan structure: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &structure.Fields); err != nil {
		return ingest.Structure{}, fmt.Errorf("unmarshal structure fields: %w", err)
	}
	return structure, nil
}
