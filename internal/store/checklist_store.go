package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/eidoscope/eidoscope/internal/model"
)

// ChecklistStore keeps a warm copy of the registry's canonical taxon list,
// so a restart inside the cache TTL does not re-download the full export.
type ChecklistStore struct {
	db *sql.DB
}

// NewChecklistStore creates a new ChecklistStore.
func NewChecklistStore(db *sql.DB) *ChecklistStore {
	return &ChecklistStore{db: db}
}

// EnsureSchema creates the checklist table if it does not exist.
func (s *ChecklistStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS checklist (
			taxon_id       INTEGER PRIMARY KEY,
			canonical_name TEXT NOT NULL,
			fetched_at     TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create checklist table: %w", err)
	}
	return nil
}

// Load retrieves the stored checklist. Returns an empty slice when the
// table holds no copy.
func (s *ChecklistStore) Load(ctx context.Context) ([]model.ChecklistEntry, error) {
	query := `
		SELECT taxon_id, canonical_name, fetched_at
		FROM checklist
		ORDER BY taxon_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}
	defer rows.Close()

	var entries []model.ChecklistEntry
	for rows.Next() {
		var e model.ChecklistEntry
		if err := rows.Scan(&e.TaxonID, &e.CanonicalName, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checklist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checklist rows: %w", err)
	}

	return entries, nil
}

// Save replaces the stored checklist with the given entries in one
// transaction, bulk-loaded via COPY.
func (s *ChecklistStore) Save(ctx context.Context, entries []model.ChecklistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checklist save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checklist`); err != nil {
		return fmt.Errorf("failed to clear checklist: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("checklist", "taxon_id", "canonical_name", "fetched_at"))
	if err != nil {
		return fmt.Errorf("failed to prepare checklist copy: %w", err)
	}

	fetchedAt := time.Now()
	for _, e := range entries {
		at := e.FetchedAt
		if at.IsZero() {
			at = fetchedAt
		}
		if _, err := stmt.ExecContext(ctx, e.TaxonID, e.CanonicalName, at); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy checklist entry %d: %w", e.TaxonID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush checklist copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close checklist copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checklist save: %w", err)
	}
	return nil
}

// Count returns the number of stored checklist entries and the time of the
// last refresh.
func (s *ChecklistStore) Count(ctx context.Context) (int, time.Time, error) {
	query := `SELECT COUNT(*), COALESCE(MAX(fetched_at), 'epoch'::timestamptz) FROM checklist`

	var count int
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx, query).Scan(&count, &fetchedAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count checklist: %w", err)
	}
	return count, fetchedAt, nil
}
